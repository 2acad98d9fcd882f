package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"career-engine/internal/domain"
)

//go:embed data/role_catalog.json
var defaultRoleData []byte

type roleFile struct {
	Roles []struct {
		domain.RoleCatalogEntry
		Description string `json:"description,omitempty"`
	} `json:"roles"`
}

// RoleCatalog es la fuente de verdad de roles canónicos y sus etapas
// primarias. Datos estáticos de referencia, solo lectura en runtime.
type RoleCatalog struct {
	roles    map[string]domain.RoleCatalogEntry
	profiles map[string]domain.RoleProfile
	ids      []string
}

// NewRoleCatalog carga el catálogo de roles embebido.
func NewRoleCatalog(logger *zap.Logger) (*RoleCatalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var file roleFile
	if err := json.Unmarshal(defaultRoleData, &file); err != nil {
		return nil, fmt.Errorf("%w: parse role catalog: %v", ErrCatalogData, err)
	}
	if len(file.Roles) == 0 {
		return nil, fmt.Errorf("%w: empty role catalog", ErrCatalogData)
	}

	roles := make(map[string]domain.RoleCatalogEntry, len(file.Roles))
	profiles := make(map[string]domain.RoleProfile, len(file.Roles))
	for _, r := range file.Roles {
		if len(r.PrimaryStages) == 0 {
			return nil, fmt.Errorf("%w: role %q has no primary stages", ErrCatalogData, r.ID)
		}
		roles[r.ID] = r.RoleCatalogEntry
		desc := r.Description
		if desc == "" {
			desc = r.ShortDescription
		}
		profiles[r.ID] = domain.RoleProfile{
			ID:          r.ID,
			Name:        r.Title,
			Description: desc,
			KeySignals:  r.CoreSignals,
		}
	}

	ids := make([]string, 0, len(roles))
	for id := range roles {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	logger.Info("role catalog loaded", zap.Int("roles", len(ids)))
	return &RoleCatalog{roles: roles, profiles: profiles, ids: ids}, nil
}

// Role devuelve una entrada del catálogo por id.
func (c *RoleCatalog) Role(id string) (domain.RoleCatalogEntry, bool) {
	r, ok := c.roles[id]
	return r, ok
}

// PrimaryStages devuelve las etapas primarias declaradas de un rol,
// en su orden declarado.
func (c *RoleCatalog) PrimaryStages(roleID string) []string {
	if r, ok := c.roles[roleID]; ok {
		return r.PrimaryStages
	}
	return nil
}

// RoleIDs devuelve todos los ids de rol en orden lexicográfico. La
// agregación los usa para completar raw_scores con 0.0.
func (c *RoleCatalog) RoleIDs() []string {
	return c.ids
}

// AllRoles devuelve todas las entradas en orden lexicográfico por id.
func (c *RoleCatalog) AllRoles() []domain.RoleCatalogEntry {
	out := make([]domain.RoleCatalogEntry, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.roles[id])
	}
	return out
}

// Profiles devuelve los perfiles descriptivos para el prompt del intérprete.
func (c *RoleCatalog) Profiles() map[string]domain.RoleProfile {
	out := make(map[string]domain.RoleProfile, len(c.profiles))
	for id, p := range c.profiles {
		out[id] = p
	}
	return out
}
