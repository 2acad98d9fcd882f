package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"career-engine/internal/domain"
)

//go:embed data/stages.json
var defaultStageData []byte

//go:embed data/stage_role_map.json
var defaultStageRoleMapData []byte

//go:embed data/stage_display.json
var defaultStageDisplayData []byte

type stagesFile struct {
	Stages []domain.Stage `json:"stages"`
}

type stageRoleMapFile struct {
	Mapping []domain.StageRoleMap `json:"mapping"`
}

type stageDisplayFile struct {
	Stages []domain.StageDisplay `json:"stages"`
}

// StageCatalog mantiene las etapas canónicas del pipeline, el mapa
// rol-etapa y el texto de display de cada recomendación.
type StageCatalog struct {
	stages   map[string]domain.Stage
	order    []string
	roleMaps []domain.StageRoleMap
	displays map[string]domain.StageDisplay
}

// NewStageCatalog carga etapas, mapeos y textos de display embebidos.
func NewStageCatalog(logger *zap.Logger) (*StageCatalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var sf stagesFile
	if err := json.Unmarshal(defaultStageData, &sf); err != nil {
		return nil, fmt.Errorf("%w: parse stages: %v", ErrCatalogData, err)
	}
	if len(sf.Stages) == 0 {
		return nil, fmt.Errorf("%w: empty stage catalog", ErrCatalogData)
	}

	var mf stageRoleMapFile
	if err := json.Unmarshal(defaultStageRoleMapData, &mf); err != nil {
		return nil, fmt.Errorf("%w: parse stage role map: %v", ErrCatalogData, err)
	}

	var df stageDisplayFile
	if err := json.Unmarshal(defaultStageDisplayData, &df); err != nil {
		return nil, fmt.Errorf("%w: parse stage display: %v", ErrCatalogData, err)
	}

	stages := make(map[string]domain.Stage, len(sf.Stages))
	order := make([]string, 0, len(sf.Stages))
	for _, s := range sf.Stages {
		stages[s.ID] = s
		order = append(order, s.ID)
	}

	displays := make(map[string]domain.StageDisplay, len(df.Stages))
	for _, d := range df.Stages {
		displays[d.StageID] = d
	}

	logger.Info("stage catalog loaded",
		zap.Int("stages", len(order)),
		zap.Int("role_mappings", len(mf.Mapping)),
	)
	return &StageCatalog{
		stages:   stages,
		order:    order,
		roleMaps: mf.Mapping,
		displays: displays,
	}, nil
}

// Stage devuelve una etapa por id.
func (c *StageCatalog) Stage(id string) (domain.Stage, bool) {
	s, ok := c.stages[id]
	return s, ok
}

// AllStages devuelve las etapas en su orden canónico declarado.
func (c *StageCatalog) AllStages() []domain.Stage {
	out := make([]domain.Stage, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.stages[id])
	}
	return out
}

// StageName devuelve el nombre de display de una etapa, o el id si no existe.
func (c *StageCatalog) StageName(id string) string {
	if s, ok := c.stages[id]; ok {
		return s.Name
	}
	return id
}

// RolesForStage devuelve los mapeos rol-etapa de una etapa. Con importance
// no vacío filtra por nivel ("primary" | "secondary").
func (c *StageCatalog) RolesForStage(stageID, importance string) []domain.StageRoleMap {
	var out []domain.StageRoleMap
	for _, m := range c.roleMaps {
		if m.StageID != stageID {
			continue
		}
		if importance != "" && m.Importance != importance {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Display devuelve el texto de display de una etapa recomendada.
func (c *StageCatalog) Display(stageID string) (domain.StageDisplay, bool) {
	d, ok := c.displays[stageID]
	return d, ok
}

// Keywords devuelve las palabras clave de vacantes de una etapa.
func (c *StageCatalog) Keywords(stageID string) []string {
	if s, ok := c.stages[stageID]; ok {
		return s.VacancyFilters.Keywords
	}
	return nil
}
