package domain

// RoleCatalogEntry define un rol canónico y sus etapas primarias ordenadas.
// Toda entrada válida tiene al menos una etapa primaria; el algoritmo
// role-first no está definido sin ellas.
type RoleCatalogEntry struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Tagline          string   `json:"tagline,omitempty"`
	PrimaryStages    []string `json:"primary_stages"`
	CoreSignals      []string `json:"core_signals,omitempty"`
	ShortDescription string   `json:"short_description,omitempty"`
}

// RoleProfile es la descripción extendida usada para armar el prompt del
// colaborador de explicación.
type RoleProfile struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	KeySignals  []string `json:"key_signals,omitempty"`
}
