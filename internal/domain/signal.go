package domain

// Signal es una señal cognitiva (estilo de pensamiento) del diccionario.
type Signal struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
}
