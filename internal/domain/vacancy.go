package domain

import "time"

// Vacancy es una vista mínima de una vacante para los teasers por etapa.
// El CRUD completo de vacantes vive fuera de este servicio.
type Vacancy struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	CompanyName string    `json:"company_name"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}
