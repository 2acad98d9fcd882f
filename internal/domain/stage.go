package domain

// VacancyFilters son pistas para buscar vacantes relevantes a una etapa.
type VacancyFilters struct {
	Roles    []string `json:"roles,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

// Stage es una etapa canónica del pipeline de creación de producto.
type Stage struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Summary        string         `json:"summary,omitempty"`
	TypicalOutputs []string       `json:"typical_outputs,omitempty"`
	CommonMistakes []string       `json:"common_mistakes,omitempty"`
	VacancyFilters VacancyFilters `json:"vacancy_filters,omitempty"`
}

// StageRoleMap relaciona un rol con una etapa y explica por qué.
type StageRoleMap struct {
	StageID    string `json:"stage_id"`
	RoleID     string `json:"role_id"`
	WhyHere    string `json:"why_here"`
	Importance string `json:"importance"` // "primary" | "secondary"
}

// StageDisplay es el texto que ve el usuario cuando se recomienda una etapa.
type StageDisplay struct {
	StageID         string `json:"stage_id"`
	WhatUserWillSee string `json:"what_user_will_see"`
}
