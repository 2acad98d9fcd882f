package domain

// RoleScore es un rol con su puntaje normalizado.
type RoleScore struct {
	RoleID string  `json:"role_id"`
	Score  float64 `json:"score"`
}

// RoleScoreResult es la salida determinista del motor de agregación.
type RoleScoreResult struct {
	RankedRoles   []RoleScore        `json:"ranked_roles"`
	RawScores     map[string]float64 `json:"raw_scores"`
	SignalProfile map[string]int     `json:"signal_profile"`
	StageAffinity map[string]float64 `json:"stage_affinity"`
}

// StageScore es una etapa con su puntaje normalizado para display.
type StageScore struct {
	StageID   string  `json:"stage_id"`
	StageName string  `json:"stage_name"`
	Score     float64 `json:"score"`
}

// StageRecommendation es la etapa ganadora lista para mostrar.
type StageRecommendation struct {
	PrimaryStageID   string       `json:"primary_stage_id"`
	PrimaryStageName string       `json:"primary_stage_name"`
	WhatUserWillSee  string       `json:"what_user_will_see"`
	RelatedRoles     []string     `json:"related_roles,omitempty"`
	RankedStages     []StageScore `json:"ranked_stages"`
}

// StageScoreResult es la salida del motor de agregación de etapas.
type StageScoreResult struct {
	RankedStages   []StageScore        `json:"ranked_stages"`
	RawScores      map[string]float64  `json:"raw_scores"`
	Recommendation StageRecommendation `json:"recommendation"`
}

// Interpretation es la explicación en lenguaje natural del colaborador
// externo. Best-effort: su ausencia siempre viene acompañada de un warning.
type Interpretation struct {
	PrimaryRecommendation   string   `json:"primary_recommendation"`
	Explanation             string   `json:"explanation"`
	SignalAnalysis          string   `json:"signal_analysis"`
	AlternativeRoles        []string `json:"alternative_roles,omitempty"`
	DifferentiationCriteria string   `json:"differentiation_criteria,omitempty"`
	Reasons                 []string `json:"reasons,omitempty"`
}

// TestResult es el resultado compuesto que devuelve el orquestador.
type TestResult struct {
	SessionID           string               `json:"session_id"`
	RankedRoles         []RoleScore          `json:"ranked_roles"`
	SignalProfile       map[string]int       `json:"signal_profile"`
	RankedStages        []StageScore         `json:"ranked_stages,omitempty"`
	StageRecommendation *StageRecommendation `json:"stage_recommendation,omitempty"`
	Interpretation      *Interpretation      `json:"interpretation,omitempty"`
	Warnings            []string             `json:"warnings,omitempty"`
}
