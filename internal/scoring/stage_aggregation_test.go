package scoring

import (
	"errors"
	"testing"

	"career-engine/internal/domain"
)

type fakeStages struct {
	names    map[string]string
	displays map[string]domain.StageDisplay
	maps     map[string][]domain.StageRoleMap
}

func (f fakeStages) StageName(id string) string {
	if n, ok := f.names[id]; ok {
		return n
	}
	return id
}

func (f fakeStages) Display(stageID string) (domain.StageDisplay, bool) {
	d, ok := f.displays[stageID]
	return d, ok
}

func (f fakeStages) RolesForStage(stageID, importance string) []domain.StageRoleMap {
	var out []domain.StageRoleMap
	for _, m := range f.maps[stageID] {
		if importance != "" && m.Importance != importance {
			continue
		}
		out = append(out, m)
	}
	return out
}

func testStages() fakeStages {
	return fakeStages{
		names: map[string]string{
			"stage_1": "Investigación",
			"stage_2": "Desarrollo",
			"stage_3": "Testing",
		},
		displays: map[string]domain.StageDisplay{
			"stage_1": {StageID: "stage_1", WhatUserWillSee: "Tu lugar es la investigación."},
			"stage_2": {StageID: "stage_2", WhatUserWillSee: "Tu lugar es el desarrollo."},
		},
		maps: map[string][]domain.StageRoleMap{
			"stage_2": {
				{StageID: "stage_2", RoleID: "role_a", Importance: "primary"},
				{StageID: "stage_2", RoleID: "role_b", Importance: "secondary"},
			},
		},
	}
}

func TestComputeStageScores_WinnerFromPrimaryStages(t *testing.T) {
	ranked := []domain.RoleScore{{RoleID: "role_a", Score: 1.0}, {RoleID: "role_b", Score: 0.4}}
	affinity := map[string]float64{"stage_1": 2.0, "stage_2": 5.0, "stage_3": 9.0}

	// stage_3 tiene la afinidad más alta pero no es primaria de role_a:
	// la ganadora sale solo de las etapas declaradas del rol ganador.
	result, err := ComputeStageScores(ranked, affinity, testRoles(), testStages())
	if err != nil {
		t.Fatalf("compute stage scores: %v", err)
	}
	if result.Recommendation.PrimaryStageID != "stage_2" {
		t.Fatalf("expected stage_2 winner, got %q", result.Recommendation.PrimaryStageID)
	}
	if result.Recommendation.PrimaryStageName != "Desarrollo" {
		t.Fatalf("unexpected stage name %q", result.Recommendation.PrimaryStageName)
	}
	if result.Recommendation.WhatUserWillSee == "" {
		t.Fatal("expected display text for winner")
	}
	if len(result.Recommendation.RelatedRoles) != 2 {
		t.Fatalf("expected related roles from mapping, got %v", result.Recommendation.RelatedRoles)
	}
}

func TestComputeStageScores_TiePrefersEarliestDeclared(t *testing.T) {
	ranked := []domain.RoleScore{{RoleID: "role_a", Score: 1.0}}
	// Empate exacto entre las dos primarias de role_a: gana la declarada
	// primero, comparación estricta.
	affinity := map[string]float64{"stage_1": 3.0, "stage_2": 3.0}

	result, err := ComputeStageScores(ranked, affinity, testRoles(), testStages())
	if err != nil {
		t.Fatalf("compute stage scores: %v", err)
	}
	if result.Recommendation.PrimaryStageID != "stage_1" {
		t.Fatalf("expected earliest declared stage_1, got %q", result.Recommendation.PrimaryStageID)
	}
}

func TestComputeStageScores_EmptyRankedRoles(t *testing.T) {
	_, err := ComputeStageScores(nil, map[string]float64{}, testRoles(), testStages())
	if !errors.Is(err, ErrStageAggregation) {
		t.Fatalf("expected ErrStageAggregation, got %v", err)
	}
}

func TestComputeStageScores_RoleWithoutPrimaryStages(t *testing.T) {
	ranked := []domain.RoleScore{{RoleID: "role_unknown", Score: 1.0}}
	_, err := ComputeStageScores(ranked, map[string]float64{"stage_1": 1}, testRoles(), testStages())
	if !errors.Is(err, ErrStageAggregation) {
		t.Fatalf("expected ErrStageAggregation, got %v", err)
	}
}

func TestComputeStageScores_DisplayRankingSorted(t *testing.T) {
	ranked := []domain.RoleScore{{RoleID: "role_a", Score: 1.0}}
	affinity := map[string]float64{"stage_1": 1.0, "stage_2": 4.0, "stage_3": 2.0}

	result, err := ComputeStageScores(ranked, affinity, testRoles(), testStages())
	if err != nil {
		t.Fatalf("compute stage scores: %v", err)
	}
	if len(result.RankedStages) != 3 {
		t.Fatalf("expected 3 ranked stages, got %d", len(result.RankedStages))
	}
	for i := 1; i < len(result.RankedStages); i++ {
		if result.RankedStages[i].Score > result.RankedStages[i-1].Score {
			t.Fatalf("ranking not sorted: %+v", result.RankedStages)
		}
	}
	if result.RankedStages[0].StageID != "stage_2" || result.RankedStages[0].Score != 1.0 {
		t.Fatalf("expected stage_2 on top at 1.0, got %+v", result.RankedStages[0])
	}
}
