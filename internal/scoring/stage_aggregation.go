package scoring

import (
	"fmt"
	"sort"

	"career-engine/internal/domain"
)

// ComputeStageScores implementa el algoritmo role-first:
//
//  1. El rol ganador es el primero del ranking ya desempatado.
//  2. La etapa ganadora sale de las primary_stages declaradas de ese rol,
//     por afinidad cruda; comparación estricta, empata la declarada antes.
//  3. Aparte se normalizan todas las etapas tocadas, solo para display:
//     esa lista nunca decide la ganadora.
func ComputeStageScores(
	rankedRoles []domain.RoleScore,
	stageAffinity map[string]float64,
	roles RoleSource,
	stages StageSource,
) (domain.StageScoreResult, error) {
	if len(rankedRoles) == 0 {
		return domain.StageScoreResult{}, fmt.Errorf("%w: no ranked roles provided", ErrStageAggregation)
	}

	winningRoleID := rankedRoles[0].RoleID

	primaryStages := roles.PrimaryStages(winningRoleID)
	if len(primaryStages) == 0 {
		// Invariante de catálogo rota: todo rol debe declarar al menos una
		// etapa primaria.
		return domain.StageScoreResult{}, fmt.Errorf(
			"%w: no primary stages for role %q", ErrStageAggregation, winningRoleID,
		)
	}

	winningStageID := primaryStages[0]
	bestScore := stageAffinity[winningStageID]
	for _, stageID := range primaryStages[1:] {
		if score := stageAffinity[stageID]; score > bestScore {
			bestScore = score
			winningStageID = stageID
		}
	}

	rawScores := make(map[string]float64, len(stageAffinity))
	for stageID, score := range stageAffinity {
		rawScores[stageID] = score
	}

	normalized := normalizeMinMax(rawScores, true)
	rankedStages := make([]domain.StageScore, 0, len(normalized))
	for stageID, score := range normalized {
		rankedStages = append(rankedStages, domain.StageScore{
			StageID:   stageID,
			StageName: stages.StageName(stageID),
			Score:     score,
		})
	}
	sort.Slice(rankedStages, func(i, j int) bool {
		if rankedStages[i].Score != rankedStages[j].Score {
			return rankedStages[i].Score > rankedStages[j].Score
		}
		return rankedStages[i].StageID < rankedStages[j].StageID
	})

	var whatUserWillSee string
	if display, ok := stages.Display(winningStageID); ok {
		whatUserWillSee = display.WhatUserWillSee
	}

	var relatedRoles []string
	for _, m := range stages.RolesForStage(winningStageID, "") {
		relatedRoles = append(relatedRoles, m.RoleID)
	}

	return domain.StageScoreResult{
		RankedStages: rankedStages,
		RawScores:    rawScores,
		Recommendation: domain.StageRecommendation{
			PrimaryStageID:   winningStageID,
			PrimaryStageName: stages.StageName(winningStageID),
			WhatUserWillSee:  whatUserWillSee,
			RelatedRoles:     relatedRoles,
			RankedStages:     rankedStages,
		},
	}, nil
}
