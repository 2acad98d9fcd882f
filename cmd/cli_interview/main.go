package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"career-engine/internal/catalog"
	"career-engine/internal/config"
	"career-engine/internal/llm"
	"career-engine/internal/service"
	"career-engine/internal/session"
)

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewNop()

	questions, err := catalog.NewQuestionCatalog(logger)
	if err != nil {
		log.Fatal(err)
	}
	roles, err := catalog.NewRoleCatalog(logger)
	if err != nil {
		log.Fatal(err)
	}
	stages, err := catalog.NewStageCatalog(logger)
	if err != nil {
		log.Fatal(err)
	}
	signals, err := catalog.NewSignalDictionary(logger)
	if err != nil {
		log.Fatal(err)
	}

	store := session.NewMemoryStore(questions, cfg.MaxActiveSessions, cfg.SessionTTL(), 0, logger)
	defer store.Close()

	var interpreter *service.Interpreter
	if cfg.LLMAPIKey != "" {
		llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, logger)
		interpreter = service.NewInterpreter(llmClient, cfg.LLMScoreThreshold, service.DefaultRetryConfig(), logger)
	}

	svc := service.NewInterviewService(store, service.Catalogs{
		Questions: questions,
		Roles:     roles,
		Stages:    stages,
		Signals:   signals,
	}, interpreter, logger)

	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("Test de orientación de carrera IT - Modo interactivo")
	fmt.Println(strings.Repeat("=", 60))

	all := svc.Questions()
	fmt.Printf("\nCargadas %d preguntas (banco %s).\n", len(all), questions.Version())
	fmt.Println("Responde cada pregunta eligiendo una opción.")
	fmt.Println(strings.Repeat("-", 60))

	sess, err := svc.Start(ctx)
	if err != nil {
		log.Fatalf("crear sesion: %v", err)
	}

	for i, q := range all {
		fmt.Printf("\nPregunta %d/%d [%s]\n%s\n\n", i+1, len(all), q.ThematicBlock, q.Text)
		for j, opt := range q.AnswerOptions {
			fmt.Printf("  %d. %s\n", j+1, opt.Text)
		}

		for {
			fmt.Printf("\nTu eleccion (1-%d): ", len(q.AnswerOptions))
			line, err := reader.ReadString('\n')
			if err != nil {
				log.Fatalf("leer input: %v", err)
			}
			idx, convErr := strconv.Atoi(strings.TrimSpace(line))
			if convErr != nil || idx < 1 || idx > len(q.AnswerOptions) {
				fmt.Printf("Por favor ingresa un numero entre 1 y %d.\n", len(q.AnswerOptions))
				continue
			}
			if _, err := svc.Submit(ctx, sess.SessionID, q.ID, q.AnswerOptions[idx-1].ID); err != nil {
				fmt.Printf("Error guardando respuesta: %v\n", err)
				continue
			}
			break
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("Test completado. Procesando resultados...")
	fmt.Println(strings.Repeat("=", 60))

	completeCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	result, err := svc.Complete(completeCtx, sess.SessionID, false)
	if err != nil {
		log.Fatalf("completar sesion: %v", err)
	}

	fmt.Println("\nRESULTADOS")
	fmt.Println(strings.Repeat("=", 30))

	fmt.Println("\nRoles mas afines:")
	for i, rs := range result.RankedRoles {
		if i >= 5 {
			break
		}
		name := rs.RoleID
		if r, ok := roles.Role(rs.RoleID); ok {
			name = r.Title
		}
		fmt.Printf("%d. %s: %.2f\n", i+1, name, rs.Score)
	}

	fmt.Println("\nSeñales dominantes:")
	type signalCount struct {
		id    string
		count int
	}
	counts := make([]signalCount, 0, len(result.SignalProfile))
	for id, n := range result.SignalProfile {
		counts = append(counts, signalCount{id, n})
	}
	sort.Slice(counts, func(a, b int) bool {
		if counts[a].count != counts[b].count {
			return counts[a].count > counts[b].count
		}
		return counts[a].id < counts[b].id
	})
	for i, sc := range counts {
		if i >= 5 {
			break
		}
		name := sc.id
		if s, ok := signals.Signal(sc.id); ok {
			name = s.Name
		}
		fmt.Printf("%d. %s: %d\n", i+1, name, sc.count)
	}

	if result.StageRecommendation != nil {
		fmt.Println("\n" + strings.Repeat("=", 60))
		fmt.Printf("ETAPA RECOMENDADA: %s\n", result.StageRecommendation.PrimaryStageName)
		if result.StageRecommendation.WhatUserWillSee != "" {
			fmt.Println(result.StageRecommendation.WhatUserWillSee)
		}
	}

	if result.Interpretation != nil {
		fmt.Println("\n" + strings.Repeat("=", 60))
		fmt.Println("INTERPRETACION")
		fmt.Println(strings.Repeat("=", 60))
		fmt.Printf("\nRECOMENDACION: %s\n", result.Interpretation.PrimaryRecommendation)
		fmt.Printf("\nEXPLICACION:\n%s\n", result.Interpretation.Explanation)
		if result.Interpretation.SignalAnalysis != "" {
			fmt.Printf("\nANALISIS DE SEÑALES:\n%s\n", result.Interpretation.SignalAnalysis)
		}
		if len(result.Interpretation.AlternativeRoles) > 0 {
			fmt.Printf("\nRoles alternativos: %s\n", strings.Join(result.Interpretation.AlternativeRoles, ", "))
		}
		if result.Interpretation.DifferentiationCriteria != "" {
			fmt.Printf("\nCriterios de eleccion:\n%s\n", result.Interpretation.DifferentiationCriteria)
		}
	} else {
		fmt.Println("\nInterpretacion no disponible (sin API key o error del proveedor).")
	}

	if len(result.Warnings) > 0 {
		fmt.Printf("\nAdvertencias: %s\n", strings.Join(result.Warnings, ", "))
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("Gracias por completar el test.")
}
