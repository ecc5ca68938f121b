// Package evaluation measures whether the learned rules actually improve
// answer quality, by running the canonical question set with and without
// rules and scoring both passes with an LLM judge.
package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"autoasesor/internal/llm"
	"autoasesor/internal/prompt"
	"autoasesor/internal/store"
)

// Store is the slice of the record store the harness needs. The study
// stages and suppresses rules but must leave the store as it found it.
type Store interface {
	ListRules() ([]store.Rule, error)
	ClearRules() error
	SaveRule(text, category string, score float64) (int64, error)
	HasRule(text string) (bool, error)
	GetAllRules() (string, error)
}

// QuestionResult is one scored answer.
type QuestionResult struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Score    int    `json:"score"`
	Reason   string `json:"razon"`
}

// PassResult aggregates one full pass over the question set.
type PassResult struct {
	Label     string           `json:"label"`
	Results   []QuestionResult `json:"results"`
	AvgScore  float64          `json:"avg_score"`
	Histogram map[int]int      `json:"histogram"`
}

// QuestionDelta compares one question across the two passes.
type QuestionDelta struct {
	Question      string `json:"question"`
	BaselineScore int    `json:"baseline_score"`
	ImprovedScore int    `json:"improved_score"`
	Delta         int    `json:"delta"`
}

// Report is the study artifact, written once per run and never mutated.
type Report struct {
	Timestamp           string          `json:"timestamp"`
	Baseline            PassResult      `json:"baseline"`
	Improved            PassResult      `json:"improved"`
	PerQuestion         []QuestionDelta `json:"per_question"`
	AbsoluteImprovement float64         `json:"mejora_absoluta"`
	RelativeImprovement float64         `json:"mejora_porcentual"`
	Verdict             string          `json:"conclusion"`
}

// Harness runs the comparative study.
type Harness struct {
	llm       llm.Client
	store     Store
	logger    *log.Logger
	reportDir string
	questions []string
}

func NewHarness(client llm.Client, st Store, reportDir string, logger *log.Logger) *Harness {
	if logger == nil {
		logger = log.Default()
	}
	return &Harness{
		llm:       client,
		store:     st,
		logger:    logger,
		reportDir: reportDir,
		questions: Questions,
	}
}

// Run executes the baseline pass with rules suppressed, stages the sample
// rules, executes the improved pass, then restores the original rule set.
// The restore runs even when a pass fails midway.
func (h *Harness) Run(ctx context.Context) (*Report, error) {
	snapshot, err := h.store.ListRules()
	if err != nil {
		return nil, fmt.Errorf("snapshot rules: %w", err)
	}
	defer h.restore(snapshot)

	if err := h.store.ClearRules(); err != nil {
		return nil, fmt.Errorf("suppress rules: %w", err)
	}
	h.logger.Info("evaluación baseline sin reglas", "preguntas", len(h.questions))
	baselinePrompt := prompt.BuildSystemPrompt("", "")
	baseline, err := h.runPass(ctx, "baseline", baselinePrompt)
	if err != nil {
		return nil, err
	}

	for _, rule := range SampleRules {
		exists, err := h.store.HasRule(rule)
		if err != nil {
			return nil, fmt.Errorf("stage sample rule: %w", err)
		}
		if !exists {
			if _, err := h.store.SaveRule(rule, "general", 0); err != nil {
				return nil, fmt.Errorf("stage sample rule: %w", err)
			}
		}
	}

	rules, err := h.store.GetAllRules()
	if err != nil {
		return nil, fmt.Errorf("load staged rules: %w", err)
	}
	h.logger.Info("evaluación mejorada con reglas de ejemplo", "reglas", len(SampleRules))
	improved, err := h.runPass(ctx, "mejorado", prompt.BuildSystemPrompt(rules, ""))
	if err != nil {
		return nil, err
	}

	report := h.compare(baseline, improved)
	if h.reportDir != "" {
		if err := h.writeReport(report); err != nil {
			return report, fmt.Errorf("write report: %w", err)
		}
	}
	return report, nil
}

// restore puts the persisted rule set back exactly as content: text,
// category and score survive, row ids may differ.
func (h *Harness) restore(snapshot []store.Rule) {
	if err := h.store.ClearRules(); err != nil {
		h.logger.Error("no se pudieron limpiar las reglas de prueba", "error", err)
		return
	}
	for _, r := range snapshot {
		if _, err := h.store.SaveRule(r.Text, r.Category, r.ValidationScore); err != nil {
			h.logger.Error("no se pudo restaurar una regla", "error", err)
		}
	}
}

func (h *Harness) runPass(ctx context.Context, label, systemPrompt string) (PassResult, error) {
	pass := PassResult{Label: label, Histogram: make(map[int]int)}
	total := 0

	for i, question := range h.questions {
		answer, err := h.answer(ctx, systemPrompt, question)
		if err != nil {
			return pass, fmt.Errorf("pass %s question %d: %w", label, i+1, err)
		}
		score, reason := h.judge(ctx, question, answer)
		total += score
		pass.Histogram[score]++
		pass.Results = append(pass.Results, QuestionResult{
			Question: question,
			Answer:   answer,
			Score:    score,
			Reason:   reason,
		})
		h.logger.Debug("pregunta evaluada", "pass", label, "n", i+1, "score", score)
	}

	pass.AvgScore = float64(total) / float64(len(h.questions))
	return pass, nil
}

func (h *Harness) answer(ctx context.Context, systemPrompt, question string) (string, error) {
	resp, err := h.llm.Generate(ctx, []llm.Message{
		llm.System(systemPrompt),
		llm.User(question),
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// judge scores one answer 1-5 with a rationale. When the model does not
// return parseable JSON, the deterministic keyword heuristic takes over so
// the study always completes.
func (h *Harness) judge(ctx context.Context, question, answer string) (int, string) {
	p := fmt.Sprintf(`Eres un evaluador experto de chatbots de servicio al cliente.

Evalúa la siguiente respuesta del chatbot de Kavak en una escala de 1-5:

PREGUNTA DEL USUARIO:
%s

RESPUESTA DEL BOT:
%s

CRITERIOS DE EVALUACIÓN:
1. RELEVANCIA: ¿La respuesta aborda directamente la pregunta?
2. ESPECIFICIDAD: ¿Incluye datos concretos (precios, plazos, números)?
3. COMPLETITUD: ¿Proporciona información suficiente?
4. CLARIDAD: ¿Es fácil de entender?

ESCALA:
5 - EXCELENTE: Respuesta completa, específica y muy útil
4 - BUENA: Respuesta útil con algunos detalles específicos
3 - ACEPTABLE: Respuesta correcta pero genérica o incompleta
2 - DEFICIENTE: Respuesta vaga o parcialmente incorrecta
1 - MALA: Respuesta irrelevante o incorrecta

Responde SOLO en formato JSON:
{"score": <número 1-5>, "razon": "<explicación breve>"}`, question, answer)

	resp, err := h.llm.Generate(ctx, []llm.Message{llm.User(p)})
	if err != nil {
		h.logger.Warn("el juez no respondió, usando heurística", "error", err)
		return heuristicScore(answer)
	}

	var verdict struct {
		Score  int    `json:"score"`
		Reason string `json:"razon"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Content)), &verdict); err != nil || verdict.Score < 1 || verdict.Score > 5 {
		return heuristicScore(answer)
	}
	return verdict.Score, verdict.Reason
}

// judgeKeywords is the reduced token list the fallback scorer counts.
var judgeKeywords = []string{
	"$", "MXN", "3 meses", "3,000 km", "7 días", "240 puntos",
	"Jetta", "Versa", "Corolla", "12.9%", "24.9%",
}

func heuristicScore(answer string) (int, string) {
	lower := strings.ToLower(answer)
	count := 0
	for _, kw := range judgeKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			count++
		}
	}
	switch {
	case count >= 4:
		return 5, "Respuesta con múltiples datos específicos"
	case count >= 2:
		return 3, "Respuesta con algunos datos específicos"
	default:
		return 2, "Respuesta genérica"
	}
}

func (h *Harness) compare(baseline, improved PassResult) *Report {
	report := &Report{
		Timestamp: time.Now().Format("20060102_150405"),
		Baseline:  baseline,
		Improved:  improved,
	}

	for i := range baseline.Results {
		b, m := baseline.Results[i], improved.Results[i]
		report.PerQuestion = append(report.PerQuestion, QuestionDelta{
			Question:      b.Question,
			BaselineScore: b.Score,
			ImprovedScore: m.Score,
			Delta:         m.Score - b.Score,
		})
	}

	report.AbsoluteImprovement = improved.AvgScore - baseline.AvgScore
	if baseline.AvgScore > 0 {
		report.RelativeImprovement = report.AbsoluteImprovement / baseline.AvgScore * 100
	}
	report.Verdict = verdict(report.RelativeImprovement)
	return report
}

func verdict(relative float64) string {
	switch {
	case relative >= 20:
		return "MEJORA SIGNIFICATIVA - El sistema de aprendizaje es altamente efectivo"
	case relative >= 10:
		return "MEJORA MODERADA - El sistema de aprendizaje es efectivo"
	case relative >= 5:
		return "MEJORA LEVE - El sistema muestra potencial de mejora"
	default:
		return "SIN MEJORA SIGNIFICATIVA - Revisar estrategia de aprendizaje"
	}
}

func (h *Harness) writeReport(report *Report) error {
	if err := os.MkdirAll(h.reportDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(h.reportDir, fmt.Sprintf("evaluation_%s.json", report.Timestamp))
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	h.logger.Info("reporte de evaluación guardado", "path", path)
	return nil
}

// RenderComparison formats the study result for the console.
func RenderComparison(r *Report) string {
	var b strings.Builder

	b.WriteString("REPORTE COMPARATIVO\n\n")
	fmt.Fprintf(&b, "Baseline (sin reglas):  %.2f/5.0 (%.1f%%)\n", r.Baseline.AvgScore, r.Baseline.AvgScore*20)
	fmt.Fprintf(&b, "Mejorado (con reglas):  %.2f/5.0 (%.1f%%)\n", r.Improved.AvgScore, r.Improved.AvgScore*20)
	fmt.Fprintf(&b, "\nMejora absoluta: %+.2f puntos\n", r.AbsoluteImprovement)
	fmt.Fprintf(&b, "Mejora relativa: %+.1f%%\n\n", r.RelativeImprovement)

	var better, same, worse int
	for _, d := range r.PerQuestion {
		switch {
		case d.Delta > 0:
			better++
		case d.Delta < 0:
			worse++
		default:
			same++
		}
		fmt.Fprintf(&b, "[%d/5 → %d/5] %s\n", d.BaselineScore, d.ImprovedScore, d.Question)
	}
	fmt.Fprintf(&b, "\nResumen: %d mejoras, %d sin cambio, %d retrocesos\n", better, same, worse)

	b.WriteString("\nDistribución de scores (baseline | mejorado):\n")
	for score := 5; score >= 1; score-- {
		fmt.Fprintf(&b, "  %d: %2d | %2d\n", score, r.Baseline.Histogram[score], r.Improved.Histogram[score])
	}

	fmt.Fprintf(&b, "\n%s\n", r.Verdict)
	return b.String()
}
