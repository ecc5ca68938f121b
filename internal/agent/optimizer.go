package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"autoasesor/internal/llm"
)

// Category classifies why a response was marked unhelpful.
type Category string

const (
	CategoryVague      Category = "vago"
	CategoryIncorrect  Category = "incorrecto"
	CategoryIncomplete Category = "incompleto"
	CategoryOffTopic   Category = "fuera_contexto"
	CategoryGeneral    Category = "general"
)

var validCategories = map[Category]bool{
	CategoryVague:      true,
	CategoryIncorrect:  true,
	CategoryIncomplete: true,
	CategoryOffTopic:   true,
	CategoryGeneral:    true,
}

// Classification carries the chosen category and whether it was genuinely
// chosen by the model or defaulted after a failed or noncompliant call.
type Classification struct {
	Category Category
	Fallback bool
}

// ValidationThreshold is the minimum score at which a candidate rule is
// worth persisting. A rule at exactly the threshold is kept.
const ValidationThreshold = 0.5

// ShouldPersist applies the persistence policy: a hard cutoff at the
// threshold, with no continuous weighting above it.
func ShouldPersist(score float64) bool {
	return score >= ValidationThreshold
}

// ErrNoExchange is returned when the transcript holds no user/assistant
// pair to learn from. Callers skip persistence for that turn.
var ErrNoExchange = errors.New("no user/assistant exchange found in transcript")

// Result is the outcome of one optimization run. Persistence is the
// caller's decision; the optimizer never touches the store.
type Result struct {
	RuleText       string
	Classification Classification
	Score          float64
}

// Optimizer turns a failed exchange into a validated candidate rule.
// Each invocation is independent; no state spans runs.
type Optimizer struct {
	llm    llm.Client
	logger *log.Logger
}

func NewOptimizer(client llm.Client, logger *log.Logger) *Optimizer {
	if logger == nil {
		logger = log.Default()
	}
	return &Optimizer{llm: client, logger: logger}
}

// Optimize runs the full pipeline: classify the error, generate a candidate
// rule, validate it by comparative judgment. Strictly sequential, no
// branching back.
func (o *Optimizer) Optimize(ctx context.Context, transcript []llm.Message) (Result, error) {
	question, answer, ok := lastExchange(transcript)
	if !ok {
		return Result{}, ErrNoExchange
	}

	o.logger.Info("analizando tipo de error")
	cls := o.Classify(ctx, question, answer)
	o.logger.Info("error categorizado", "categoria", cls.Category, "fallback", cls.Fallback)

	ruleText, err := o.GenerateRule(ctx, question, answer, cls.Category)
	if err != nil {
		return Result{}, err
	}

	o.logger.Info("validando efectividad de la regla")
	score := o.ValidateRule(ctx, ruleText, question)

	return Result{RuleText: ruleText, Classification: cls, Score: score}, nil
}

// lastExchange scans the transcript backward and takes the first assistant
// and the first user message encountered, independently of each other.
func lastExchange(transcript []llm.Message) (question, answer string, ok bool) {
	var haveQuestion, haveAnswer bool
	for i := len(transcript) - 1; i >= 0; i-- {
		switch transcript[i].Role {
		case llm.RoleAssistant:
			if !haveAnswer {
				answer = transcript[i].Content
				haveAnswer = true
			}
		case llm.RoleUser:
			if !haveQuestion {
				question = transcript[i].Content
				haveQuestion = true
			}
		}
		if haveQuestion && haveAnswer {
			return question, answer, true
		}
	}
	return "", "", false
}

// Classify asks the model for exactly one category label. Any failure or
// noncompliant output defaults to general, tagged as a fallback.
func (o *Optimizer) Classify(ctx context.Context, question, answer string) Classification {
	p := fmt.Sprintf(`Analiza esta interacción fallida y categoriza el tipo de error.

PREGUNTA: %s
RESPUESTA: %s

CATEGORÍAS POSIBLES:
- vago: Respuesta genérica sin datos específicos
- incorrecto: Información errónea o desactualizada
- incompleto: Falta información importante
- fuera_contexto: No aborda la pregunta del usuario
- general: Otro tipo de error

Responde SOLO con el nombre de la categoría (una palabra).`, question, answer)

	resp, err := o.llm.Generate(ctx, []llm.Message{llm.User(p)})
	if err != nil {
		o.logger.Warn("clasificación falló, usando categoría general", "error", err)
		return Classification{Category: CategoryGeneral, Fallback: true}
	}

	category := Category(strings.ToLower(strings.TrimSpace(resp.Content)))
	if !validCategories[category] {
		return Classification{Category: CategoryGeneral, Fallback: true}
	}
	return Classification{Category: category}
}

// GenerateRule produces the candidate corrective directive. The output is
// used verbatim as rule text.
func (o *Optimizer) GenerateRule(ctx context.Context, question, answer string, category Category) (string, error) {
	p := fmt.Sprintf(`Eres un 'Optimizador de Prompts' experto. El bot dio una respuesta que el usuario marcó como NO ÚTIL.

CONTEXTO:
- Pregunta: %s
- Respuesta fallida: %s
- Tipo de error: %s

Tu tarea es generar UNA REGLA ESPECÍFICA que enseñe al bot EXACTAMENTE qué hacer en situaciones similares.

TIPOS DE REGLAS SEGÚN ERROR:

1. Si error es "vago" → Enseña qué preguntas hacer:
   Ejemplo: "Cuando pregunten por autos, SIEMPRE preguntar: ¿Tipo de vehículo (sedán/SUV/hatchback)? ¿Marca preferida? ¿Presupuesto máximo? ¿Uso (ciudad/carretera/familiar)?"

2. Si error es "incompleto" → Enseña qué datos dar:
   Ejemplo: "Al hablar de garantías, SIEMPRE mencionar: duración (3 meses o 3,000 km), cobertura (motor, transmisión, sistema eléctrico), contacto (800-KAVAK-01)."

3. Si error es "incorrecto" → Corrige la información:
   Ejemplo: "Los precios de autos en Kavak van desde $120,000 hasta $800,000 MXN. NUNCA dar rangos fuera de estos límites sin verificar."

4. Si error es "fuera_contexto" → Enseña a enfocarse:
   Ejemplo: "Si preguntan por financiamiento, primero confirmar: ¿Ya encontraste un auto? ¿Conoces tu presupuesto? Luego explicar opciones."

5. Si error es "general" → Enseña comportamiento general:
   Ejemplo: "Cuando el usuario sea vago, hacer 3-4 preguntas específicas para entender mejor antes de dar información general."

IMPORTANTE:
- La regla debe ser ACCIONABLE (decir QUÉ hacer, no qué NO hacer)
- Debe incluir DATOS ESPECÍFICOS cuando sea posible
- Debe aplicar a situaciones similares, no solo a esta pregunta exacta

Genera la REGLA (máximo 3 líneas):`, question, answer, category)

	resp, err := o.llm.Generate(ctx, []llm.Message{llm.User(p)})
	if err != nil {
		return "", fmt.Errorf("generate rule: %w", err)
	}
	return resp.Content, nil
}

// ValidateRule A/B-tests the candidate against the original failing
// question: one answer under a minimal baseline prompt, one with the rule
// appended, then a binary judge vote. Any failure in the three-call
// subsequence recovers to a neutral 0.5 so transient errors do not
// systematically discard reasonable rules.
func (o *Optimizer) ValidateRule(ctx context.Context, ruleText, testQuestion string) float64 {
	basePrompt := "Eres un asistente de Kavak. Responde de forma útil."
	improvedPrompt := basePrompt + "\n\n" + ruleText

	without, err := o.llm.Generate(ctx, []llm.Message{
		llm.System(basePrompt),
		llm.User(testQuestion),
	})
	if err != nil {
		o.logger.Warn("validación: respuesta baseline falló", "error", err)
		return 0.5
	}

	with, err := o.llm.Generate(ctx, []llm.Message{
		llm.System(improvedPrompt),
		llm.User(testQuestion),
	})
	if err != nil {
		o.logger.Warn("validación: respuesta con regla falló", "error", err)
		return 0.5
	}

	judgePrompt := fmt.Sprintf(`Compara estas dos respuestas a la pregunta: "%s"

RESPUESTA A (sin regla): %s
RESPUESTA B (con regla): %s

¿La Respuesta B es mejor que la Respuesta A?
Responde SOLO: "si" o "no".`, testQuestion, truncate(without.Content, 200), truncate(with.Content, 200))

	judgment, err := o.llm.Generate(ctx, []llm.Message{llm.User(judgePrompt)})
	if err != nil {
		o.logger.Warn("validación: juicio falló", "error", err)
		return 0.5
	}

	verdict := strings.ToLower(strings.TrimSpace(judgment.Content))
	if strings.Contains(verdict, "si") || strings.Contains(verdict, "sí") {
		return 1.0
	}
	return 0.0
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
