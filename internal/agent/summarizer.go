package agent

import (
	"context"
	"fmt"

	"autoasesor/internal/llm"
)

// memoryPrompt instructs the model to compress a whole conversation into a
// short memory entry. The output is trusted verbatim: positive feedback
// vouches for the transcript, so no validation pass is applied here.
const memoryPrompt = `Eres un agente resumidor experto. Analiza esta conversación y extrae TODA la información útil del usuario.

INFORMACIÓN A CAPTURAR:

1. NECESIDAD PRINCIPAL:
   - ¿Qué busca? (comprar auto, vender auto, información, financiamiento, etc.)
   - ¿Por qué? (necesidad familiar, trabajo, primer auto, cambio, etc.)

2. PREFERENCIAS ESPECÍFICAS:
   - Tipo de vehículo (sedán, SUV, hatchback, pickup, etc.)
   - Marca(s) preferida(s)
   - Modelo(s) de interés
   - Año deseado
   - Presupuesto (mínimo y máximo)
   - Características importantes (espacio, economía, potencia, etc.)

3. CONTEXTO DEL USUARIO:
   - Experiencia previa con autos
   - Uso previsto (ciudad, carretera, familiar, trabajo)
   - Urgencia (explorando, comparando, listo para comprar)
   - Preocupaciones mencionadas (garantía, financiamiento, documentos, etc.)

4. PREGUNTAS REALIZADAS:
   - Temas sobre los que preguntó
   - Dudas específicas que tiene

Resume TODO en 2-4 frases concisas pero COMPLETAS.

EJEMPLOS:

Bueno: "Usuario busca SUV familiar para 5 personas, uso ciudad y viajes fin de semana. Presupuesto $300k-$400k, prefiere Toyota RAV4 o Mazda CX-5. Preguntó por garantía y financiamiento. Está en etapa de exploración, primer auto familiar."

Malo: "Usuario busca auto."

Genera el resumen COMPLETO:`

// Summarizer condenses a transcript into one memory entry.
type Summarizer struct {
	llm llm.Client
}

func NewSummarizer(client llm.Client) *Summarizer {
	return &Summarizer{llm: client}
}

func (s *Summarizer) Summarize(ctx context.Context, transcript []llm.Message) (string, error) {
	messages := make([]llm.Message, 0, len(transcript)+1)
	messages = append(messages, llm.System(memoryPrompt))
	messages = append(messages, transcript...)

	resp, err := s.llm.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return resp.Content, nil
}
