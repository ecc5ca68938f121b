// Package metrics computes conversation quality metrics and the system's
// learning maturity.
package metrics

import (
	"fmt"
	"strings"

	"autoasesor/internal/llm"
	"autoasesor/internal/store"
)

// SpecificKeywords are the domain tokens that mark a response as concrete:
// warranty terms, prices, rates, named models, process details.
var SpecificKeywords = []string{
	"3 meses", "3,000 km", "7 días", "$", "MXN", "pesos",
	"12.9%", "24.9%", "10%", "enganche", "tasa",
	"Versa", "Jetta", "Corolla", "Civic", "Mazda",
	"240 puntos", "inspección", "Hub", "Kavak",
	"800-KAVAK", "SPEI", "24-48 horas", "5 minutos",
	"garantía", "financiamiento", "precio",
}

// ConversationMetrics summarizes one conversation's specificity.
type ConversationMetrics struct {
	TotalInteractions int     `json:"total_interactions"`
	ResolvedCount     int     `json:"resolved_count"`
	ResolutionRate    float64 `json:"resolution_rate"`
	AvgResponseLength float64 `json:"avg_response_length"`
	KeywordDensity    float64 `json:"keyword_density"`
	Completeness      string  `json:"completeness"`
}

// Calculate walks the transcript and scores the assistant's answers.
// A response counts as resolved when it carries at least two specific
// keywords.
func Calculate(transcript []llm.Message) ConversationMetrics {
	var userMessages, botMessages []string
	for _, msg := range transcript {
		switch msg.Role {
		case llm.RoleUser:
			userMessages = append(userMessages, msg.Content)
		case llm.RoleAssistant:
			botMessages = append(botMessages, msg.Content)
		}
	}

	m := ConversationMetrics{
		TotalInteractions: len(userMessages),
		Completeness:      "N/A",
	}
	if len(botMessages) == 0 {
		return m
	}

	var totalKeywords, totalLength int
	for _, response := range botMessages {
		count := CountKeywords(response)
		totalKeywords += count
		totalLength += len(response)
		if count >= 2 {
			m.ResolvedCount++
		}
	}

	m.ResolutionRate = float64(m.ResolvedCount) / float64(len(botMessages)) * 100
	m.AvgResponseLength = float64(totalLength) / float64(len(botMessages))
	m.KeywordDensity = float64(totalKeywords) / float64(len(botMessages))

	switch {
	case m.KeywordDensity >= 5:
		m.Completeness = "EXCELENTE"
	case m.KeywordDensity >= 3:
		m.Completeness = "BUENA"
	case m.KeywordDensity >= 1:
		m.Completeness = "REGULAR"
	default:
		m.Completeness = "BAJA"
	}
	return m
}

// CountKeywords returns how many specific keywords appear in the text
// (case-insensitive, each keyword counted once).
func CountKeywords(text string) int {
	lower := strings.ToLower(text)
	count := 0
	for _, kw := range SpecificKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			count++
		}
	}
	return count
}

// Maturity derives the learning maturity score from accumulated rules and
// memories, capped at 100.
func Maturity(stats store.Stats) int {
	score := stats.TotalRules*10 + stats.TotalMemories*2
	if score > 100 {
		score = 100
	}
	return score
}

// RenderReport produces the end-of-session text report.
func RenderReport(m ConversationMetrics, stats store.Stats) string {
	var b strings.Builder

	b.WriteString("REPORTE DE MÉTRICAS DE LA CONVERSACIÓN\n\n")
	fmt.Fprintf(&b, "Interacciones: %d\n", m.TotalInteractions)
	fmt.Fprintf(&b, "Respuestas con datos específicos: %d (%.1f%%)\n", m.ResolvedCount, m.ResolutionRate)
	fmt.Fprintf(&b, "Longitud promedio de respuestas: %.0f caracteres\n", m.AvgResponseLength)
	fmt.Fprintf(&b, "Densidad de información: %.1f datos específicos por respuesta\n", m.KeywordDensity)
	fmt.Fprintf(&b, "Nivel de completitud: %s\n\n", m.Completeness)

	b.WriteString("EVOLUCIÓN DEL SISTEMA\n\n")
	fmt.Fprintf(&b, "Reglas aprendidas: %d\n", stats.TotalRules)
	fmt.Fprintf(&b, "Usuarios registrados: %d\n", stats.TotalUsers)
	fmt.Fprintf(&b, "Memorias acumuladas: %d\n", stats.TotalMemories)

	if len(stats.ErrorDistribution) > 0 {
		b.WriteString("\nDistribución de errores categorizados:\n")
		for _, category := range []string{"vago", "incorrecto", "incompleto", "fuera_contexto", "general"} {
			if count, ok := stats.ErrorDistribution[category]; ok {
				fmt.Fprintf(&b, "- %s: %d reglas\n", category, count)
			}
		}
	}
	if stats.AvgValidationScore > 0 {
		fmt.Fprintf(&b, "\nScore promedio de validación: %.2f/1.0\n", stats.AvgValidationScore)
	}

	maturity := Maturity(stats)
	fmt.Fprintf(&b, "\nNivel de madurez del sistema: %d/100\n", maturity)
	switch {
	case maturity >= 80:
		b.WriteString("SISTEMA MADURO - El bot ha aprendido mucho de los usuarios\n")
	case maturity >= 50:
		b.WriteString("SISTEMA EN CRECIMIENTO - Aprendiendo activamente\n")
	case maturity >= 20:
		b.WriteString("SISTEMA INICIAL - Comenzando a aprender\n")
	default:
		b.WriteString("SISTEMA NUEVO - Primeras interacciones\n")
	}
	return b.String()
}
