// Package prompt assembles the assistant's system instruction.
package prompt

// Base is the minimal instruction the assistant starts from. Learned rules
// and user memory grow the prompt over time; the base stays fixed.
const Base = `Eres un asistente virtual de Kavak.

Kavak es una plataforma de compra y venta de autos seminuevos.

Tu trabajo es ayudar a los usuarios con sus preguntas sobre autos.

Sé amigable y haz preguntas para entender mejor lo que necesitan.`

// BuildSystemPrompt combines the base instruction with the learned rules and
// the user's memory. Pure and deterministic: base, then rules, then memory,
// with either optional block omitted entirely when empty. Callers must
// rebuild after any rule or memory write; nothing invalidates stale copies
// for them.
func BuildSystemPrompt(rules, memory string) string {
	p := Base
	if rules != "" {
		p += "\n\nREGLAS ADICIONALES:\n" + rules
	}
	if memory != "" {
		p += "\n\n" + memory
	}
	return p
}
