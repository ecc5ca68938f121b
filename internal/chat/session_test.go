package chat

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoasesor/internal/llm"
	"autoasesor/internal/llm/llmtest"
	"autoasesor/internal/prompt"
	"autoasesor/internal/storage"
	"autoasesor/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// sessionScript answers every agent involved in a session: the responder,
// the summarizer and the three-step optimizer.
func sessionScript(rule string) func([]llm.Message) (string, error) {
	return func(messages []llm.Message) (string, error) {
		first := messages[0].Content
		last := messages[len(messages)-1].Content
		switch {
		case strings.Contains(first, "agente resumidor"):
			return "Usuario preguntó por garantías de Kavak.", nil
		case strings.Contains(last, "CATEGORÍAS POSIBLES"):
			return "incompleto", nil
		case strings.Contains(last, "Optimizador de Prompts"):
			return rule, nil
		case strings.Contains(last, "¿La Respuesta B es mejor"):
			return "si", nil
		default:
			return "respuesta del asistente", nil
		}
	}
}

func newTestSession(t *testing.T, st *store.SQLiteStore, client llm.Client, rec storage.Recorder) *Session {
	t.Helper()
	s, err := NewSession("u1", "Ana", st, client, rec, nil)
	require.NoError(t, err)
	return s
}

func TestNewSessionSeedsSystemPrompt(t *testing.T) {
	st := newTestStore(t)
	client := &llmtest.ScriptedClient{Script: sessionScript("REGLA: dar precios.")}
	s := newTestSession(t, st, client, nil)

	tr := s.Transcript()
	require.Len(t, tr, 1)
	assert.Equal(t, llm.RoleSystem, tr[0].Role)
	assert.Equal(t, prompt.Base, tr[0].Content, "empty store yields the bare base prompt")
}

func TestAskGrowsTranscript(t *testing.T) {
	st := newTestStore(t)
	client := &llmtest.ScriptedClient{Script: sessionScript("REGLA: dar precios.")}
	s := newTestSession(t, st, client, nil)

	answer, err := s.Ask(context.Background(), "¿Qué garantías tienen?")
	require.NoError(t, err)
	assert.Equal(t, "respuesta del asistente", answer)

	tr := s.Transcript()
	require.Len(t, tr, 3)
	assert.Equal(t, llm.RoleUser, tr[1].Role)
	assert.Equal(t, "¿Qué garantías tienen?", tr[1].Content)
	assert.Equal(t, llm.RoleAssistant, tr[2].Role)
}

func TestAskFailureDropsPendingQuestion(t *testing.T) {
	st := newTestStore(t)
	client := &llmtest.ScriptedClient{Script: func([]llm.Message) (string, error) {
		return "", fmt.Errorf("api down")
	}}
	s := newTestSession(t, st, client, nil)

	_, err := s.Ask(context.Background(), "hola")
	require.Error(t, err)
	assert.Len(t, s.Transcript(), 1, "a failed turn must not leave an unanswered user message")
}

func TestFeedbackBeforeAnyExchange(t *testing.T) {
	st := newTestStore(t)
	client := &llmtest.ScriptedClient{Script: sessionScript("REGLA: dar precios.")}
	s := newTestSession(t, st, client, nil)

	_, err := s.PositiveFeedback(context.Background())
	assert.ErrorIs(t, err, ErrEmptyConversation)
}

func TestPositiveFeedbackSavesMemoryAndRefreshesPrompt(t *testing.T) {
	st := newTestStore(t)
	client := &llmtest.ScriptedClient{Script: sessionScript("REGLA: dar precios.")}
	s := newTestSession(t, st, client, nil)

	_, err := s.Ask(context.Background(), "¿Qué garantías tienen?")
	require.NoError(t, err)

	summary, err := s.PositiveFeedback(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Usuario preguntó por garantías de Kavak.", summary)

	entries, err := st.ListUserMemory("u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Usuario preguntó por garantías de Kavak."}, entries)

	sys := s.Transcript()[0].Content
	assert.Contains(t, sys, "HISTORIAL DE MEMORIA DEL USUARIO:")
	assert.Contains(t, sys, "- Usuario preguntó por garantías de Kavak.")
}

func TestNegativeFeedbackPersistsRule(t *testing.T) {
	st := newTestStore(t)
	rule := "REGLA: Al hablar de garantías, SIEMPRE mencionar duración y cobertura."
	client := &llmtest.ScriptedClient{Script: sessionScript(rule)}
	s := newTestSession(t, st, client, nil)

	_, err := s.Ask(context.Background(), "¿Qué garantías tienen?")
	require.NoError(t, err)

	out, err := s.NegativeFeedback(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Persisted)
	assert.False(t, out.Duplicate)
	assert.Equal(t, 1.0, out.Result.Score)

	rules, err := st.ListRules()
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, rule, rules[0].Text)
	assert.Equal(t, "incompleto", rules[0].Category)

	sys := s.Transcript()[0].Content
	assert.Contains(t, sys, "REGLAS ADICIONALES:\n"+rule)
}

func TestNegativeFeedbackSkipsDuplicateRule(t *testing.T) {
	st := newTestStore(t)
	rule := "REGLA: Al hablar de garantías, SIEMPRE mencionar duración y cobertura."
	client := &llmtest.ScriptedClient{Script: sessionScript(rule)}
	s := newTestSession(t, st, client, nil)

	_, err := s.Ask(context.Background(), "¿Qué garantías tienen?")
	require.NoError(t, err)

	out, err := s.NegativeFeedback(context.Background())
	require.NoError(t, err)
	require.True(t, out.Persisted)

	out, err = s.NegativeFeedback(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Duplicate)
	assert.False(t, out.Persisted)

	rules, err := st.ListRules()
	require.NoError(t, err)
	assert.Len(t, rules, 1, "the same rule text is stored once")
}

func TestRulesSharedAcrossUsersMemoryIsNot(t *testing.T) {
	st := newTestStore(t)
	rule := "REGLA: dar rangos de precio."
	client := &llmtest.ScriptedClient{Script: sessionScript(rule)}

	ana := newTestSession(t, st, client, nil)
	_, err := ana.Ask(context.Background(), "¿precios?")
	require.NoError(t, err)
	_, err = ana.NegativeFeedback(context.Background())
	require.NoError(t, err)
	_, err = ana.PositiveFeedback(context.Background())
	require.NoError(t, err)

	bob, err := NewSession("u2", "Bob", st, client, nil, nil)
	require.NoError(t, err)

	sys := bob.Transcript()[0].Content
	assert.Contains(t, sys, rule, "learned rules condition every user")
	assert.NotContains(t, sys, "HISTORIAL DE MEMORIA", "another user's memory must not leak")
}

func TestCloseAutoLearnsOnce(t *testing.T) {
	st := newTestStore(t)
	client := &llmtest.ScriptedClient{Script: sessionScript("REGLA: dar precios.")}
	s := newTestSession(t, st, client, nil)

	_, err := s.Ask(context.Background(), "¿Qué garantías tienen?")
	require.NoError(t, err)

	require.NoError(t, s.Close(context.Background()))
	require.NoError(t, s.Close(context.Background()), "closing twice is a no-op")

	entries, err := st.ListUserMemory("u1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCloseSkipsWhenAlreadySummarized(t *testing.T) {
	st := newTestStore(t)
	client := &llmtest.ScriptedClient{Script: sessionScript("REGLA: dar precios.")}
	s := newTestSession(t, st, client, nil)

	_, err := s.Ask(context.Background(), "¿Qué garantías tienen?")
	require.NoError(t, err)
	_, err = s.PositiveFeedback(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.Close(context.Background()))

	entries, err := st.ListUserMemory("u1")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no second summary after explicit positive feedback")
}

func TestCloseEmptyConversation(t *testing.T) {
	st := newTestStore(t)
	client := &llmtest.ScriptedClient{Script: sessionScript("REGLA: dar precios.")}
	s := newTestSession(t, st, client, nil)

	require.NoError(t, s.Close(context.Background()))

	entries, err := st.ListUserMemory("u1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestInteractionsRecorded(t *testing.T) {
	st := newTestStore(t)
	rec, err := storage.NewFileRecorder(filepath.Join(t.TempDir(), "interactions.jsonl"))
	require.NoError(t, err)
	client := &llmtest.ScriptedClient{Script: sessionScript("REGLA: dar precios.")}
	s := newTestSession(t, st, client, rec)

	_, err = s.Ask(context.Background(), "¿Qué garantías tienen?")
	require.NoError(t, err)
	_, err = s.NegativeFeedback(context.Background())
	require.NoError(t, err)

	events, err := rec.LoadInteractions()
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "u1", events[0].UserID)
	assert.Equal(t, "¿Qué garantías tienen?", events[0].UserMessage)
	assert.Empty(t, events[0].Feedback)
	assert.Equal(t, FeedbackNotHelpful, events[1].Feedback)
}
