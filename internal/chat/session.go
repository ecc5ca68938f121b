// Package chat owns the live conversation: one Session per user per
// sitting, holding the transcript and driving the feedback-learning flows.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"autoasesor/internal/agent"
	"autoasesor/internal/llm"
	"autoasesor/internal/metrics"
	"autoasesor/internal/prompt"
	"autoasesor/internal/storage"
)

// Store is the slice of the record store a session needs.
type Store interface {
	CreateUser(userID, username string) (bool, error)
	GetAllRules() (string, error)
	SaveRule(text, category string, score float64) (int64, error)
	HasRule(text string) (bool, error)
	GetUserMemory(userID string) (string, error)
	SaveUserMemory(userID, context string) (int64, error)
}

// ErrEmptyConversation is returned when feedback arrives before any
// completed exchange.
var ErrEmptyConversation = errors.New("the conversation has no exchanges to learn from")

const (
	FeedbackHelpful    = "util"
	FeedbackNotHelpful = "no_util"
)

// FeedbackOutcome reports what happened to a candidate rule after negative
// feedback.
type FeedbackOutcome struct {
	Result    agent.Result
	Persisted bool
	Duplicate bool
}

// Session is the explicitly owned conversation state: created at login,
// closed at logout. The transcript is never shared across sessions; the
// system message in slot 0 is kept current after every rule or memory
// write.
type Session struct {
	userID     string
	store      Store
	responder  *agent.Responder
	summarizer *agent.Summarizer
	optimizer  *agent.Optimizer
	recorder   storage.Recorder // optional
	logger     *log.Logger

	transcript   []llm.Message
	lastQuestion string
	lastAnswer   string
	exchanges    int
	summarized   bool
	closed       bool
}

// NewSession registers the user if needed, composes the system prompt from
// the stored rules and the user's memory, and seeds the transcript.
func NewSession(userID, username string, st Store, client llm.Client, rec storage.Recorder, logger *log.Logger) (*Session, error) {
	if logger == nil {
		logger = log.Default()
	}
	created, err := st.CreateUser(userID, username)
	if err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}
	if created {
		logger.Info("usuario registrado", "user", userID)
	}

	s := &Session{
		userID:     userID,
		store:      st,
		responder:  agent.NewResponder(client),
		summarizer: agent.NewSummarizer(client),
		optimizer:  agent.NewOptimizer(client, logger),
		recorder:   rec,
		logger:     logger,
	}
	if err := s.refreshSystemPrompt(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) UserID() string { return s.userID }

// Transcript returns a copy of the current transcript.
func (s *Session) Transcript() []llm.Message {
	out := make([]llm.Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

func (s *Session) Metrics() metrics.ConversationMetrics {
	return metrics.Calculate(s.transcript)
}

// refreshSystemPrompt rebuilds the system message from the current store
// state. Must run after every rule or memory write; a stale prompt would
// keep answering under outdated conditioning.
func (s *Session) refreshSystemPrompt() error {
	rules, err := s.store.GetAllRules()
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	memory, err := s.store.GetUserMemory(s.userID)
	if err != nil {
		return fmt.Errorf("load memory: %w", err)
	}
	sys := llm.System(prompt.BuildSystemPrompt(rules, memory))
	if len(s.transcript) == 0 {
		s.transcript = []llm.Message{sys}
		return nil
	}
	s.transcript[0] = sys
	return nil
}

// Ask runs one turn: append the question, get the assistant's reply, append
// it. A failed call aborts only this turn; the pending question is dropped
// so the transcript never holds an unanswered user message.
func (s *Session) Ask(ctx context.Context, question string) (string, error) {
	s.transcript = append(s.transcript, llm.User(question))
	answer, err := s.responder.Respond(ctx, s.transcript)
	if err != nil {
		s.transcript = s.transcript[:len(s.transcript)-1]
		return "", err
	}
	s.transcript = append(s.transcript, llm.Assistant(answer))
	s.lastQuestion = question
	s.lastAnswer = answer
	s.exchanges++

	s.record(storage.Event{
		Timestamp:         time.Now(),
		UserID:            s.userID,
		UserMessage:       question,
		AssistantResponse: answer,
	})
	return answer, nil
}

// PositiveFeedback summarizes the whole conversation into a memory entry.
// Positive feedback vouches for the transcript as a whole, so the summary
// is persisted without validation.
func (s *Session) PositiveFeedback(ctx context.Context) (string, error) {
	if s.exchanges == 0 {
		return "", ErrEmptyConversation
	}
	summary, err := s.summarizer.Summarize(ctx, s.transcript)
	if err != nil {
		return "", err
	}
	if _, err := s.store.SaveUserMemory(s.userID, summary); err != nil {
		return "", err
	}
	s.summarized = true

	s.record(storage.Event{
		Timestamp:         time.Now(),
		UserID:            s.userID,
		UserMessage:       s.lastQuestion,
		AssistantResponse: s.lastAnswer,
		Feedback:          FeedbackHelpful,
	})
	if err := s.refreshSystemPrompt(); err != nil {
		return "", err
	}
	return summary, nil
}

// NegativeFeedback runs the optimizer over the transcript and persists the
// candidate rule when its validation score reaches the threshold. An exact
// duplicate of an existing rule is not stored again.
func (s *Session) NegativeFeedback(ctx context.Context) (FeedbackOutcome, error) {
	res, err := s.optimizer.Optimize(ctx, s.transcript)
	if err != nil {
		return FeedbackOutcome{}, err
	}
	out := FeedbackOutcome{Result: res}

	if agent.ShouldPersist(res.Score) {
		text := strings.TrimSpace(res.RuleText)
		exists, err := s.store.HasRule(text)
		if err != nil {
			return out, err
		}
		if exists {
			out.Duplicate = true
			s.logger.Info("regla duplicada, no se guarda de nuevo")
		} else {
			if _, err := s.store.SaveRule(text, string(res.Classification.Category), res.Score); err != nil {
				return out, err
			}
			out.Persisted = true
			if err := s.refreshSystemPrompt(); err != nil {
				return out, err
			}
		}
	} else {
		s.logger.Info("regla descartada, no mejora las respuestas", "score", res.Score)
	}

	s.record(storage.Event{
		Timestamp:         time.Now(),
		UserID:            s.userID,
		UserMessage:       s.lastQuestion,
		AssistantResponse: s.lastAnswer,
		Feedback:          FeedbackNotHelpful,
	})
	return out, nil
}

// Close ends the session. If the conversation saw at least one exchange and
// no summary was stored yet, a memory entry is learned automatically.
func (s *Session) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.exchanges == 0 || s.summarized {
		return nil
	}
	summary, err := s.summarizer.Summarize(ctx, s.transcript)
	if err != nil {
		return fmt.Errorf("auto-learn summary: %w", err)
	}
	if _, err := s.store.SaveUserMemory(s.userID, summary); err != nil {
		return fmt.Errorf("auto-learn persist: %w", err)
	}
	s.logger.Info("memoria de la conversación guardada", "user", s.userID)
	return nil
}

func (s *Session) record(ev storage.Event) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.AppendInteraction(ev); err != nil {
		// the interaction log is best-effort, never abort a turn over it
		s.logger.Warn("no se pudo registrar la interacción", "error", err)
	}
}
