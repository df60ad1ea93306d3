package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ziadkadry99/molscope/internal/llm"
	"github.com/ziadkadry99/molscope/internal/markup"
	"github.com/ziadkadry99/molscope/internal/session"
)

// ErrEmptyQuestion is returned for a blank question.
var ErrEmptyQuestion = errors.New("chat: empty question")

// StateSource supplies the published session state.
type StateSource interface {
	State() session.State
}

// Store persists transcripts.
type Store interface {
	AppendTurns(ctx context.Context, sessionID string, turns ...Turn) error
	Turns(ctx context.Context, sessionID string, limit int) ([]Turn, error)
}

// Reply is an answered question.
type Reply struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
	HTML      string `json:"html"`
	Model     string `json:"model,omitempty"`
}

// Service answers questions about the current session.
type Service struct {
	provider llm.Provider
	states   StateSource
	store    Store
	renderer *markup.Renderer
	maxTurns int
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a Service. A nil store keeps transcripts in memory.
func NewService(provider llm.Provider, states StateSource, store Store, maxTurns int, logger *zap.Logger) *Service {
	if store == nil {
		store = NewMemoryStore()
	}
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		provider: provider,
		states:   states,
		store:    store,
		renderer: markup.New(""),
		maxTurns: maxTurns,
		logger:   logger,
		now:      time.Now,
	}
}

// NewSessionID returns a fresh transcript id.
func NewSessionID() string {
	return uuid.NewString()
}

// Ask sends question with the session context and recent history, then
// records both turns. An empty sessionID starts a new transcript.
func (s *Service) Ask(ctx context.Context, sessionID, question string) (*Reply, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if sessionID == "" {
		sessionID = NewSessionID()
	}

	history, err := s.store.Turns(ctx, sessionID, s.maxTurns)
	if err != nil {
		return nil, fmt.Errorf("loading transcript: %w", err)
	}

	msgs := BuildMessages(s.states.State(), history, question, s.maxTurns)
	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{Messages: msgs, Temperature: 0.3})
	if err != nil {
		return nil, fmt.Errorf("asking %s: %w", s.provider.Name(), err)
	}

	html, err := s.renderer.Render(resp.Content)
	if err != nil {
		return nil, err
	}

	now := s.now()
	err = s.store.AppendTurns(ctx, sessionID,
		Turn{Role: llm.RoleUser, Content: question, At: now},
		Turn{Role: llm.RoleAssistant, Content: resp.Content, HTML: html, At: now},
	)
	if err != nil {
		s.logger.Warn("failed to save chat turns", zap.String("session", sessionID), zap.Error(err))
	}

	s.logger.Debug("chat answered",
		zap.String("session", sessionID),
		zap.Int("history", len(history)),
		zap.Int("input_tokens", resp.InputTokens),
		zap.Int("output_tokens", resp.OutputTokens))

	return &Reply{SessionID: sessionID, Content: resp.Content, HTML: html, Model: resp.Model}, nil
}

// Transcript returns up to limit of the most recent turns of a session.
func (s *Service) Transcript(ctx context.Context, sessionID string, limit int) ([]Turn, error) {
	return s.store.Turns(ctx, sessionID, limit)
}

// MemoryStore keeps transcripts in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	turns map[string][]Turn
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{turns: make(map[string][]Turn)}
}

func (m *MemoryStore) AppendTurns(_ context.Context, sessionID string, turns ...Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns[sessionID] = append(m.turns[sessionID], turns...)
	return nil
}

func (m *MemoryStore) Turns(_ context.Context, sessionID string, limit int) ([]Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.turns[sessionID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return append([]Turn(nil), all...), nil
}
