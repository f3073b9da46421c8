package service

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"sync"

	"github.com/set-night/vcplayer/internal/config"
	"github.com/set-night/vcplayer/internal/domain"
)

// AssistantPool owns the assistant accounts and the sticky room assignments.
type AssistantPool struct {
	mu         sync.RWMutex
	assistants map[string]*Assistant
	names      []string

	// assignMu serializes first-time assignment so a room never gets two assistants.
	assignMu sync.Mutex

	store Store
	state *CallState
	pick  func(n int) int
}

func NewAssistantPool(store Store, state *CallState) *AssistantPool {
	return &AssistantPool{
		assistants: make(map[string]*Assistant),
		store:      store,
		state:      state,
		pick:       rand.IntN,
	}
}

// AssistantName is the key an account's room assignments are stored under.
// It follows the account id so assignments survive endpoint reordering.
func AssistantName(accountID int64) string {
	return "assistant" + strconv.FormatInt(accountID, 10)
}

func (p *AssistantPool) Register(a *Assistant) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.assistants[a.Name]; !ok {
		p.names = append(p.names, a.Name)
	}
	p.assistants[a.Name] = a
}

func (p *AssistantPool) Get(name string) (*Assistant, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	a, ok := p.assistants[name]
	return a, ok
}

// Assistants returns the registered assistants in registration order.
func (p *AssistantPool) Assistants() []*Assistant {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Assistant, 0, len(p.names))
	for _, name := range p.names {
		out = append(out, p.assistants[name])
	}
	return out
}

// Resolve returns the assistant serving chatID, assigning one if needed.
func (p *AssistantPool) Resolve(ctx context.Context, chatID int64) (*Assistant, error) {
	if chatID == config.HealthCheckRoom {
		return p.random()
	}

	if a, ok := p.cached(chatID); ok {
		return a, nil
	}

	p.assignMu.Lock()
	defer p.assignMu.Unlock()

	if a, ok := p.cached(chatID); ok {
		return a, nil
	}

	name, err := p.store.GetAssignment(ctx, chatID)
	if err != nil {
		slog.Warn("get assistant assignment", "chat_id", chatID, "error", err)
	} else if a, ok := p.Get(name); ok && name != "" {
		p.state.SetAssignment(chatID, name)
		return a, nil
	}

	a, err := p.random()
	if err != nil {
		return nil, err
	}
	if err := p.store.SetAssignment(ctx, chatID, a.Name); err != nil {
		slog.Warn("save assistant assignment", "chat_id", chatID, "assistant", a.Name, "error", err)
	}
	p.state.SetAssignment(chatID, a.Name)
	slog.Info("assistant assigned", "chat_id", chatID, "assistant", a.Name)
	return a, nil
}

func (p *AssistantPool) cached(chatID int64) (*Assistant, bool) {
	name, ok := p.state.Assignment(chatID)
	if !ok {
		return nil, false
	}
	return p.Get(name)
}

func (p *AssistantPool) random() (*Assistant, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.names) == 0 {
		return nil, domain.ErrNoAssistants
	}
	return p.assistants[p.names[p.pick(len(p.names))]], nil
}
