package convo

import (
	"fmt"
	"sync"

	"github.com/martinemde/sandchat/llm"
)

// State is the process-wide conversation state: the message log plus the
// active model identifier. It is created at session start, owned by the
// orchestrator, and discarded at session end; nothing is persisted.
type State struct {
	store *Store

	mu          sync.RWMutex
	activeModel string
}

// NewState creates a State with an empty log and the given starting model.
func NewState(model string) *State {
	return &State{
		store:       NewStore(),
		activeModel: model,
	}
}

// Store returns the underlying message log.
func (s *State) Store() *Store {
	return s.store
}

// ActiveModel returns the currently selected model identifier.
func (s *State) ActiveModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeModel
}

// SelectModel changes the active model. The change takes effect on the next
// model call; it never rewrites history. Unknown models are rejected against
// the catalog.
func (s *State) SelectModel(modelID string) error {
	info := llm.GetModelInfo(modelID)
	if info == nil {
		return fmt.Errorf("unknown model %q", modelID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeModel = info.ID
	return nil
}
