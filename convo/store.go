// Package convo holds the conversation state for a chat session: an
// append-only ordered log of messages plus the currently selected model.
// The log is the single source of truth fed to every model call; messages
// are never mutated or removed once appended.
package convo

import (
	"fmt"
	"sync"

	"github.com/martinemde/sandchat/llm"
)

// Store is the append-only message log. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	messages []llm.Message
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Append adds a message to the end of the log. Tool-role messages must
// answer a tool call requested by an earlier assistant message; appending a
// tool message with an unknown call id is rejected.
func (s *Store) Append(msg llm.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.Role == llm.RoleTool {
		if msg.ToolCallID == "" {
			return fmt.Errorf("tool message missing tool_call_id")
		}
		if !s.hasToolCallLocked(msg.ToolCallID) {
			return fmt.Errorf("tool message references unknown tool_call_id %q", msg.ToolCallID)
		}
	}

	s.messages = append(s.messages, msg)
	return nil
}

// hasToolCallLocked reports whether any earlier assistant message requested
// the given call id. Caller must hold the lock.
func (s *Store) hasToolCallLocked(callID string) bool {
	for _, m := range s.messages {
		if m.Role != llm.RoleAssistant {
			continue
		}
		for _, tc := range m.ToolCalls {
			if tc.ID == callID {
				return true
			}
		}
	}
	return false
}

// Messages returns a copy of the full ordered log.
func (s *Store) Messages() []llm.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]llm.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages in the log.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Last returns the most recent message and true, or a zero Message and
// false when the log is empty.
func (s *Store) Last() (llm.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.messages) == 0 {
		return llm.Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}
