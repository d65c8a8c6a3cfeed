package settings

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory is an in-process store used in tests and for running without a
// database.
type Memory struct {
	mu     sync.RWMutex
	global map[string]string
	chats  map[string]map[string]json.RawMessage
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		global: make(map[string]string),
		chats:  make(map[string]map[string]json.RawMessage),
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.global[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.global[key] = value
	return nil
}

func (m *Memory) GetChat(_ context.Context, chatID, key string, out any) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	chat, ok := m.chats[chatID]
	if !ok {
		return false, nil
	}
	raw, ok := chat[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, out)
}

func (m *Memory) SetChat(_ context.Context, chatID, key string, val any) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	chat, ok := m.chats[chatID]
	if !ok {
		chat = make(map[string]json.RawMessage)
		m.chats[chatID] = chat
	}
	chat[key] = raw
	return nil
}
