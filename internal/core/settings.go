package core

import (
	"strconv"
	"sync"
)

// DefaultMercyLimit bounds how many times a non-administrator may poke the
// admin console before being banned. Overridden by the mercy_limit setting.
const DefaultMercyLimit = 2

// Settings is the in-memory view of the persistent key/value table.
type Settings struct {
	mu     sync.Mutex
	values map[string]string
}

func NewSettings() *Settings {
	return &Settings{values: make(map[string]string)}
}

func (s *Settings) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// GetInt parses the value under key, falling back to def when the key is
// absent or malformed.
func (s *Settings) GetInt(key string, def int) int {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (s *Settings) Set(key, value string) {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
}

func (s *Settings) Unset(key string) {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
}

func (s *Settings) All() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
