package alert

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"PriceStation/internal/statefile"
)

// State remembers what has already been notified. Keys are
// "<symbol>_<type>" → observation timestamp and "summary_sent_<slot>" → date.
type State struct {
	path   string
	mu     sync.Mutex
	values map[string]string
}

// LoadState reads the state file. A missing or unreadable file starts empty.
// An empty path keeps the state in memory only.
func LoadState(path string) *State {
	s := &State{path: path, values: make(map[string]string)}
	if path == "" {
		return s
	}
	if _, err := statefile.Load(path, &s.values); err != nil {
		log.Printf("[WARN] alert state %s unreadable, starting empty: %v", path, err)
		s.values = make(map[string]string)
	}
	if s.values == nil {
		s.values = make(map[string]string)
	}
	return s
}

// Get returns the value stored under key.
func (s *State) Get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}

// Set stores value under key and saves the file immediately.
func (s *State) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	if s.path == "" {
		return nil
	}
	if err := statefile.Save(s.path, s.values); err != nil {
		return fmt.Errorf("save alert state: %w", err)
	}
	return nil
}

// Keys returns the stored keys in order.
func (s *State) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Scratch returns an in-memory copy. Changes to it are never saved.
func (s *State) Scratch() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &State{values: make(map[string]string, len(s.values))}
	for k, v := range s.values {
		c.values[k] = v
	}
	return c
}
