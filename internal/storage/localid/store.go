// Package localid persists the device's anonymous identifier: one string in
// a local state file, the fallback identity when the backend resolves no
// principal.
package localid

import (
	crand "crypto/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Store reads and writes the anonymous identifier. Storage failures never
// surface to callers: the store degrades to an in-memory identifier that
// lives for this session only.
type Store struct {
	path string

	mu  sync.Mutex
	mem string // ephemeral fallback when the file is unusable
}

// New returns a store backed by path. An empty path picks a default under
// the user config dir; if even that is unavailable the store is purely
// in-memory.
func New(path string) *Store {
	if path == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			path = filepath.Join(dir, "bookhub", "anon_id")
		}
	}
	return &Store{path: path}
}

// Get returns the previously generated identifier for this device, if any.
func (s *Store) Get() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get()
}

func (s *Store) get() (string, bool) {
	if s.mem != "" {
		return s.mem, true
	}
	if s.path == "" {
		return "", false
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		return "", false
	}
	id := strings.TrimSpace(string(b))
	if id == "" {
		return "", false
	}
	return id, true
}

// GetOrCreate returns the existing identifier or generates, persists, and
// returns a new one. No error path: if the file cannot be written the new
// identifier is kept in memory and regenerated next session.
func (s *Store) GetOrCreate() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.get(); ok {
		return id
	}
	id := "anon-" + randSuffix(7)
	if s.path != "" {
		if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err == nil {
			if err := os.WriteFile(s.path, []byte(id+"\n"), 0o600); err == nil {
				return id
			}
		}
		log.Debug().Str("path", s.path).Msg("anon id not persisted; keeping in memory")
	}
	s.mem = id
	return id
}

// randSuffix draws n characters from crypto/rand. Collision across devices
// is unlikely, which is all the contract asks; there is no central check.
func randSuffix(n int) string {
	b := make([]byte, n)
	if _, err := crand.Read(b); err != nil {
		// crypto/rand failing is effectively fatal elsewhere; fall back to
		// a fixed marker rather than panic in an identity path.
		return strings.Repeat("x", n)
	}
	out := make([]byte, n)
	for i, v := range b {
		out[i] = alphabet[int(v)%len(alphabet)]
	}
	return string(out)
}
