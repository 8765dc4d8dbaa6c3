// Package session keeps per-worker conversation memory on disk. Each
// session is one JSONL file: a header line followed by one line per turn.
package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DefaultMaxStored bounds how many turns a session keeps on disk.
const DefaultMaxStored = 200

// Message is one remembered turn. Name identifies the worker that produced
// an assistant turn.
type Message struct {
	Role      string    `json:"role"`
	Name      string    `json:"name,omitempty"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Session is the memory of one worker within one conversation.
type Session struct {
	Key       string
	Messages  []Message
	CreatedAt time.Time
	UpdatedAt time.Time
	mu        sync.RWMutex
}

type header struct {
	Type      string    `json:"_type"`
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates an empty session.
func NewSession(key string) *Session {
	now := time.Now()
	return &Session{Key: key, Messages: []Message{}, CreatedAt: now, UpdatedAt: now}
}

// AddMessage appends a turn.
func (s *Session) AddMessage(role, name, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.Messages = append(s.Messages, Message{Role: role, Name: name, Content: content, Timestamp: now})
	s.UpdatedAt = now
}

// GetHistory returns a copy of the last n turns, or all of them when n <= 0.
func (s *Session) GetHistory(n int) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := 0
	if n > 0 && len(s.Messages) > n {
		start = len(s.Messages) - n
	}
	out := make([]Message, len(s.Messages)-start)
	copy(out, s.Messages[start:])
	return out
}

// Len returns the number of remembered turns.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Messages)
}

// Manager caches sessions and persists them under a directory. An empty
// directory keeps everything in memory.
type Manager struct {
	dir       string
	maxStored int
	cache     map[string]*Session
	mu        sync.Mutex
}

// NewManager creates a manager storing sessions in dir.
func NewManager(dir string) *Manager {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Warn("Session dir unavailable, memory only", "dir", dir, "error", err)
			dir = ""
		}
	}
	return &Manager{dir: dir, maxStored: DefaultMaxStored, cache: make(map[string]*Session)}
}

// GetOrCreate returns the cached session for key, loading it from disk the
// first time it is asked for.
func (m *Manager) GetOrCreate(key string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.cache[key]; ok {
		return s
	}
	s, err := m.load(key)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Session load failed, starting fresh", "key", key, "error", err)
		}
		s = NewSession(key)
	}
	m.cache[key] = s
	return s
}

// Save trims s to the stored limit and rewrites its file atomically.
func (m *Manager) Save(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[s.Key] = s

	s.mu.Lock()
	if m.maxStored > 0 && len(s.Messages) > m.maxStored {
		s.Messages = append([]Message(nil), s.Messages[len(s.Messages)-m.maxStored:]...)
	}
	s.mu.Unlock()

	if m.dir == "" {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	path := m.path(s.Key)
	tmp, err := os.CreateTemp(m.dir, ".session-*")
	if err != nil {
		return fmt.Errorf("create session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	if err := enc.Encode(header{Type: "session", Key: s.Key, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt}); err != nil {
		tmp.Close()
		return fmt.Errorf("write session header: %w", err)
	}
	for _, msg := range s.Messages {
		if err := enc.Encode(msg); err != nil {
			tmp.Close()
			return fmt.Errorf("write session message: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

// path maps a key such as "slack:C1:U1:tracer" to a file name that cannot
// leave the sessions directory.
func (m *Manager) path(key string) string {
	safe := strings.NewReplacer(":", "_", "/", "_", "\\", "_", "..", "_").Replace(key)
	return filepath.Join(m.dir, filepath.Base(safe)+".jsonl")
}

func (m *Manager) load(key string) (*Session, error) {
	if m.dir == "" {
		return nil, os.ErrNotExist
	}
	f, err := os.Open(m.path(key))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s := NewSession(key)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var h header
		if json.Unmarshal(line, &h) == nil && h.Type == "session" {
			s.CreatedAt, s.UpdatedAt = h.CreatedAt, h.UpdatedAt
			continue
		}
		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			continue
		}
		s.Messages = append(s.Messages, msg)
	}
	return s, sc.Err()
}
