// Package cache persists prior translations keyed by normalized question
// hash. The backing store is a whole-document snapshot: loaded once at
// construction, rewritten in full on every mutation. Caching is a performance
// optimization only: persistence failures are swallowed and a corrupt
// document yields an empty cache, never a startup failure.
package cache

import (
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// Payload is the cached portion of a translation: the SQL text and the
// optional explanation. Cached/latency flags are stamped by the caller on
// replay, never stored.
type Payload struct {
	SQL         string `json:"sql"`
	Explanation string `json:"explanation,omitempty"`
}

// Entry wraps a payload with its write timestamp. Entries older than the
// store TTL are logically absent even while still physically present.
type Entry struct {
	Result   Payload   `json:"result"`
	CachedAt time.Time `json:"cached_at"`
}

// Backend abstracts the snapshot document location. Load returns (nil, nil)
// when the document does not exist yet.
type Backend interface {
	Load() ([]byte, error)
	Save(data []byte) error
	Clear() error
	Location() string
}

// Stats describes the current store shape for diagnostics.
type Stats struct {
	Size     int           `json:"size"`
	MaxSize  int           `json:"max_size"`
	TTL      time.Duration `json:"-"`
	TTLHours float64       `json:"ttl_hours"`
	Location string        `json:"location"`
}

type Config struct {
	TTL     time.Duration
	MaxSize int
	// Now is the clock used for expiry; defaults to time.Now. Injected by
	// tests.
	Now func() time.Time
}

// Store is the in-process view of the snapshot document. The mutex covers
// the in-memory map only; concurrent processes sharing one backend race on
// the whole-document write and the last writer wins.
type Store struct {
	mu      sync.Mutex
	backend Backend
	ttl     time.Duration
	maxSize int
	now     func() time.Time
	entries map[string]Entry
}

func NewStore(backend Backend, cfg Config) *Store {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = 1000
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	store := &Store{
		backend: backend,
		ttl:     ttl,
		maxSize: maxSize,
		now:     now,
	}
	store.entries = store.load()
	return store
}

// load reads the snapshot document, dropping expired entries and entries
// whose timestamp is missing or malformed. Any document-level failure yields
// an empty cache.
func (s *Store) load() map[string]Entry {
	entries := map[string]Entry{}
	data, err := s.backend.Load()
	if err != nil || len(data) == 0 {
		return entries
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return entries
	}

	cutoff := s.now().Add(-s.ttl)
	for key, message := range raw {
		var entry Entry
		if err := json.Unmarshal(message, &entry); err != nil {
			continue
		}
		if entry.CachedAt.IsZero() || !entry.CachedAt.After(cutoff) {
			continue
		}
		entries[key] = entry
	}
	return entries
}

func (s *Store) persist() {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return
	}
	// Best effort: an unwritable backend never fails the request path.
	_ = s.backend.Save(data)
}

// Get returns the payload for key, or false when absent or expired. An
// expired entry is evicted and the document resynced as a side effect of the
// read.
func (s *Store) Get(key string) (Payload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return Payload{}, false
	}
	if entry.CachedAt.IsZero() || s.now().Sub(entry.CachedAt) >= s.ttl {
		delete(s.entries, key)
		s.persist()
		return Payload{}, false
	}
	return entry.Result, true
}

// Set stores the payload under key. At or over capacity the oldest entry is
// evicted first, even when the write is an overwrite. Entries are replaced
// wholesale, never field-patched.
func (s *Store) Set(key string, payload Payload) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) >= s.maxSize {
		s.evictOldest()
	}
	s.entries[key] = Entry{Result: payload, CachedAt: s.now()}
	s.persist()
}

// evictOldest removes the entry with the smallest CachedAt, ties broken by
// key order so eviction is deterministic.
func (s *Store) evictOldest() {
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return
	}
	sort.Strings(keys)
	oldest := keys[0]
	for _, key := range keys[1:] {
		if s.entries[key].CachedAt.Before(s.entries[oldest].CachedAt) {
			oldest = key
		}
	}
	delete(s.entries, oldest)
}

// Clear drops every entry and removes the backing document.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = map[string]Entry{}
	_ = s.backend.Clear()
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Size:     len(s.entries),
		MaxSize:  s.maxSize,
		TTL:      s.ttl,
		TTLHours: s.ttl.Hours(),
		Location: s.backend.Location(),
	}
}
