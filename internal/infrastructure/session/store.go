package session

import (
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/dalylak/internal/core/domain"
)

const shardCount = 32

// Policy bounds how much history a session keeps. Zero values disable a bound.
type Policy struct {
	MaxTurns int
	MaxChars int
}

// Store keeps conversation history in process. Sessions are independent:
// the shard lock only guards the id map, each session has its own lock.
type Store struct {
	policy Policy
	now    func() time.Time
	shards [shardCount]shard
}

type shard struct {
	mu       sync.RWMutex
	sessions map[string]*entry
}

type entry struct {
	mu        sync.Mutex
	turns     []domain.ChatTurn
	updatedAt time.Time
	// removed is set under mu once the entry is dropped from its shard.
	removed bool
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func NewStore(policy Policy, opts ...Option) *Store {
	s := &Store{policy: policy, now: time.Now}
	for i := range s.shards {
		s.shards[i].sessions = make(map[string]*entry)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) shardFor(id string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &s.shards[h.Sum32()%shardCount]
}

func (s *Store) lookup(id string, create bool) *entry {
	sh := s.shardFor(id)
	sh.mu.RLock()
	e, ok := sh.sessions[id]
	sh.mu.RUnlock()
	if ok || !create {
		return e
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if e, ok = sh.sessions[id]; ok {
		return e
	}
	e = &entry{updatedAt: s.now()}
	sh.sessions[id] = e
	return e
}

// GetOrCreate returns a copy of the session, creating it empty if needed.
func (s *Store) GetOrCreate(id string) domain.Session {
	e := s.lookup(id, true)
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.Session{
		ID:        id,
		Turns:     append([]domain.ChatTurn(nil), e.turns...),
		UpdatedAt: e.updatedAt,
	}
}

// History returns a copy of the turns, empty for unknown sessions.
func (s *Store) History(id string) []domain.ChatTurn {
	e := s.lookup(id, false)
	if e == nil {
		return []domain.ChatTurn{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.ChatTurn(nil), e.turns...)
}

func (s *Store) Append(id string, role domain.Role, text string) error {
	if strings.TrimSpace(id) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "append session turn", fmt.Errorf("session id is required"))
	}
	if !role.Valid() {
		return domain.WrapError(domain.ErrInvalidInput, "append session turn", fmt.Errorf("unknown role %q", role))
	}
	s.appendTurns(id, domain.ChatTurn{Role: role, Text: text})
	return nil
}

// AppendExchange records a user message and its answer as one step, so
// concurrent turns on the same session never interleave their pairs.
func (s *Store) AppendExchange(id string, userText, assistantText string) error {
	if strings.TrimSpace(id) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "append session exchange", fmt.Errorf("session id is required"))
	}
	s.appendTurns(id,
		domain.ChatTurn{Role: domain.RoleUser, Text: userText},
		domain.ChatTurn{Role: domain.RoleAssistant, Text: assistantText},
	)
	return nil
}

// appendTurns retries when the entry it found was deleted or evicted before
// its lock was taken, so the turns land in the live session.
func (s *Store) appendTurns(id string, turns ...domain.ChatTurn) {
	for !s.appendToEntry(s.lookup(id, true), turns) {
	}
}

func (s *Store) appendToEntry(e *entry, turns []domain.ChatTurn) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return false
	}
	e.turns = append(e.turns, turns...)
	e.turns = s.policy.trim(e.turns)
	e.updatedAt = s.now()
	return true
}

func (s *Store) Clear(id string) error {
	e := s.lookup(id, false)
	if e == nil {
		return domain.WrapError(domain.ErrSessionNotFound, "clear session", fmt.Errorf("session %q", id))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.turns = nil
	e.updatedAt = s.now()
	return nil
}

func (s *Store) Delete(id string) bool {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.sessions[id]
	if !ok {
		return false
	}
	e.mu.Lock()
	e.removed = true
	e.mu.Unlock()
	delete(sh.sessions, id)
	return true
}

// EvictIdle drops sessions not updated within ttl and returns how many.
func (s *Store) EvictIdle(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-ttl)
	evicted := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for id, e := range sh.sessions {
			e.mu.Lock()
			idle := e.updatedAt.Before(cutoff)
			if idle {
				e.removed = true
			}
			e.mu.Unlock()
			if idle {
				delete(sh.sessions, id)
				evicted++
			}
		}
		sh.mu.Unlock()
	}
	return evicted
}

func (s *Store) Len() int {
	total := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		total += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return total
}

// trim drops the oldest turns until the policy holds. The newest turn is
// always kept.
func (p Policy) trim(turns []domain.ChatTurn) []domain.ChatTurn {
	drop := 0
	if p.MaxTurns > 0 && len(turns) > p.MaxTurns {
		drop = len(turns) - p.MaxTurns
	}
	if p.MaxChars > 0 {
		chars := 0
		for _, turn := range turns[drop:] {
			chars += len([]rune(turn.Text))
		}
		for chars > p.MaxChars && drop < len(turns)-1 {
			chars -= len([]rune(turns[drop].Text))
			drop++
		}
	}
	if drop == 0 {
		return turns
	}
	return append([]domain.ChatTurn(nil), turns[drop:]...)
}
