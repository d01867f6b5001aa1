package avatar

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-vhuman/internal/jsonfile"
)

// Store keeps custom avatars in a JSON file. Presets are served alongside
// them but are never written.
type Store struct {
	path    string
	avatars map[string]*Avatar
	mu      sync.RWMutex
}

type storeData struct {
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
	Avatars   []*Avatar `json:"avatars"`
}

const storeVersion = 1

// NewStore opens the store at path, loading it if it exists.
func NewStore(path string) (*Store, error) {
	s := &Store{
		path:    path,
		avatars: make(map[string]*Avatar),
	}

	var data storeData
	if _, err := jsonfile.Read(path, &data); err != nil {
		return nil, fmt.Errorf("failed to load avatar store: %w", err)
	}
	for _, a := range data.Avatars {
		if a.ID == "" || IsPreset(a.ID) {
			continue
		}
		a.Custom = true
		s.avatars[a.ID] = a
	}
	return s, nil
}

func (s *Store) save() error {
	list := s.customLocked()
	return jsonfile.Write(s.path, storeData{
		Version:   storeVersion,
		UpdatedAt: time.Now(),
		Avatars:   list,
	})
}

// Create stores a new custom avatar. An empty ID is generated.
func (s *Store) Create(a Avatar) (*Avatar, error) {
	if strings.TrimSpace(a.Name) == "" || strings.TrimSpace(a.ModelPath) == "" {
		return nil, ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if IsPreset(a.ID) {
		return nil, fmt.Errorf("%w: %s is a preset", ErrAlreadyExists, a.ID)
	}
	if _, ok := s.avatars[a.ID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, a.ID)
	}

	now := time.Now()
	a.Custom = true
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.VoiceID == "" {
		a.VoiceID = presets["default"].VoiceID
	}

	stored := clone(a)
	s.avatars[a.ID] = &stored
	if err := s.save(); err != nil {
		delete(s.avatars, a.ID)
		return nil, err
	}
	return &a, nil
}

// Get returns a preset or a custom avatar.
func (s *Store) Get(id string) (*Avatar, error) {
	if p, ok := Preset(id); ok {
		return &p, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.avatars[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	c := clone(*a)
	return &c, nil
}

// List returns the presets followed by custom avatars, oldest first.
func (s *Store) List() []Avatar {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := Presets()
	for _, a := range s.customLocked() {
		out = append(out, clone(*a))
	}
	return out
}

// Custom returns only the custom avatars.
func (s *Store) Custom() []Avatar {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Avatar
	for _, a := range s.customLocked() {
		out = append(out, clone(*a))
	}
	return out
}

// Update merges a JSON document into a custom avatar. Fields absent from
// patch keep their values; id, custom and created_at cannot change.
func (s *Store) Update(id string, patch json.RawMessage) (*Avatar, error) {
	if IsPreset(id) {
		return nil, ErrReadOnly
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.avatars[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	next := clone(*cur)
	if len(patch) > 0 {
		if err := json.Unmarshal(patch, &next); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}
	if strings.TrimSpace(next.Name) == "" || strings.TrimSpace(next.ModelPath) == "" {
		return nil, ErrInvalid
	}
	next.ID = cur.ID
	next.Custom = true
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = time.Now()

	prev := cur
	s.avatars[id] = &next
	if err := s.save(); err != nil {
		s.avatars[id] = prev
		return nil, err
	}
	out := clone(next)
	return &out, nil
}

// Delete removes a custom avatar and returns it.
func (s *Store) Delete(id string) (*Avatar, error) {
	if IsPreset(id) {
		return nil, ErrReadOnly
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.avatars[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.avatars, id)
	if err := s.save(); err != nil {
		s.avatars[id] = a
		return nil, err
	}
	return a, nil
}

// Search matches query case-insensitively against name, description,
// personality and traits of every avatar.
func (s *Store) Search(query string) []Avatar {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []Avatar
	for _, a := range s.List() {
		if q == "" || matches(a, q) {
			out = append(out, a)
		}
	}
	return out
}

func matches(a Avatar, q string) bool {
	for _, f := range []string{a.Name, a.Description, a.Personality, a.SpeakingStyle} {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	for _, t := range a.Traits {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

// Count returns the number of custom avatars.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.avatars)
}

// Path returns the file path of the store.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) customLocked() []*Avatar {
	list := make([]*Avatar, 0, len(s.avatars))
	for _, a := range s.avatars {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list
}
