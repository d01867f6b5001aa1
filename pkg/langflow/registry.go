// Package langflow talks to a Langflow workflow server and keeps a registry
// of the flows the virtual human can route chat through.
package langflow

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-vhuman/internal/jsonfile"
	"github.com/teslashibe/go-vhuman/internal/log"
)

// Registry defaults.
const (
	RegistryVersion = "1.0.0"
	DefaultCategory = "General"
	DefaultHostURL  = "http://localhost:7860"
	DefaultFlowKey  = "default"
	DefaultFlowID   = "b2636e6f-2c11-4274-b965-5bd98ca40336"
)

// Registry errors.
var (
	ErrNotFound      = errors.New("flow not found")
	ErrAlreadyExists = errors.New("flow already exists")
	ErrInvalidID     = errors.New("invalid flow ID format, must be a valid UUID")
	ErrInvalid       = errors.New("flow name is required")
)

// Flow is a registered Langflow flow.
type Flow struct {
	Key         string     `json:"key,omitempty"`
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	HostURL     string     `json:"host_url"`
	Category    string     `json:"category"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	LastUsed    *time.Time `json:"last_used"`
	UsageCount  int        `json:"usage_count"`
}

// Update holds the mutable fields of a flow. Nil fields are left alone.
type Update struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	HostURL     *string `json:"host_url,omitempty"`
	Category    *string `json:"category,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// Listing is the result of List.
type Listing struct {
	Flows       map[string]Flow `json:"flows"`
	Count       int             `json:"count"`
	ActiveCount int             `json:"active_count"`
}

type registryFile struct {
	Flows       map[string]*Flow `json:"flows"`
	LastUpdated time.Time        `json:"last_updated"`
	Version     string           `json:"version"`
}

// Registry persists flows keyed by a normalised name.
type Registry struct {
	path  string
	flows map[string]*Flow
	mu    sync.RWMutex
}

// NewRegistry loads the registry at path. A missing file is seeded with
// the default flow pointing at hostURL.
func NewRegistry(path, hostURL string) (*Registry, error) {
	r := &Registry{path: path, flows: make(map[string]*Flow)}

	var data registryFile
	found, err := jsonfile.Read(path, &data)
	if err != nil {
		return nil, fmt.Errorf("failed to load flow registry: %w", err)
	}
	if found {
		for k, f := range data.Flows {
			if f != nil {
				r.flows[k] = f
			}
		}
		log.Component("langflow").Info("loaded flows from registry", "count", len(r.flows))
		return r, nil
	}

	if hostURL == "" {
		hostURL = DefaultHostURL
	}
	r.flows[DefaultFlowKey] = &Flow{
		ID:          DefaultFlowID,
		Name:        "Default Langflow",
		Description: "Default Langflow conversation flow",
		HostURL:     strings.TrimRight(hostURL, "/"),
		Category:    DefaultCategory,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}
	if err := r.saveLocked(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) saveLocked() error {
	return jsonfile.Write(r.path, registryFile{
		Flows:       r.flows,
		LastUpdated: time.Now().UTC(),
		Version:     RegistryVersion,
	})
}

// Key normalises a flow name into its registry key.
func Key(name string) string {
	return strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(name))
}

// ValidID reports whether id is a UUID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Register adds a flow. Empty host and category take defaults.
func (r *Registry) Register(f Flow) (*Flow, error) {
	if strings.TrimSpace(f.Name) == "" {
		return nil, ErrInvalid
	}
	if !ValidID(f.ID) {
		return nil, ErrInvalidID
	}
	key := Key(f.Name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.flows[key]; ok {
		return nil, fmt.Errorf("%w: %q", ErrAlreadyExists, f.Name)
	}

	if f.HostURL == "" {
		f.HostURL = DefaultHostURL
	}
	f.HostURL = strings.TrimRight(f.HostURL, "/")
	if f.Category == "" {
		f.Category = DefaultCategory
	}
	f.Key = ""
	f.IsActive = true
	f.CreatedAt = time.Now().UTC()
	f.UpdatedAt = nil
	f.LastUsed = nil
	f.UsageCount = 0

	stored := f
	r.flows[key] = &stored
	if err := r.saveLocked(); err != nil {
		delete(r.flows, key)
		return nil, err
	}
	return withKey(key, stored), nil
}

// Get returns the flow stored under key.
func (r *Registry) Get(key string) (*Flow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.flows[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return withKey(key, *f), nil
}

// List returns all flows with their counts.
func (r *Registry) List() Listing {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := Listing{Flows: make(map[string]Flow, len(r.flows))}
	for k, f := range r.flows {
		out.Flows[k] = *f
		if f.IsActive {
			out.ActiveCount++
		}
	}
	out.Count = len(out.Flows)
	return out
}

// ByCategory returns flows whose category matches ignoring case.
func (r *Registry) ByCategory(category string) []Flow {
	return r.filter(func(f *Flow) bool {
		return strings.EqualFold(f.Category, category)
	})
}

// Search matches query case-insensitively against name and description.
func (r *Registry) Search(query string) []Flow {
	q := strings.ToLower(query)
	return r.filter(func(f *Flow) bool {
		return strings.Contains(strings.ToLower(f.Name), q) ||
			strings.Contains(strings.ToLower(f.Description), q)
	})
}

func (r *Registry) filter(keep func(*Flow) bool) []Flow {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []Flow{}
	for _, k := range r.sortedKeysLocked() {
		if f := r.flows[k]; keep(f) {
			out = append(out, *withKey(k, *f))
		}
	}
	return out
}

// Update changes the mutable fields of a flow.
func (r *Registry) Update(key string, u Update) (*Flow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.flows[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	next := *cur
	if u.Name != nil {
		next.Name = *u.Name
	}
	if u.Description != nil {
		next.Description = *u.Description
	}
	if u.HostURL != nil {
		next.HostURL = strings.TrimRight(*u.HostURL, "/")
	}
	if u.Category != nil {
		next.Category = *u.Category
	}
	if u.IsActive != nil {
		next.IsActive = *u.IsActive
	}
	now := time.Now().UTC()
	next.UpdatedAt = &now

	r.flows[key] = &next
	if err := r.saveLocked(); err != nil {
		r.flows[key] = cur
		return nil, err
	}
	return withKey(key, next), nil
}

// Delete removes a flow and returns it.
func (r *Registry) Delete(key string) (*Flow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.flows[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	delete(r.flows, key)
	if err := r.saveLocked(); err != nil {
		r.flows[key] = f
		return nil, err
	}
	log.Component("langflow").Info("deleted flow", "name", f.Name)
	return withKey(key, *f), nil
}

// SetActive records a use of the flow, making it the most recently used.
func (r *Registry) SetActive(key string) (*Flow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.flows[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	next := *cur
	now := time.Now().UTC()
	next.LastUsed = &now
	next.UsageCount++

	r.flows[key] = &next
	if err := r.saveLocked(); err != nil {
		r.flows[key] = cur
		return nil, err
	}
	return withKey(key, next), nil
}

// Active returns the most recently used active flow, or the first active
// flow by key when none has been used. It returns ErrNotFound when no flow
// is active.
func (r *Registry) Active() (*Flow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var first, recent string
	for _, k := range r.sortedKeysLocked() {
		f := r.flows[k]
		if !f.IsActive {
			continue
		}
		if first == "" {
			first = k
		}
		if f.LastUsed != nil && (recent == "" || f.LastUsed.After(*r.flows[recent].LastUsed)) {
			recent = k
		}
	}
	switch {
	case recent != "":
		return withKey(recent, *r.flows[recent]), nil
	case first != "":
		return withKey(first, *r.flows[first]), nil
	}
	return nil, fmt.Errorf("%w: no active flow", ErrNotFound)
}

// Categories returns the distinct categories, sorted.
func (r *Registry) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	out := []string{}
	for _, f := range r.flows {
		c := f.Category
		if c == "" {
			c = DefaultCategory
		}
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

func (r *Registry) sortedKeysLocked() []string {
	keys := make([]string, 0, len(r.flows))
	for k := range r.flows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func withKey(key string, f Flow) *Flow {
	f.Key = key
	return &f
}
