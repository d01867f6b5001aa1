// Package mcp manages Model Context Protocol servers: a registry of external
// servers, a client manager that lists and calls their tools, and an
// in-process server exposing the virtual human's own tools.
package mcp

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-vhuman/internal/jsonfile"
)

// Registry errors.
var (
	ErrNotFound      = errors.New("MCP not found")
	ErrAlreadyExists = errors.New("MCP with this id already exists")
	ErrInvalid       = errors.New("MCP name is required")
	ErrNoTransport   = errors.New("MCP server has neither url nor command")
)

// Entry is a registered MCP server. The Manager reaches it over SSE at URL,
// or launches Command with Args and talks to it over stdio.
type Entry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Command   string    `json:"command,omitempty"`
	Args      []string  `json:"args"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Registry persists entries to a JSON list file.
type Registry struct {
	path    string
	entries []Entry
	mu      sync.RWMutex
}

// NewRegistry loads the registry at path. A missing file is an empty
// registry.
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{path: path}
	if _, err := jsonfile.Read(path, &r.entries); err != nil {
		return nil, fmt.Errorf("failed to load MCP registry: %w", err)
	}
	return r, nil
}

// Add registers a server. The ID is generated when empty. Names are unique
// ignoring case.
func (r *Registry) Add(e Entry) (*Entry, error) {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return nil, ErrInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	for _, cur := range r.entries {
		if cur.ID == e.ID {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, e.ID)
		}
		if strings.EqualFold(cur.Name, e.Name) {
			return nil, fmt.Errorf("%w: name %q", ErrAlreadyExists, e.Name)
		}
	}
	if e.Args == nil {
		e.Args = []string{}
	}
	e.CreatedAt = time.Now().UTC()

	r.entries = append(r.entries, e)
	if err := jsonfile.Write(r.path, r.entries); err != nil {
		r.entries = r.entries[:len(r.entries)-1]
		return nil, err
	}
	return &e, nil
}

// Update replaces the name, command, args and url of entry id. The ID and
// creation time are kept.
func (r *Registry) Update(id string, e Entry) (*Entry, error) {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return nil, ErrInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	for j, cur := range r.entries {
		if j != i && strings.EqualFold(cur.Name, e.Name) {
			return nil, fmt.Errorf("%w: name %q", ErrAlreadyExists, e.Name)
		}
	}
	if e.Args == nil {
		e.Args = []string{}
	}
	e.ID = id
	e.CreatedAt = r.entries[i].CreatedAt

	next := append([]Entry(nil), r.entries...)
	next[i] = e
	if err := jsonfile.Write(r.path, next); err != nil {
		return nil, err
	}
	r.entries = next
	return &e, nil
}

// Get returns the entry with id.
func (r *Registry) Get(id string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := r.indexLocked(id); i >= 0 {
		e := r.entries[i]
		return &e, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// List returns all entries ordered by creation time.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Delete removes an entry and returns it.
func (r *Registry) Delete(id string) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	removed := r.entries[i]

	next := make([]Entry, 0, len(r.entries)-1)
	next = append(next, r.entries[:i]...)
	next = append(next, r.entries[i+1:]...)
	if err := jsonfile.Write(r.path, next); err != nil {
		return nil, err
	}
	r.entries = next
	return &removed, nil
}

func (r *Registry) indexLocked(id string) int {
	for i, e := range r.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}
