// Package store persists each tenant's saved program and its compiled
// bundle.  Reads are independent per tenant; an absent record reads
// back as nil, not as an error, because "no program configured yet" is
// a normal state.
package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Comcast/blockwright/compiler"
)

// SavedProgram is what the editor-save path persists: the opaque
// workspace blob (so the editor can re-open its last state) plus the
// decoded program tree.
type SavedProgram struct {
	Workspace []byte          `json:"workspace,omitempty"`
	Program   json.RawMessage `json:"program,omitempty"`
}

// Store is the persistence interface for tenant programs and bundles.
type Store interface {
	WriteProgram(ctx context.Context, guild string, p *SavedProgram) error

	// ReadProgram returns nil, nil when the tenant has no saved
	// program.
	ReadProgram(ctx context.Context, guild string) (*SavedProgram, error)

	WriteBundle(ctx context.Context, guild string, b *compiler.Bundle) error

	// ReadBundle returns nil, nil when the tenant has no bundle.
	ReadBundle(ctx context.Context, guild string) (*compiler.Bundle, error)
}

// Mem is an in-memory Store for tests and for running without a data
// directory.
type Mem struct {
	sync.RWMutex

	programs map[string]*SavedProgram
	bundles  map[string]*compiler.Bundle
}

// NewMem makes an empty Mem.
func NewMem() *Mem {
	return &Mem{
		programs: make(map[string]*SavedProgram),
		bundles:  make(map[string]*compiler.Bundle),
	}
}

func (s *Mem) WriteProgram(ctx context.Context, guild string, p *SavedProgram) error {
	s.Lock()
	s.programs[guild] = p
	s.Unlock()
	return nil
}

func (s *Mem) ReadProgram(ctx context.Context, guild string) (*SavedProgram, error) {
	s.RLock()
	defer s.RUnlock()
	return s.programs[guild], nil
}

func (s *Mem) WriteBundle(ctx context.Context, guild string, b *compiler.Bundle) error {
	s.Lock()
	s.bundles[guild] = b
	s.Unlock()
	return nil
}

func (s *Mem) ReadBundle(ctx context.Context, guild string) (*compiler.Bundle, error) {
	s.RLock()
	defer s.RUnlock()
	return s.bundles[guild], nil
}
