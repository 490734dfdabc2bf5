// Package reader provides tag reader adapters and the poll loop that feeds them
// to the presence tracker.
package reader

import (
	"context"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

// Types of reader.
const (
	TypeExec    = "exec"
	TypeVirtual = "virtual"
)

// Reader returns the id of the tag in the field, or "" when there is none.
type Reader interface {
	Poll(ctx context.Context) (string, error)
}

// Config represents reader configuration.
type Config struct {
	Type    string // exec or virtual
	Command string // Shell command for the exec reader
}

// New creates the reader named by cfg.Type.
func New(cfg Config) (Reader, error) {
	switch cfg.Type {
	case TypeExec:
		return NewExecReader(cfg.Command)
	case TypeVirtual, "":
		return NewVirtualReader(), nil
	default:
		return nil, errors.Newf("unknown reader type: %q", cfg.Type)
	}
}

// VirtualReader is a reader whose tag is placed and removed by software,
// through the control API or in tests.
type VirtualReader struct {
	mu  sync.RWMutex
	tag string
}

// NewVirtualReader creates an empty virtual reader.
func NewVirtualReader() *VirtualReader {
	return &VirtualReader{}
}

// Place puts tag id on the reader, replacing any tag already there.
func (v *VirtualReader) Place(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tag = strings.TrimSpace(id)
}

// Remove takes the tag off the reader.
func (v *VirtualReader) Remove() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tag = ""
}

// Poll implements Reader.
func (v *VirtualReader) Poll(ctx context.Context) (string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.tag, nil
}
