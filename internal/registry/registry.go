// Package registry picks the right stager for a statement file by
// sniffing its header, so the import flow never asks the user what
// format their download is in.
package registry

import (
	"fmt"
	"io"
	"os"

	"github.com/clearbooks/clearbooks/internal/domain"
)

// headerSize is how much of the file format detection reads. Enough for
// the OFX header block and a CSV header row.
const headerSize = 512

// Stager turns one statement format into staged rows.
type Stager interface {
	// Name identifies the stager, e.g. "ofx" or an import profile name.
	Name() string

	// CanParse reports whether this stager handles the file, judged from
	// its path and the first bytes of content.
	CanParse(path string, header []byte) bool

	// Stage parses the statement into candidate rows.
	Stage(r io.Reader) ([]domain.StagedTransaction, error)
}

// Registry holds the registered stagers in priority order: the first
// stager whose CanParse accepts the file wins.
type Registry struct {
	stagers []Stager
}

// New creates a registry over the given stagers.
func New(stagers ...Stager) *Registry {
	return &Registry{stagers: stagers}
}

// Register appends a stager at the lowest priority.
func (r *Registry) Register(s Stager) {
	r.stagers = append(r.stagers, s)
}

// Find returns the first stager accepting the file.
func (r *Registry) Find(path string) (Stager, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open statement file: %w", err)
	}
	defer f.Close()

	header := make([]byte, headerSize)
	n, err := f.Read(header)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read header from %s: %w", path, err)
	}
	header = header[:n]

	for _, s := range r.stagers {
		if s.CanParse(path, header) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("no stager recognizes %s", path)
}

// StageFile detects the format and stages the file in one call.
func (r *Registry) StageFile(path string) ([]domain.StagedTransaction, string, error) {
	stager, err := r.Find(path)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open statement file: %w", err)
	}
	defer f.Close()

	staged, err := stager.Stage(f)
	if err != nil {
		return nil, "", fmt.Errorf("%s staging failed: %w", stager.Name(), err)
	}
	return staged, stager.Name(), nil
}

// List returns the registered stager names in priority order.
func (r *Registry) List() []string {
	names := make([]string, len(r.stagers))
	for i, s := range r.stagers {
		names[i] = s.Name()
	}
	return names
}
