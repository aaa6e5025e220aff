// Package csv wraps column-mapped CSV staging as a registrable stager,
// one per saved import profile.
package csv

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/clearbooks/clearbooks/internal/domain"
	"github.com/clearbooks/clearbooks/internal/staging"
)

// Stager stages CSV statements through a fixed column mapping. Build one
// per import profile so format detection can offer the bank by name.
type Stager struct {
	name    string
	mapping staging.ColumnMapping
}

// NewStager creates a CSV stager named after its profile.
func NewStager(name string, mapping staging.ColumnMapping) *Stager {
	return &Stager{name: name, mapping: mapping}
}

// FromProfile wraps a saved import profile.
func FromProfile(p staging.Profile) *Stager {
	return NewStager(p.Name, p.Mapping)
}

// Name returns the profile name this stager applies.
func (s *Stager) Name() string {
	return s.name
}

// CanParse accepts .csv files that are not OFX documents in disguise.
// The mapping cannot be verified from the header alone; a wrong profile
// surfaces as per-row errors during staging, which is recoverable.
func (s *Stager) CanParse(path string, header []byte) bool {
	if strings.ToLower(filepath.Ext(path)) != ".csv" {
		return false
	}
	return !strings.Contains(strings.ToUpper(string(header)), "OFXHEADER")
}

// Stage parses the statement through the profile's column mapping.
func (s *Stager) Stage(r io.Reader) ([]domain.StagedTransaction, error) {
	return staging.ParseStatement(r, s.mapping)
}
