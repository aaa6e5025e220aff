package registry

import (
	"os"
	"path/filepath"
	"testing"

	csvstager "github.com/clearbooks/clearbooks/internal/parsers/csv"
	"github.com/clearbooks/clearbooks/internal/parsers/ofx"
	"github.com/clearbooks/clearbooks/internal/staging"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func testMapping() staging.ColumnMapping {
	amount := 2
	return staging.ColumnMapping{
		DateColumn:        0,
		DateFormat:        "2006-01-02",
		DescriptionColumn: 1,
		AmountColumn:      &amount,
		HasHeader:         true,
	}
}

func testRegistry() *Registry {
	return New(
		ofx.NewStager(),
		csvstager.NewStager("generic-csv", testMapping()),
	)
}

func TestFindByExtensionAndHeader(t *testing.T) {
	r := testRegistry()

	csvPath := writeFile(t, "march.csv", "Date,Description,Amount\n2025-03-10,WHOLE FOODS,-52.18\n")
	stager, err := r.Find(csvPath)
	if err != nil {
		t.Fatalf("Find(csv) error = %v", err)
	}
	if stager.Name() != "generic-csv" {
		t.Errorf("Find(csv) = %s, want generic-csv", stager.Name())
	}

	ofxPath := writeFile(t, "march.ofx", "OFXHEADER:100\nDATA:OFXSGML\n")
	stager, err = r.Find(ofxPath)
	if err != nil {
		t.Fatalf("Find(ofx) error = %v", err)
	}
	if stager.Name() != "ofx" {
		t.Errorf("Find(ofx) = %s, want ofx", stager.Name())
	}
}

func TestFindUnrecognized(t *testing.T) {
	r := testRegistry()
	path := writeFile(t, "statement.pdf", "%PDF-1.4")
	if _, err := r.Find(path); err == nil {
		t.Fatal("Find() should fail for an unrecognized format")
	}
}

func TestFindMissingFile(t *testing.T) {
	r := testRegistry()
	if _, err := r.Find(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Fatal("Find() should fail for a missing file")
	}
}

func TestStageFile(t *testing.T) {
	r := testRegistry()
	path := writeFile(t, "march.csv", "Date,Description,Amount\n2025-03-10,WHOLE FOODS,-52.18\n2025-03-11,PAYROLL,2400.00\n")

	staged, name, err := r.StageFile(path)
	if err != nil {
		t.Fatalf("StageFile() error = %v", err)
	}
	if name != "generic-csv" {
		t.Errorf("stager name = %s, want generic-csv", name)
	}
	if len(staged) != 2 {
		t.Fatalf("StageFile() returned %d rows, want 2", len(staged))
	}
	if got := staged[0].Amount.Cents(); got != -5218 {
		t.Errorf("row 0 amount = %d cents, want -5218", got)
	}
}

func TestRegisterOrderIsPriority(t *testing.T) {
	// Two CSV profiles both accept .csv files; the first registered wins.
	r := New(
		csvstager.NewStager("first-bank", testMapping()),
		csvstager.NewStager("second-bank", testMapping()),
	)

	path := writeFile(t, "x.csv", "Date,Description,Amount\n")
	stager, err := r.Find(path)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if stager.Name() != "first-bank" {
		t.Errorf("Find() = %s, want first-bank", stager.Name())
	}

	if got := r.List(); len(got) != 2 || got[0] != "first-bank" || got[1] != "second-bank" {
		t.Errorf("List() = %v", got)
	}
}
