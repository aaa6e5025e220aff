package staging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const profilesYAML = `
profiles:
  - name: "first-national"
    mapping:
      has_header: true
      date_column: 0
      date_format: "01/02/2006"
      description_column: 2
      amount_column: 3
  - name: "euro-bank"
    mapping:
      delimiter: ";"
      date_column: 0
      date_format: "02.01.2006"
      description_column: 1
      debit_column: 2
      credit_column: 3
`

func TestParseProfiles(t *testing.T) {
	profiles, err := ParseProfiles([]byte(profilesYAML))
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	first, err := FindProfile(profiles, "first-national")
	require.NoError(t, err)
	assert.True(t, first.Mapping.HasHeader)
	require.NotNil(t, first.Mapping.AmountColumn)
	assert.Equal(t, 3, *first.Mapping.AmountColumn)

	euro, err := FindProfile(profiles, "euro-bank")
	require.NoError(t, err)
	assert.Equal(t, ";", euro.Mapping.Delimiter)
	require.NotNil(t, euro.Mapping.DebitColumn)
	require.NotNil(t, euro.Mapping.CreditColumn)

	_, err = FindProfile(profiles, "nope")
	assert.Error(t, err)
}

func TestParseProfiles_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "missing name",
			yaml: "profiles:\n  - mapping:\n      date_column: 0\n      date_format: \"2006-01-02\"\n      description_column: 1\n      amount_column: 2\n",
		},
		{
			name: "duplicate name",
			yaml: "profiles:\n  - name: a\n    mapping:\n      date_column: 0\n      date_format: \"2006-01-02\"\n      description_column: 1\n      amount_column: 2\n  - name: a\n    mapping:\n      date_column: 0\n      date_format: \"2006-01-02\"\n      description_column: 1\n      amount_column: 2\n",
		},
		{
			name: "invalid mapping",
			yaml: "profiles:\n  - name: broken\n    mapping:\n      date_column: 0\n      description_column: 1\n",
		},
		{
			name: "bad yaml",
			yaml: "profiles: [unclosed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProfiles([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadProfiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(profilesYAML), 0o644))

	profiles, err := LoadProfiles(path)
	require.NoError(t, err)
	assert.Len(t, profiles, 2)

	_, err = LoadProfiles(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
