package staging

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is a named, reusable column mapping for one bank's CSV layout.
type Profile struct {
	Name    string        `yaml:"name"`
	Mapping ColumnMapping `yaml:"mapping"`
}

// profileFile is the top-level YAML structure of a profiles file.
type profileFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// LoadProfiles reads named column mappings from a YAML file. Every mapping
// in the file is validated up front so a broken profile fails at load time,
// not mid-import.
func LoadProfiles(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}
	return ParseProfiles(data)
}

// ParseProfiles parses YAML profile data.
func ParseProfiles(data []byte) ([]Profile, error) {
	var file profileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse profiles YAML: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Profiles))
	for i, p := range file.Profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("profile %d: name cannot be empty", i)
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("profile %d: duplicate name %q", i, p.Name)
		}
		seen[p.Name] = struct{}{}

		if err := p.Mapping.Validate(); err != nil {
			return nil, fmt.Errorf("profile %q: %w", p.Name, err)
		}
	}

	return file.Profiles, nil
}

// FindProfile returns the profile with the given name.
func FindProfile(profiles []Profile, name string) (*Profile, error) {
	for i := range profiles {
		if profiles[i].Name == name {
			return &profiles[i], nil
		}
	}
	return nil, fmt.Errorf("profile %q not found", name)
}
