package shorts

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ManifestName is the manifest file written next to the shorts
const ManifestName = "manifest.yaml"

// Manifest lists what a shorts run produced. Upload reads it back.
type Manifest struct {
	Source   string    `yaml:"source"`
	Shorts   []Short   `yaml:"shorts"`
	Failures []Failure `yaml:"failures,omitempty"`
}

// WriteManifest writes m as YAML, replacing any previous manifest
func WriteManifest(path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "failed to encode manifest")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", path)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write manifest %s", path)
	}
	return nil
}

// LoadManifest reads a manifest written by WriteManifest
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read manifest %s", path)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "failed to parse manifest %s", path)
	}
	return &m, nil
}
