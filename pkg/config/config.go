package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFilename holds per-directory launcher defaults. All fields
// are optional; command-line flags override them.
const DefaultConfigFilename = ".testnetctl.yaml"

type File struct {
	NodePath string `yaml:"node_path,omitempty"`
	NodesDir string `yaml:"nodes_dir,omitempty"`
	Interval string `yaml:"interval,omitempty"` // Go duration string, e.g. "1s"
	NodeLog  string `yaml:"node_log,omitempty"`
	IP       string `yaml:"ip,omitempty"`
}

func DefaultPath(dir string) string {
	return filepath.Join(dir, DefaultConfigFilename)
}

func LoadFromFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	var cfg File
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse config yaml")
	}
	return &cfg, nil
}

func LoadOptional(path string) (*File, error) {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{}, nil
		}
		return nil, errors.Wrap(err, "stat config")
	}
	return LoadFromFile(path)
}
