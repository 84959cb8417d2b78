// Package profile stores darzictl's defaults in ~/.darziflow/config.yaml.
package profile

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	yaml "gopkg.in/yaml.v3"
)

const (
	dirName  = ".darziflow"
	fileName = "config.yaml"
)

var ErrProfileInvalid = errors.New("darzictl profile is invalid")

// Profile holds the values darzictl remembers between runs. Flags always
// win over what is stored here.
type Profile struct {
	// Server is the REST backend base URL, including the /api prefix.
	Server string `yaml:"server,omitempty"`

	// Email is the last account that logged in successfully.
	Email string `yaml:"email,omitempty"`

	// TokenFile overrides where the bearer token is kept.
	TokenFile string `yaml:"tokenFile,omitempty"`
}

// DefaultPath returns ~/.darziflow/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, dirName, fileName), nil
}

// Verify returns ErrProfileInvalid when a stored value cannot be used.
func (p *Profile) Verify() error {
	if p.Server == "" {
		return nil
	}
	u, err := url.Parse(p.Server)
	if err != nil || !u.IsAbs() {
		return fmt.Errorf("%w: server is not a URL: %s", ErrProfileInvalid, p.Server)
	}
	return nil
}

// Load reads the profile at path. A missing file is an empty profile.
func Load(path string) (*Profile, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Profile{}, nil
		}
		return nil, err
	}
	return Unmarshal(buf)
}

// Unmarshal decodes and verifies a profile from YAML.
func Unmarshal(buf []byte) (*Profile, error) {
	p := &Profile{}
	if err := yaml.Unmarshal(buf, p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileInvalid, err)
	}
	if err := p.Verify(); err != nil {
		return nil, err
	}
	return p, nil
}

// Save writes the profile to path, readable only by the owner.
func (p *Profile) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	buf, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
