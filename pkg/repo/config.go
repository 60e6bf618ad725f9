package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config stores repository-local settings in .grit/config.toml.
type Config struct {
	User  UserConfig  `toml:"user"`
	Store StoreConfig `toml:"store"`
	Sign  SignConfig  `toml:"sign"`
}

// UserConfig identifies the default commit author.
type UserConfig struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
}

// StoreConfig tunes the object store.
type StoreConfig struct {
	// DisableCompression turns off zstd compression of loose objects.
	DisableCompression bool `toml:"disable_compression"`
}

// SignConfig configures SSH commit signing.
type SignConfig struct {
	// KeyPath is the SSH private key used to sign commits; empty disables
	// signing.
	KeyPath string `toml:"key_path"`
}

// AuthorString renders the configured identity as "Name <email>", or ""
// when unset.
func (c *Config) AuthorString() string {
	name := strings.TrimSpace(c.User.Name)
	email := strings.TrimSpace(c.User.Email)
	switch {
	case name == "" && email == "":
		return ""
	case email == "":
		return name
	case name == "":
		return "<" + email + ">"
	default:
		return name + " <" + email + ">"
	}
}

func (r *Repo) configPath() string {
	return filepath.Join(r.GritDir, "config.toml")
}

// ReadConfig reads .grit/config.toml. A missing file returns a zero config.
func (r *Repo) ReadConfig() (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(r.configPath(), &cfg); err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return &cfg, nil
}

// WriteConfig atomically writes .grit/config.toml and re-applies it to the
// open repository.
func (r *Repo) WriteConfig(cfg *Config) error {
	if cfg == nil {
		cfg = &Config{}
	}

	tmp, err := os.CreateTemp(r.GritDir, ".config-tmp-*")
	if err != nil {
		return fmt.Errorf("write config: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	enc := toml.NewEncoder(tmp)
	if err := enc.Encode(cfg); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: close: %w", err)
	}
	if err := os.Rename(tmpName, r.configPath()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: rename: %w", err)
	}

	r.applyConfig()
	return nil
}

// applyConfig pushes config-derived settings into the open handles.
// Config errors are ignored here: an unreadable config must not make the
// repository unopenable.
func (r *Repo) applyConfig() {
	cfg, err := r.ReadConfig()
	if err != nil {
		return
	}
	r.Store.SetCompression(!cfg.Store.DisableCompression)
}
