// Package config reads the optional surf configuration file at
// ~/.config/surf/config.json. A file that fails to parse is renamed to
// config.json.bak and treated as absent, so a corrupt config never blocks
// startup.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Config mirrors the on-disk JSON document. All fields are optional.
type Config struct {
	DefaultPath string `json:"default_path"`
	Threads     int    `json:"threads"`
	MinSize     string `json:"min_size"`
	RPCHost     string `json:"rpc_host"`
	RPCPort     int    `json:"rpc_port"`
	CLIPath     string `json:"cli_path,omitempty"`
	Theme       string `json:"theme,omitempty"`
	Language    string `json:"language,omitempty"`
}

// Path returns the config file location under the user config dir.
func Path() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "surf", "config.json"), nil
}

// Load reads the config file. A missing file yields the zero config and no
// error; an unparsable file is renamed aside and likewise treated as absent.
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return Config{}, err
	}
	return loadFrom(path)
}

func loadFrom(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		// Quarantine the broken file and start fresh.
		_ = os.Rename(path, path+".bak")
		return Config{}, nil
	}
	return cfg, nil
}
