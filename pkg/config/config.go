// Package config holds the environment configuration of the service and the
// preferences the CLI keeps in ~/.config/dayboard/config.json.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/harrisonrobin/dayboard/pkg/util"
)

const (
	xdgAppName = "dayboard"
	configFile = "config.json"

	DefaultCalendar = "Tasks"
)

// Preferences are the user settings persisted between CLI runs.
type Preferences struct {
	Calendar string `json:"calendar"`
	Timezone string `json:"timezone,omitempty"`
}

// Location returns the preferred timezone, or nil when none is set.
func (p *Preferences) Location() (*time.Location, error) {
	if p.Timezone == "" {
		return nil, nil
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", p.Timezone, err)
	}
	return loc, nil
}

// GetConfigDir is $DAYBOARD_CONFIG_DIR or ~/.config/dayboard. Credentials,
// the OAuth token, the event index and the sweep table live there too.
func GetConfigDir() (string, error) {
	if dir := os.Getenv("DAYBOARD_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}

func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads the preferences. A missing file yields the defaults.
func Load() (*Preferences, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	prefs := &Preferences{}
	b, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal(b, prefs); err != nil {
			return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
	}
	if prefs.Calendar == "" {
		prefs.Calendar = DefaultCalendar
	}
	return prefs, nil
}

// Save validates prefs and replaces the config file.
func Save(prefs *Preferences) error {
	if _, err := prefs.Location(); err != nil {
		return err
	}
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	if err := util.WriteJSON(path, prefs); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
