package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreferencesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DAYBOARD_CONFIG_DIR", dir)

	prefs, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultCalendar, prefs.Calendar, "missing file falls back to default")

	require.NoError(t, Save(&Preferences{Calendar: "Work"}))
	prefs, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "Work", prefs.Calendar)

	info, err := os.Stat(filepath.Join(dir, configFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestTimezonePreference(t *testing.T) {
	t.Setenv("DAYBOARD_CONFIG_DIR", t.TempDir())

	assert.Error(t, Save(&Preferences{Calendar: "Work", Timezone: "Mars/Olympus"}))

	require.NoError(t, Save(&Preferences{Calendar: "Work", Timezone: "Europe/Berlin"}))
	env := &Env{Timezone: "Local"}
	assert.Equal(t, "Europe/Berlin", env.Location().String())

	env.Timezone = "UTC"
	assert.Equal(t, "UTC", env.Location().String())
}

func TestLoadEnvDefaults(t *testing.T) {
	t.Setenv("DAYBOARD_STORE", "")
	t.Setenv("DAYBOARD_ADDR", "")

	env, err := LoadEnv("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", env.Addr)
	assert.Equal(t, "sqlite", env.StoreDriver)
	assert.Equal(t, 20, env.RateLimit)
	assert.Equal(t, 24*time.Hour, env.DraftTTL)
	assert.Equal(t, []string{"*"}, env.AllowedOrigins)
}

func TestLoadEnvDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "DAYBOARD_STORE=supabase\nSUPABASE_URL=https://demo.supabase.co\nSUPABASE_SERVICE_KEY=key\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	t.Cleanup(func() {
		os.Unsetenv("DAYBOARD_STORE")
		os.Unsetenv("SUPABASE_URL")
		os.Unsetenv("SUPABASE_SERVICE_KEY")
	})

	env, err := LoadEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "supabase", env.StoreDriver)
	assert.Equal(t, "https://demo.supabase.co", env.SupabaseURL)
}

func TestEnvValidate(t *testing.T) {
	env := &Env{StoreDriver: "postgres", RateLimit: 1}
	assert.Error(t, env.Validate())

	env.DatabaseURL = "postgres://localhost/dayboard"
	assert.NoError(t, env.Validate())

	env.StoreDriver = "mongo"
	assert.Error(t, env.Validate())
}

func TestEnvValidateTimezone(t *testing.T) {
	env := &Env{StoreDriver: "sqlite", RateLimit: 1}
	for _, tz := range []string{"", "Local", "UTC", "Europe/Berlin"} {
		env.Timezone = tz
		assert.NoError(t, env.Validate(), tz)
	}

	env.Timezone = "Mars/Olympus_Mons"
	err := env.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DAYBOARD_TIMEZONE")
}
