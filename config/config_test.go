package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "missing.json"))

	assert.Equal(t, StoreBackendFile, cfg.StoreBackend)
	assert.Equal(t, 3, cfg.Variations)
	assert.Equal(t, 600*time.Millisecond, cfg.CropDebounce.Duration)
	assert.Equal(t, 60, cfg.VideoMaxPolls)
	assert.NoError(t, cfg.Validate())
}

func TestSaveAndLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := Load(file)
	cfg.Variations = 5
	cfg.ImageModel = "test/image-model"

	require.NoError(t, cfg.Save(file))

	loaded := Load(file)
	assert.Equal(t, 5, loaded.Variations)
	assert.Equal(t, "test/image-model", loaded.ImageModel)
	// Untouched fields keep their defaults.
	assert.Equal(t, 0.95, loaded.TopP)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvPrefix+"VARIATIONS", "4")
	t.Setenv(EnvPrefix+"CROP_DEBOUNCE", "250ms")
	t.Setenv(EnvPrefix+"TOP_P", "0.5")
	t.Setenv(EnvPrefix+"ALLOWED_ORIGINS", "http://a.test,http://b.test")
	t.Setenv(EnvPrefix+"TOP_K", "not-a-number")

	cfg := Load(filepath.Join(t.TempDir(), "config.json"))

	assert.Equal(t, 4, cfg.Variations)
	assert.Equal(t, 250*time.Millisecond, cfg.CropDebounce.Duration)
	assert.Equal(t, 0.5, cfg.TopP)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, 32, cfg.TopK, "invalid numbers fall back to the current value")
}

func TestLoad_CorruptFileKeepsDefaults(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(file, []byte("{not json"), 0644))

	cfg := Load(file)
	assert.Equal(t, "google/gemini-2.5-flash-image", cfg.ImageModel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero variations", func(c *Config) { c.Variations = 0 }, true},
		{"unknown backend", func(c *Config) { c.StoreBackend = "redis" }, true},
		{"postgres without url", func(c *Config) { c.StoreBackend = StoreBackendPostgres }, true},
		{"postgres with url", func(c *Config) {
			c.StoreBackend = StoreBackendPostgres
			c.DatabaseURL = "postgres://localhost/productscene"
		}, false},
		{"zero polls", func(c *Config) { c.VideoMaxPolls = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.setDefaultValues()
			tt.mutate(cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestAPIKeys(t *testing.T) {
	keyring.MockInit()

	t.Run("Keyring", func(t *testing.T) {
		assert.Equal(t, "", GetAPIKey(ProviderKeyName))

		require.NoError(t, SetAPIKey(ProviderKeyName, "from-keyring"))
		assert.Equal(t, "from-keyring", GetAPIKey(ProviderKeyName))

		require.NoError(t, DeleteAPIKey(ProviderKeyName))
		assert.Equal(t, "", GetAPIKey(ProviderKeyName))
		assert.NoError(t, DeleteAPIKey(ProviderKeyName), "deleting a missing key is not an error")
	})

	t.Run("EnvWins", func(t *testing.T) {
		require.NoError(t, SetAPIKey(VideoKeyName, "from-keyring"))
		t.Setenv(EnvPrefix+"VIDEO_API_KEY", "from-env")
		assert.Equal(t, "from-env", GetAPIKey(VideoKeyName))
	})
}

func TestSave_WritesDurationsAsStrings(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.json")
	cfg := Load(file)
	cfg.SaveDebounce = Duration{2 * time.Second}
	require.NoError(t, cfg.Save(file))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"video_poll_interval": "10s"`)
	assert.Contains(t, string(data), `"crop_debounce": "600ms"`)

	loaded := Load(file)
	assert.Equal(t, 2*time.Second, loaded.SaveDebounce.Duration)
	assert.Equal(t, 10*time.Second, loaded.VideoPollInterval.Duration)
}

func TestLoad_AcceptsNanosecondDurations(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"crop_debounce": 250000000}`), 0644))

	cfg := Load(file)
	assert.Equal(t, 250*time.Millisecond, cfg.CropDebounce.Duration)
}

func TestDuration_RejectsGarbage(t *testing.T) {
	var d Duration
	assert.Error(t, d.UnmarshalJSON([]byte(`"soon"`)))
	assert.Error(t, d.UnmarshalJSON([]byte(`true`)))
}
