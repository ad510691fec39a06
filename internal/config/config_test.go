package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Series = []Series{
		{ID: "solo", Name: "Solo Max", URL: "https://site.test/solo"},
		{ID: "omni", Name: "Omni Reader", URL: "https://site.test/omni"},
	}
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 5, cfg.MaxChaptersPerRun)
	assert.Equal(t, 12000, cfg.StitchMaxHeight)
	assert.Equal(t, 85, cfg.JPEGQuality)
	assert.Equal(t, 4, cfg.ImageWorkers)
	assert.True(t, cfg.TrimWatermarks)
	assert.Equal(t, "state.json", cfg.StateFile)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")

	want := validConfig()
	want.DiscordWebhook = "https://discord.test/hook"
	want.Series[0].DriveFolderID = "folder-123"
	require.NoError(t, SaveYAML(want, path))

	got, err := loadYAML(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestMergeConfigOverrides(t *testing.T) {
	cfg := validConfig()
	mergeConfig(cfg, Options{
		Debug:             true,
		MaxChaptersPerRun: 2,
		ImageWorkers:      8,
		StateFile:         "/tmp/other.json",
	})

	assert.True(t, cfg.Debug)
	assert.Equal(t, 2, cfg.MaxChaptersPerRun)
	assert.Equal(t, 8, cfg.ImageWorkers)
	assert.Equal(t, "/tmp/other.json", cfg.StateFile)
	// untouched options keep config values
	assert.Equal(t, 85, cfg.JPEGQuality)
}

func TestMergeConfigSeriesFilter(t *testing.T) {
	cfg := validConfig()
	mergeConfig(cfg, Options{SeriesID: "omni"})

	require.Len(t, cfg.Series, 1)
	assert.Equal(t, "omni", cfg.Series[0].ID)

	// unknown id leaves nothing, caught later by Validate
	cfg2 := validConfig()
	mergeConfig(cfg2, Options{SeriesID: "nope"})
	assert.Empty(t, cfg2.Series)
}

func TestNormalizeDefaultsFillsZeroValues(t *testing.T) {
	cfg := &Config{}
	normalizeDefaults(cfg)

	assert.Equal(t, 5, cfg.MaxChaptersPerRun)
	assert.Equal(t, 12000, cfg.StitchMaxHeight)
	assert.Equal(t, 85, cfg.JPEGQuality)
	assert.Equal(t, "credentials.json", cfg.CredentialsFile)
	assert.Equal(t, "token.json", cfg.TokenFile)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"valid", func(*Config) {}, true},
		{"no series", func(c *Config) { c.Series = nil }, false},
		{"zero cap", func(c *Config) { c.MaxChaptersPerRun = 0 }, false},
		{"negative height", func(c *Config) { c.StitchMaxHeight = -1 }, false},
		{"quality too high", func(c *Config) { c.JPEGQuality = 101 }, false},
		{"empty id", func(c *Config) { c.Series[0].ID = "  " }, false},
		{"empty url", func(c *Config) { c.Series[1].URL = "" }, false},
		{"duplicate ids", func(c *Config) { c.Series[1].ID = "solo" }, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalid)
			}
		})
	}
}

func TestWebhookFallback(t *testing.T) {
	cfg := validConfig()
	cfg.DiscordWebhook = "https://discord.test/global"
	cfg.Series[0].DiscordWebhook = "https://discord.test/solo"

	assert.Equal(t, "https://discord.test/solo", cfg.Webhook(cfg.Series[0]))
	assert.Equal(t, "https://discord.test/global", cfg.Webhook(cfg.Series[1]))
}

func TestLoadMergedIgnoreConfig(t *testing.T) {
	cfg, used, err := LoadMerged(Options{IgnoreConfig: true, MaxChaptersPerRun: 3})
	require.NoError(t, err)

	assert.Equal(t, "(ignored config)", used)
	assert.Equal(t, 3, cfg.MaxChaptersPerRun)
}
