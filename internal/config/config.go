package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalid marks configuration problems that abort the whole run.
var ErrInvalid = errors.New("invalid config")

// Series is one monitored manga title. Immutable for the duration of a run.
type Series struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	URL            string `yaml:"url"`
	DriveFolderID  string `yaml:"drive_folder_id"`
	DiscordWebhook string `yaml:"discord_webhook"` // overrides the global webhook
}

type Config struct {
	MaxChaptersPerRun int  `yaml:"max_chapters_per_run"`
	StitchMaxHeight   int  `yaml:"stitch_max_height"`
	JPEGQuality       int  `yaml:"jpeg_quality"`
	ImageWorkers      int  `yaml:"image_workers"`
	TrimWatermarks    bool `yaml:"trim_watermarks"`
	Debug             bool `yaml:"debug"`

	DiscordWebhook    string `yaml:"discord_webhook"`
	RootDriveFolderID string `yaml:"root_drive_folder_id"`
	CredentialsFile   string `yaml:"credentials_file"`
	TokenFile         string `yaml:"token_file"`
	StateFile         string `yaml:"state_file"`
	UserAgent         string `yaml:"user_agent"`

	Series []Series `yaml:"series"`
}

type Options struct {
	IgnoreConfig      bool
	Debug             bool
	MaxChaptersPerRun int
	StitchMaxHeight   int
	ImageWorkers      int
	StateFile         string
	UserAgent         string
	SeriesID          string
}

func DefaultConfig() *Config {
	return &Config{
		MaxChaptersPerRun: 5,
		StitchMaxHeight:   12000,
		JPEGQuality:       85,
		ImageWorkers:      4,
		TrimWatermarks:    true,
		Debug:             false,
		CredentialsFile:   "credentials.json",
		TokenFile:         "token.json",
		StateFile:         "state.json",
		Series:            []Series{},
	}
}

func SaveYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func loadYAML(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	return &c, nil
}

func LoadMerged(opts Options) (*Config, string, error) {
	if opts.IgnoreConfig {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(ignored config)", nil
	}

	activePath, err := ActiveConfigPath()
	if err == ErrNoConfig || activePath == "" {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(default config in memory)\nRun `chapbuddy config init` to create an actual config\n", nil
	}
	if err != nil {
		return nil, "", err
	}

	cfg, err := loadYAML(activePath)
	if err != nil {
		return nil, "", fmt.Errorf("%w: failed to load %s: %v", ErrInvalid, activePath, err)
	}

	mergeConfig(cfg, opts)
	normalizeDefaults(cfg)

	return cfg, activePath, nil
}

func mergeConfig(c *Config, o Options) {
	if o.Debug {
		c.Debug = true
	}
	if o.MaxChaptersPerRun != 0 {
		c.MaxChaptersPerRun = o.MaxChaptersPerRun
	}
	if o.StitchMaxHeight != 0 {
		c.StitchMaxHeight = o.StitchMaxHeight
	}
	if o.ImageWorkers != 0 {
		c.ImageWorkers = o.ImageWorkers
	}
	if o.StateFile != "" {
		c.StateFile = o.StateFile
	}
	if o.UserAgent != "" {
		c.UserAgent = o.UserAgent
	}
	if o.SeriesID != "" {
		kept := c.Series[:0]
		for _, s := range c.Series {
			if s.ID == o.SeriesID {
				kept = append(kept, s)
			}
		}
		c.Series = kept
	}
}

func normalizeDefaults(c *Config) {
	if c.MaxChaptersPerRun == 0 {
		c.MaxChaptersPerRun = 5
	}
	if c.StitchMaxHeight == 0 {
		c.StitchMaxHeight = 12000
	}
	if c.JPEGQuality == 0 {
		c.JPEGQuality = 85
	}
	if c.ImageWorkers == 0 {
		c.ImageWorkers = 4
	}
	if c.CredentialsFile == "" {
		c.CredentialsFile = "credentials.json"
	}
	if c.TokenFile == "" {
		c.TokenFile = "token.json"
	}
	if c.StateFile == "" {
		c.StateFile = "state.json"
	}
}

// Validate checks everything the run command needs before any series is
// touched. Violations abort the whole run.
func (c *Config) Validate() error {
	if c.MaxChaptersPerRun < 1 {
		return fmt.Errorf("%w: max_chapters_per_run must be positive", ErrInvalid)
	}
	if c.StitchMaxHeight < 1 {
		return fmt.Errorf("%w: stitch_max_height must be positive", ErrInvalid)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("%w: jpeg_quality must be in 1..100", ErrInvalid)
	}
	if len(c.Series) == 0 {
		return fmt.Errorf("%w: no series configured", ErrInvalid)
	}

	seen := map[string]bool{}
	for i, s := range c.Series {
		if strings.TrimSpace(s.ID) == "" {
			return fmt.Errorf("%w: series %d has empty id", ErrInvalid, i)
		}
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("%w: series %q has empty name", ErrInvalid, s.ID)
		}
		if strings.TrimSpace(s.URL) == "" {
			return fmt.Errorf("%w: series %q has empty url", ErrInvalid, s.ID)
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: duplicate series id %q", ErrInvalid, s.ID)
		}
		seen[s.ID] = true
	}

	return nil
}

// Webhook returns the notification target for a series, falling back to the
// global webhook.
func (c *Config) Webhook(s Series) string {
	if s.DiscordWebhook != "" {
		return s.DiscordWebhook
	}
	return c.DiscordWebhook
}

func (c *Config) Print() {
	fmt.Printf(" -max_chapters_per_run: %d\n", c.MaxChaptersPerRun)
	fmt.Printf(" -stitch_max_height: %d\n", c.StitchMaxHeight)
	fmt.Printf(" -jpeg_quality: %d\n", c.JPEGQuality)
	fmt.Printf(" -image_workers: %d\n", c.ImageWorkers)
	fmt.Printf(" -trim_watermarks: %t\n", c.TrimWatermarks)
	if c.Debug {
		fmt.Printf(" -debug: %t\n", c.Debug)
	}
	if c.StateFile != "" {
		fmt.Printf(" -state_file: %s\n", c.StateFile)
	}
	if c.DiscordWebhook != "" {
		fmt.Printf(" -discord_webhook: (set)\n")
	}
	if c.RootDriveFolderID != "" {
		fmt.Printf(" -root_drive_folder_id: %s\n", c.RootDriveFolderID)
	}
	fmt.Printf(" -series: %d configured\n", len(c.Series))
	for _, s := range c.Series {
		fmt.Printf("    %s (%s)\n", s.ID, s.Name)
	}
}
