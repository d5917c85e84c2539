package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all configuration for the chartkeeper bot
type Config struct {
	// Server settings
	Port int

	// Discord settings
	DiscordToken string
	GuildIDs     []int64

	// Sheet endpoint settings
	SheetAPIURL    string
	SheetAPISecret string // optional; enables the signed bearer token

	// State file paths
	DataFile   string
	NotifyFile string

	// Deadline check settings
	CheckInterval time.Duration

	// Optional TOML overrides (chartkeeper.toml)
	ConfigFile  string
	StatusEmoji map[string]string
	Milestones  []Milestone
}

// Milestone is a reminder lead time override from the config file.
type Milestone struct {
	Days int    `toml:"days"`
	Tag  string `toml:"tag"`
}

type fileConfig struct {
	Emoji      map[string]string `toml:"emoji"`
	Milestones []Milestone       `toml:"milestones"`
}

// Load loads configuration from environment variables and, when present, the
// optional TOML override file.
func Load() (*Config, error) {
	guildIDs, err := parseGuildIDs(os.Getenv("GUILD_IDS"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:           getEnvInt("PORT", 8000),
		DiscordToken:   os.Getenv("DISCORD_TOKEN"),
		GuildIDs:       guildIDs,
		SheetAPIURL:    os.Getenv("SHEET_API_URL"),
		SheetAPISecret: os.Getenv("SHEET_API_SECRET"),
		DataFile:       getEnv("DATA_FILE", "charter_users.json"),
		NotifyFile:     getEnv("NOTIFY_FILE", "sent_notifications.json"),
		CheckInterval:  time.Duration(getEnvInt("CHECK_INTERVAL_HOURS", 24)) * time.Hour,
		ConfigFile:     getEnv("CONFIG_FILE", "chartkeeper.toml"),
	}

	if err := cfg.loadFile(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile merges the optional TOML file into the config. An absent file is
// fine; a file that exists but does not parse is a startup error.
func (c *Config) loadFile() error {
	if _, err := os.Stat(c.ConfigFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", c.ConfigFile, err)
	}

	var fc fileConfig
	if _, err := toml.DecodeFile(c.ConfigFile, &fc); err != nil {
		return fmt.Errorf("parse %s: %w", c.ConfigFile, err)
	}
	c.StatusEmoji = fc.Emoji
	c.Milestones = fc.Milestones
	return nil
}

// validate checks that all required configuration is present
func (c *Config) validate() error {
	if c.DiscordToken == "" {
		return fmt.Errorf("DISCORD_TOKEN is required")
	}
	if c.SheetAPIURL == "" {
		return fmt.Errorf("SHEET_API_URL is required")
	}
	if c.CheckInterval < time.Hour {
		return fmt.Errorf("CHECK_INTERVAL_HOURS must be at least 1")
	}

	tags := make(map[string]bool)
	for _, m := range c.Milestones {
		if m.Days <= 0 {
			return fmt.Errorf("milestone days must be greater than 0, got %d", m.Days)
		}
		if m.Tag == "" {
			return fmt.Errorf("milestone tag must not be empty")
		}
		if tags[m.Tag] {
			return fmt.Errorf("duplicate milestone tag: %s", m.Tag)
		}
		tags[m.Tag] = true
	}
	return nil
}

func parseGuildIDs(value string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("GUILD_IDS contains invalid ID %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// getEnv gets environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets environment variable as int with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
