package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Env            string
	DiscordToken   string
	DiscordAppID   string
	DiscordGuildID string
	OwnerID        string
	LogChannelID   string

	GeminiAPIKey      string
	GeminiModel       string
	GoogleAPIKey      string
	GoogleCXID        string
	PexelsAPIKey      string
	VTAPIKey          string
	LinkPreviewAPIKey string
	SecretPassword    string

	DataDir             string
	DownloadDir         string
	DatabaseURL         string
	AllowedCodePrefixes []string

	MaxMediaDurationSec int
	MaxMediaBytes       int64
	MediaGrace          time.Duration

	CarouselTTL      time.Duration
	ConfirmTTL       time.Duration
	GenerationTTL    time.Duration
	LogDeleteTTL     time.Duration
	PresenceInterval time.Duration
	ScanMaxWait      time.Duration
	CommandTimeout   time.Duration
}

func (c *Config) Validate() error {
	if c.DiscordToken == "" {
		return fmt.Errorf("DISCORD_TOKEN is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	if c.DownloadDir == "" {
		return fmt.Errorf("DOWNLOAD_DIR is required")
	}
	if len(c.AllowedCodePrefixes) == 0 {
		return fmt.Errorf("ALLOWED_CODE_PREFIXES must list at least one prefix")
	}
	for _, p := range c.AllowedCodePrefixes {
		if strings.TrimSpace(p) == "" || strings.ContainsAny(p, " \t\n") {
			return fmt.Errorf("ALLOWED_CODE_PREFIXES contains an invalid prefix %q", p)
		}
	}
	if c.MaxMediaDurationSec <= 0 {
		return fmt.Errorf("MAX_MEDIA_DURATION_SEC must be positive, got %d", c.MaxMediaDurationSec)
	}
	if c.MaxMediaBytes <= 0 {
		return fmt.Errorf("MAX_MEDIA_BYTES must be positive, got %d", c.MaxMediaBytes)
	}
	for _, d := range c.durationChecks() {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}
	return nil
}

type durationField struct {
	name  string
	value time.Duration
}

func (c *Config) durationChecks() []durationField {
	return []durationField{
		{name: "CAROUSEL_TTL", value: c.CarouselTTL},
		{name: "CONFIRM_TTL", value: c.ConfirmTTL},
		{name: "GENERATION_TTL", value: c.GenerationTTL},
		{name: "LOG_DELETE_TTL", value: c.LogDeleteTTL},
		{name: "PRESENCE_INTERVAL", value: c.PresenceInterval},
		{name: "SCAN_MAX_WAIT", value: c.ScanMaxWait},
		{name: "COMMAND_TIMEOUT", value: c.CommandTimeout},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

type ProviderStatus struct {
	Name       string
	Configured bool
}

// Providers reports which optional integrations have credentials.
func (c *Config) Providers() []ProviderStatus {
	return []ProviderStatus{
		{Name: "Gemini", Configured: c.GeminiAPIKey != ""},
		{Name: "Google Search", Configured: c.GoogleAPIKey != "" && c.GoogleCXID != ""},
		{Name: "Pexels", Configured: c.PexelsAPIKey != ""},
		{Name: "VirusTotal", Configured: c.VTAPIKey != ""},
		{Name: "LinkPreview", Configured: c.LinkPreviewAPIKey != ""},
		{Name: "Owner", Configured: c.OwnerID != ""},
		{Name: "Log channel", Configured: c.LogChannelID != ""},
		{Name: "Secret password", Configured: c.SecretPassword != ""},
		{Name: "Audit database", Configured: c.DatabaseURL != ""},
	}
}
