package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/kiosko/internal/config"
)

type envConfig struct {
	Env            string `env:"ENV" envDefault:"production"`
	DiscordToken   string `env:"DISCORD_TOKEN,required"`
	DiscordAppID   string `env:"CLIENT_ID"`
	DiscordGuildID string `env:"DISCORD_GUILD_ID"`
	OwnerID        string `env:"OWNER_ID"`
	LogChannelID   string `env:"LOG_CHANNEL_ID"`

	GeminiAPIKey      string `env:"GEMINI_API_KEY"`
	GeminiModel       string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	GoogleAPIKey      string `env:"GOOGLE_API_KEY"`
	GoogleCXID        string `env:"GOOGLE_CX_ID"`
	PexelsAPIKey      string `env:"PEXELS_API_KEY"`
	VTAPIKey          string `env:"VT_API_KEY"`
	LinkPreviewAPIKey string `env:"LINKPREVIEW_API_KEY"`
	SecretPassword    string `env:"SECRET_PASSWORD"`

	DataDir             string   `env:"DATA_DIR" envDefault:"./data"`
	DownloadDir         string   `env:"DOWNLOAD_DIR" envDefault:"./downloads"`
	DatabaseURL         string   `env:"DATABASE_URL"`
	AllowedCodePrefixes []string `env:"ALLOWED_CODE_PREFIXES" envSeparator:"," envDefault:"script_,verify_,auth_,access_,key_"`

	MaxMediaDurationSec int           `env:"MAX_MEDIA_DURATION_SEC" envDefault:"600"`
	MaxMediaBytes       int64         `env:"MAX_MEDIA_BYTES" envDefault:"26214400"`
	MediaGrace          time.Duration `env:"MEDIA_GRACE" envDefault:"5s"`

	CarouselTTL      time.Duration `env:"CAROUSEL_TTL" envDefault:"5m"`
	ConfirmTTL       time.Duration `env:"CONFIRM_TTL" envDefault:"60s"`
	GenerationTTL    time.Duration `env:"GENERATION_TTL" envDefault:"15m"`
	LogDeleteTTL     time.Duration `env:"LOG_DELETE_TTL" envDefault:"24h"`
	PresenceInterval time.Duration `env:"PRESENCE_INTERVAL" envDefault:"8s"`
	ScanMaxWait      time.Duration `env:"SCAN_MAX_WAIT" envDefault:"30s"`
	CommandTimeout   time.Duration `env:"COMMAND_TIMEOUT" envDefault:"3m"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	prefixes := make([]string, 0, len(raw.AllowedCodePrefixes))
	for _, p := range raw.AllowedCodePrefixes {
		if p = strings.TrimSpace(p); p != "" {
			prefixes = append(prefixes, p)
		}
	}

	cfg := &internalconfig.Config{
		Env:                 raw.Env,
		DiscordToken:        raw.DiscordToken,
		DiscordAppID:        raw.DiscordAppID,
		DiscordGuildID:      raw.DiscordGuildID,
		OwnerID:             raw.OwnerID,
		LogChannelID:        raw.LogChannelID,
		GeminiAPIKey:        raw.GeminiAPIKey,
		GeminiModel:         raw.GeminiModel,
		GoogleAPIKey:        raw.GoogleAPIKey,
		GoogleCXID:          raw.GoogleCXID,
		PexelsAPIKey:        raw.PexelsAPIKey,
		VTAPIKey:            raw.VTAPIKey,
		LinkPreviewAPIKey:   raw.LinkPreviewAPIKey,
		SecretPassword:      raw.SecretPassword,
		DataDir:             raw.DataDir,
		DownloadDir:         raw.DownloadDir,
		DatabaseURL:         raw.DatabaseURL,
		AllowedCodePrefixes: prefixes,
		MaxMediaDurationSec: raw.MaxMediaDurationSec,
		MaxMediaBytes:       raw.MaxMediaBytes,
		MediaGrace:          raw.MediaGrace,
		CarouselTTL:         raw.CarouselTTL,
		ConfirmTTL:          raw.ConfirmTTL,
		GenerationTTL:       raw.GenerationTTL,
		LogDeleteTTL:        raw.LogDeleteTTL,
		PresenceInterval:    raw.PresenceInterval,
		ScanMaxWait:         raw.ScanMaxWait,
		CommandTimeout:      raw.CommandTimeout,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
