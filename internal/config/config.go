package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/billdoc/internal/layout"
)

type Config struct {
	Port string

	// Auth. Empty disables bearer checks on /api.
	APIKey string

	// Session state
	DataDir    string
	SessionTTL time.Duration

	// Upload limits
	MaxUploadBytes int64
	PreviewMax     int

	// Document layout
	Layout layout.Config
}

func Load() Config {
	def := layout.DefaultConfig()
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("BILLDOC_API_KEY"),

		DataDir:    envOr("BILLDOC_DATA_DIR", filepath.Join(os.TempDir(), "billdoc")),
		SessionTTL: envDuration("SESSION_TTL", 1*time.Hour),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 20<<20), // 20MB
		PreviewMax:     envInt("BILLDOC_PREVIEW_MAX", 150),

		Layout: layout.Config{
			Orientation:       layout.Orientation(strings.ToLower(envOr("BILLDOC_ORIENTATION", string(def.Orientation)))),
			PageSize:          strings.ToLower(envOr("BILLDOC_PAGE_SIZE", def.PageSize)),
			ScreenshotWidth:   envFloat("BILLDOC_SCREENSHOT_WIDTH", def.ScreenshotWidth),
			ScreenshotHeight:  envFloat("BILLDOC_SCREENSHOT_HEIGHT", def.ScreenshotHeight),
			HorizontalSpacing: envFloat("BILLDOC_HORIZONTAL_SPACING", def.HorizontalSpacing),
			PageMargins:       envFloat("BILLDOC_PAGE_MARGINS", def.PageMargins),
			ImagesPerPage:     envInt("BILLDOC_IMAGES_PER_PAGE", def.ImagesPerPage),
			LabelFontSize:     envInt("BILLDOC_LABEL_FONT_SIZE", def.LabelFontSize),
			HeaderFontSize:    envInt("BILLDOC_HEADER_FONT_SIZE", def.HeaderFontSize),
			Title:             envOr("BILLDOC_TITLE", def.Title),
			SlotCount:         envInt("BILLDOC_SLOTS", def.SlotCount),
		},
	}

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20 << 20
	}
	if cfg.PreviewMax <= 0 {
		cfg.PreviewMax = 150
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("BILLDOC_DATA_DIR is required")
	}
	if err := c.Layout.Validate(); err != nil {
		return fmt.Errorf("layout: %w", err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
