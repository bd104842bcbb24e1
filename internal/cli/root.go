package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dgallion1/billdoc/internal/config"
	"github.com/dgallion1/billdoc/internal/layout"
)

// NewRootCmd assembles the billdoc command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "billdoc",
		Short: "Assemble bill screenshots into a paginated Word document",
		Long: `billdoc collects up to eight bill screenshots, one per room, and lays them
out two per page in a .docx file with a "Bills (Page N)" header on every page
and a "Room N" label above every image.

Use "generate" for one-shot runs, "form" for the terminal form, or "serve"
for the browser form.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newInspectCmd())
	cmd.AddCommand(newFormCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// layoutFlags binds command-line overrides for the env-derived layout.
type layoutFlags struct {
	orientation string
	pageSize    string
	perPage     int
	width       float64
	height      float64
	spacing     float64
	margins     float64
	title       string
}

func (lf *layoutFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&lf.orientation, "orientation", "", "Page orientation: portrait or landscape")
	f.StringVar(&lf.pageSize, "page-size", "", "Page size: letter or a4")
	f.IntVar(&lf.perPage, "per-page", 0, "Images per page")
	f.Float64Var(&lf.width, "width", 0, "Screenshot width in inches")
	f.Float64Var(&lf.height, "height", 0, "Screenshot height in inches")
	f.Float64Var(&lf.spacing, "spacing", 0, "Horizontal spacing between images in inches")
	f.Float64Var(&lf.margins, "margins", 0, "Page margins in inches")
	f.StringVar(&lf.title, "title", "", "Document title")
}

// apply overlays the flags the user actually set onto cfg.
func (lf *layoutFlags) apply(cmd *cobra.Command, cfg *layout.Config) {
	f := cmd.Flags()
	if f.Changed("orientation") {
		cfg.Orientation = layout.Orientation(strings.ToLower(lf.orientation))
	}
	if f.Changed("page-size") {
		cfg.PageSize = strings.ToLower(lf.pageSize)
	}
	if f.Changed("per-page") {
		cfg.ImagesPerPage = lf.perPage
	}
	if f.Changed("width") {
		cfg.ScreenshotWidth = lf.width
	}
	if f.Changed("height") {
		cfg.ScreenshotHeight = lf.height
	}
	if f.Changed("spacing") {
		cfg.HorizontalSpacing = lf.spacing
	}
	if f.Changed("margins") {
		cfg.PageMargins = lf.margins
	}
	if f.Changed("title") {
		cfg.Title = lf.title
	}
}

// loadConfig reads env config, applies flag overrides and validates.
func loadConfig(cmd *cobra.Command, lf *layoutFlags) (config.Config, error) {
	cfg := config.Load()
	if lf != nil {
		lf.apply(cmd, &cfg.Layout)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// parseRooms turns repeated N=path values into 0-based slot indexes.
func parseRooms(values []string, slotCount int) (map[int]string, error) {
	rooms := make(map[int]string, len(values))
	for _, v := range values {
		num, path, ok := strings.Cut(v, "=")
		if !ok || strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("invalid --room %q: want N=path", v)
		}
		n, err := strconv.Atoi(strings.TrimSpace(num))
		if err != nil {
			return nil, fmt.Errorf("invalid --room %q: %w", v, err)
		}
		if n < 1 || n > slotCount {
			return nil, fmt.Errorf("invalid --room %q: room must be between 1 and %d", v, slotCount)
		}
		if _, dup := rooms[n-1]; dup {
			return nil, fmt.Errorf("room %d given more than once", n)
		}
		rooms[n-1] = strings.TrimSpace(path)
	}
	return rooms, nil
}
