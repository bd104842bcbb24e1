package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dgallion1/billdoc/internal/assembler"
	"github.com/dgallion1/billdoc/internal/preview"
	"github.com/dgallion1/billdoc/internal/slots"
	"github.com/dgallion1/billdoc/internal/tui"
)

func newFormCmd() *cobra.Command {
	var (
		rooms []string
		lf    layoutFlags
	)

	cmd := &cobra.Command{
		Use:   "form",
		Short: "Open the terminal form",
		Long: `Opens an interactive form with one row per room. Select a row and press
enter to type a screenshot path, then press g to choose where to save the
document.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &lf)
			if err != nil {
				return err
			}
			paths, err := parseRooms(rooms, cfg.Layout.SlotCount)
			if err != nil {
				return err
			}

			// The alt screen owns the terminal, so logs are dropped.
			log := slog.New(slog.NewTextHandler(io.Discard, nil))

			collector := slots.NewCollector(cfg.Layout.SlotCount, cfg.PreviewMax)
			for idx, path := range paths {
				if !preview.IsSupportedExtension(path) {
					return fmt.Errorf("room %d: unsupported file type: %s", idx+1, path)
				}
				if err := collector.Set(idx, path); err != nil {
					return fmt.Errorf("failed to load image: %w", err)
				}
			}
			return tui.Run(tui.New(collector, assembler.New(cfg.Layout, log), log))
		},
	}

	cmd.Flags().StringArrayVar(&rooms, "room", nil, "Pre-select a screenshot for a room as N=path (repeatable)")
	lf.register(cmd)

	return cmd
}
