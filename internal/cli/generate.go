package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/dgallion1/billdoc/internal/assembler"
	"github.com/dgallion1/billdoc/internal/preview"
	"github.com/dgallion1/billdoc/internal/slots"
)

func newGenerateCmd() *cobra.Command {
	var (
		rooms   []string
		output  string
		verbose bool
		lf      layoutFlags
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Build a bill document from screenshots",
		Long: `Loads one screenshot per --room into the matching slot and writes the
paginated document to --output. Rooms without a screenshot are skipped and the
rest are packed in room order.

An empty --output does nothing and exits successfully.`,
		Example: `  # Rooms 1 and 6 on a single page
  billdoc generate --room 1=electric.png --room 6=water.jpg -o bills.docx

  # Portrait A4, three per page
  billdoc generate --room 1=a.png --room 2=b.png --room 3=c.png \
    --orientation portrait --page-size a4 --per-page 3 -o bills.docx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &lf)
			if err != nil {
				return err
			}
			log := newLogger(verbose)

			paths, err := parseRooms(rooms, cfg.Layout.SlotCount)
			if err != nil {
				return err
			}

			collector := slots.NewCollector(cfg.Layout.SlotCount, cfg.PreviewMax)
			idxs := make([]int, 0, len(paths))
			for idx := range paths {
				idxs = append(idxs, idx)
			}
			sort.Ints(idxs)
			for _, idx := range idxs {
				path := paths[idx]
				if !preview.IsSupportedExtension(path) {
					return fmt.Errorf("room %d: unsupported file type: %s", idx+1, path)
				}
				if err := collector.Set(idx, path); err != nil {
					return fmt.Errorf("failed to load image: %w", err)
				}
			}

			asm := assembler.New(cfg.Layout, log)
			res, err := asm.Generate(collector.Snapshot(), output, nil)
			switch {
			case errors.Is(err, assembler.ErrNoImagesSelected):
				return errors.New("no bill screenshots selected: pass at least one --room N=path")
			case errors.Is(err, assembler.ErrNoDestination):
				return nil
			case err != nil:
				return fmt.Errorf("failed to generate document: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, w := range res.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}
			fmt.Fprintf(out, "Document saved to %s (%d page(s), %d image(s))\n", res.Path, res.Pages, res.Placed)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&rooms, "room", nil, "Screenshot for a room as N=path (repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination .docx file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log generation details to stderr")
	lf.register(cmd)

	return cmd
}
