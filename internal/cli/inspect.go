package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dgallion1/billdoc/internal/inspect"
	"github.com/dgallion1/billdoc/internal/layout"
)

func newInspectCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Print the page layout of a generated bill document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outline, err := inspect.ReadFile(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(outline)
			}
			printOutline(cmd.OutOrStdout(), outline)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the outline as JSON")

	return cmd
}

func inches(twips int) float64 {
	return float64(twips) / layout.TwipsPerInch
}

func printOutline(w io.Writer, o *inspect.Outline) {
	orientation := layout.Portrait
	if o.Landscape() {
		orientation = layout.Landscape
	}
	fmt.Fprintf(w, "Title: %s\n", o.Title)
	fmt.Fprintf(w, "Page:  %.2fin x %.2fin (%s), margins %.2fin\n",
		inches(o.PageWidth), inches(o.PageHeight), orientation, inches(o.Margins.Top))
	fmt.Fprintf(w, "Pages: %d, images: %d\n", len(o.Pages), o.Images())

	for _, p := range o.Pages {
		fmt.Fprintf(w, "\n%s\n", p.Header)
		for i, c := range p.Cells {
			switch {
			case c.Empty():
				fmt.Fprintf(w, "  [%d] (empty)\n", i+1)
			case c.HasImage:
				fmt.Fprintf(w, "  [%d] %s  %.2fin x %.2fin\n", i+1, c.Label,
					float64(c.ImageCX)/layout.EMUPerInch, float64(c.ImageCY)/layout.EMUPerInch)
			default:
				fmt.Fprintf(w, "  [%d] %s  (no image)\n", i+1, c.Label)
			}
		}
	}
}
