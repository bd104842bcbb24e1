package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/billdoc/internal/api"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the browser form and JSON API",
		Long: `Starts the billdoc HTTP service. The form is served at / and the JSON API
under /api. Set BILLDOC_API_KEY to require a bearer token on /api.`,
		Example: `  # Start server on the configured PORT (default 8090)
  billdoc serve

  # Start server on a custom port
  billdoc serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
			return api.ListenAndServe(cmd.Context(), cfg, log)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on")

	return cmd
}
