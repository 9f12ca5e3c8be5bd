package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ssoconfig/internal/paths"
	"github.com/mesh-intelligence/ssoconfig/pkg/types"
)

func newInitCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration and storage",
		Long: `Init writes a default config.yaml if none exists and opens the
configured backend once, creating the sqlite database or the postgres
tables as needed. Running it again is harmless.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(_ context.Context, s *session) error {
				w := cmd.OutOrStdout()
				fmt.Fprintln(w, "ssoconfig initialized")
				fmt.Fprintf(w, "config:  %s\n", paths.ConfigFile(s.configDir))
				fmt.Fprintf(w, "backend: %s\n", s.cfg.Backend)
				if s.cfg.Backend == types.BackendSQLite {
					fmt.Fprintf(w, "data:    %s\n", s.cfg.DataDir)
				}
				return nil
			})
		},
	}
}
