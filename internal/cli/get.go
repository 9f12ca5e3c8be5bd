package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func newGetCmd(opts *rootOptions) *cobra.Command {
	var reveal bool
	cmd := &cobra.Command{
		Use:   "get <application>",
		Short: "Show an application and its properties",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, s *session) error {
				app, err := s.svc.GetApplication(ctx, args[0])
				if err != nil {
					return err
				}
				if opts.jsonMode {
					if !reveal {
						app.Properties = app.Properties.Redacted(maskPlaceholder)
					}
					return printJSON(cmd.OutOrStdout(), app)
				}
				printApplication(cmd.OutOrStdout(), app, reveal)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&reveal, "reveal", false, "print masked values in clear")
	return cmd
}
