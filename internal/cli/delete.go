package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <application>",
		Short: "Delete an application and all its properties",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, s *session) error {
				if err := s.svc.DeleteApplication(ctx, args[0]); err != nil {
					return err
				}
				return printAction(cmd.OutOrStdout(), opts.jsonMode, actionResult{
					Application: args[0],
					Action:      "deleted",
				})
			})
		},
	}
}
