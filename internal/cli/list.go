package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ssoconfig/internal/service"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the configuration-store applications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, s *session) error {
				names, err := s.svc.ListApplications(ctx)
				if err != nil {
					return err
				}
				return printNames(cmd.OutOrStdout(), opts.jsonMode, names)
			})
		},
	}
}

func newExistsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "exists <application>",
		Short: "Report whether an application is listed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, s *session) error {
				ok, err := s.svc.ApplicationExists(ctx, args[0])
				if err != nil {
					return err
				}
				if opts.jsonMode {
					return printJSON(cmd.OutOrStdout(), existsResult{Application: args[0], Exists: ok})
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), ok)
				return err
			})
		},
	}
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var so service.SearchOptions
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Find applications whose property keys or values contain text",
		Long: `Search matches text case-insensitively against property keys and
values. Use --keys or --values to restrict the match.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, s *session) error {
				names, err := s.svc.Search(ctx, args[0], so)
				if err != nil {
					return err
				}
				return printNames(cmd.OutOrStdout(), opts.jsonMode, names)
			})
		},
	}
	cmd.Flags().BoolVar(&so.Keys, "keys", false, "match property keys")
	cmd.Flags().BoolVar(&so.Values, "values", false, "match property values")
	return cmd
}
