package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func newCreateCmd(opts *rootOptions) *cobra.Command {
	var (
		description string
		props       propertyFlags
	)
	cmd := &cobra.Command{
		Use:   "create <application> [key=value...]",
		Short: "Create an application with its properties",
		Long: `Create registers a new application in the admin store and writes its
initial properties. Properties come from --file and then from key=value
arguments; later values win.

Example:
  ssoconfig create Billing host=db1 port=5432
  ssoconfig create Billing --file billing.yaml --mask password`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bag, err := props.bag(args[1:])
			if err != nil {
				return err
			}
			return withSession(cmd, opts, func(ctx context.Context, s *session) error {
				if err := s.svc.CreateApplication(ctx, args[0], description, bag); err != nil {
					return err
				}
				return printAction(cmd.OutOrStdout(), opts.jsonMode, actionResult{
					Application: args[0],
					Action:      "created",
					Properties:  bag.Len(),
				})
			})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "application description")
	cmd.Flags().StringVarP(&props.file, "file", "f", "", "YAML file of properties")
	cmd.Flags().StringSliceVar(&props.masked, "mask", nil, "property keys to store masked")
	return cmd
}
