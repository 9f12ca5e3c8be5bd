package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ssoconfig/pkg/types"
)

func newSetCmd(opts *rootOptions) *cobra.Command {
	var props propertyFlags
	cmd := &cobra.Command{
		Use:   "set <application> [key=value...]",
		Short: "Add or overwrite properties, keeping the others",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bag, err := props.bag(args[1:])
			if err != nil {
				return err
			}
			if bag.Len() == 0 {
				return userError("no properties given")
			}
			return withSession(cmd, opts, func(ctx context.Context, s *session) error {
				if err := checkNewMasks(ctx, s, args[0], bag); err != nil {
					return err
				}
				if err := s.svc.MergeProperties(ctx, args[0], bag); err != nil {
					return err
				}
				return printAction(cmd.OutOrStdout(), opts.jsonMode, actionResult{
					Application: args[0],
					Action:      "updated",
					Properties:  bag.Len(),
				})
			})
		},
	}
	cmd.Flags().StringVarP(&props.file, "file", "f", "", "YAML file of properties")
	cmd.Flags().StringSliceVar(&props.masked, "mask", nil, "keys of new properties to store masked")
	return cmd
}

// checkNewMasks rejects masked properties that app already stores. A
// property's mask is fixed when it is first declared, so set cannot change it.
func checkNewMasks(ctx context.Context, s *session, app string, bag *types.PropertyBag) error {
	var masked []types.Property
	for _, p := range bag.Properties() {
		if p.Masked {
			masked = append(masked, p)
		}
	}
	if len(masked) == 0 {
		return nil
	}
	stored, err := s.svc.GetApplication(ctx, app)
	if err != nil {
		return err
	}
	for _, p := range masked {
		if stored.Properties.Has(p.Key) {
			return userError("--mask %q: property already stored; masks are fixed when a property is first declared, use replace", p.Key)
		}
	}
	return nil
}

func newReplaceCmd(opts *rootOptions) *cobra.Command {
	var (
		props propertyFlags
		yes   bool
	)
	cmd := &cobra.Command{
		Use:   "replace <application> [key=value...]",
		Short: "Make the given properties the complete property set",
		Long: `Replace deletes the application and creates it again with exactly the
given properties. Mask flags are not carried over. The store has no
transactions: if a step after the delete fails the application is left
partially configured or gone, and the command exits with code 3.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return userError("replace deletes and recreates %q; re-run with --yes to proceed", args[0])
			}
			bag, err := props.bag(args[1:])
			if err != nil {
				return err
			}
			return withSession(cmd, opts, func(ctx context.Context, s *session) error {
				if err := s.svc.ReplaceProperties(ctx, args[0], bag); err != nil {
					return err
				}
				return printAction(cmd.OutOrStdout(), opts.jsonMode, actionResult{
					Application: args[0],
					Action:      "replaced",
					Properties:  bag.Len(),
				})
			})
		},
	}
	cmd.Flags().StringVarP(&props.file, "file", "f", "", "YAML file of properties")
	cmd.Flags().StringSliceVar(&props.masked, "mask", nil, "property keys to store masked")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the delete and recreate")
	return cmd
}

func newUnsetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unset <application> <key>...",
		Short: "Remove properties from an application",
		Long: `Unset removes the named properties. The store cannot drop a single
field, so the remaining properties are written back with a full replace.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, s *session) error {
				if err := s.svc.RemoveProperties(ctx, args[0], args[1:]); err != nil {
					return fmt.Errorf("unset: %w", err)
				}
				return printAction(cmd.OutOrStdout(), opts.jsonMode, actionResult{
					Application: args[0],
					Action:      "unset",
				})
			})
		},
	}
}
