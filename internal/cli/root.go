// Package cli implements the ssoconfig command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ssoconfig/pkg/types"
)

// Exit codes.
const (
	ExitSuccess        = 0
	ExitUserError      = 1 // bad input, unknown or duplicate application
	ExitSystemError    = 2 // store or environment failure
	ExitPartialFailure = 3 // the application was left partially configured or deleted
)

// ExitError carries the exit code a command wants the process to end with.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode returns the exit code for err. Errors that are not ExitErrors are
// classified by the sentinel or error type they wrap. Anything else,
// including cobra's argument and flag errors, is a usage error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	switch {
	case types.IsPartialFailure(err):
		return ExitPartialFailure
	case types.IsStoreFailure(err),
		errors.Is(err, types.ErrApplicationDisabled),
		errors.Is(err, types.ErrFieldNotDeclared),
		errors.Is(err, types.ErrDuplicateField),
		errors.Is(err, types.ErrInvalidFieldCount),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return ExitSystemError
	default:
		return ExitUserError
	}
}

// userError reports a problem with the invocation.
func userError(format string, args ...any) error {
	return &ExitError{Code: ExitUserError, Message: fmt.Sprintf(format, args...)}
}

// systemError reports a failure of the environment or the store.
func systemError(message string, err error) error {
	return &ExitError{Code: ExitSystemError, Message: message, Err: err}
}

// rootOptions holds the global flag values shared by every subcommand.
type rootOptions struct {
	configDir string
	dataDir   string
	backend   string
	logLevel  string
	jsonMode  bool
}

// NewRootCmd creates the top-level "ssoconfig" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "ssoconfig",
		Short: "Manage SSO application configuration properties",
		Long: "ssoconfig creates, reads, updates and deletes applications and their\n" +
			"configuration properties in an SSO admin store.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configDir, "config-dir", "", "configuration directory (env SSOCONFIG_CONFIG_DIR)")
	pf.StringVar(&opts.dataDir, "data-dir", "", "data directory for the sqlite backend (env SSOCONFIG_DATA_DIR)")
	pf.StringVar(&opts.backend, "backend", "", "store backend: sqlite, postgres or memory")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.BoolVar(&opts.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(
		newInitCmd(opts),
		newCreateCmd(opts),
		newGetCmd(opts),
		newSetCmd(opts),
		newReplaceCmd(opts),
		newUnsetCmd(opts),
		newDeleteCmd(opts),
		newListCmd(opts),
		newExistsCmd(opts),
		newSearchCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)

	return root
}

// Execute runs the root command and exits with the matching code.
func Execute() {
	os.Exit(run(NewRootCmd(), os.Args[1:], os.Stderr))
}

func run(root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	err := root.Execute()
	if err != nil {
		fmt.Fprintf(stderr, "ssoconfig: %v\n", err)
	}
	return ExitCode(err)
}
