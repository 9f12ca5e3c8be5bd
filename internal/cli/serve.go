package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ssoconfig/internal/server"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON HTTP API",
		Long: `Serve exposes the application operations over HTTP until interrupted.
The listen address defaults to server.addr from config.yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withSession(cmd, opts, func(_ context.Context, s *session) error {
				if addr == "" {
					addr = s.cfg.Server.Addr
				}
				ln, err := net.Listen("tcp", addr)
				if err != nil {
					return systemError("listen on "+addr, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "serving on http://%s\n", ln.Addr())

				log := s.log.Log.Named("server")
				h := &server.Handler{Apps: s.svc, Log: log}
				if err := server.Serve(ctx, ln, server.NewRouter(h, log), log); err != nil {
					return systemError("serve", err)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, host:port")
	return cmd
}
