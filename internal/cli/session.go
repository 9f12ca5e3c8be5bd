package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/ssoconfig/internal/logging"
	"github.com/mesh-intelligence/ssoconfig/internal/service"
	"github.com/mesh-intelligence/ssoconfig/pkg/store"
	"github.com/mesh-intelligence/ssoconfig/pkg/types"
)

// session is the state a command needs to talk to the store. Callers must
// Close it.
type session struct {
	cfg       types.Config
	configDir string
	backend   types.Backend
	svc       *service.Service
	log       *logging.Logger
}

// openSession loads the configuration, sets up logging on the command's
// stderr and opens the configured backend.
func openSession(ctx context.Context, cmd *cobra.Command, opts *rootOptions) (*session, error) {
	cfg, configDir, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	log := logging.New()
	if err := log.InitWriter(cmd.ErrOrStderr(), cfg.LogLevel); err != nil {
		return nil, userError("invalid log level %q", cfg.LogLevel)
	}

	backend, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, systemError(fmt.Sprintf("open %s backend", cfg.Backend), err)
	}
	log.Log.Debug("backend opened",
		zap.String("backend", cfg.Backend),
		zap.String("data_dir", cfg.DataDir))

	return &session{
		cfg:       cfg,
		configDir: configDir,
		backend:   backend,
		svc:       service.New(backend, cfg, log.Log.Named("service")),
		log:       log,
	}, nil
}

func (s *session) Close() error {
	err := s.backend.Close()
	_ = s.log.Log.Sync()
	return err
}

// withSession opens a session, runs fn and closes the session.
func withSession(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openSession(ctx, cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}
