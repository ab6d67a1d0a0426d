package apps

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/franbull/tftp/internal/pkg/block"
	"github.com/franbull/tftp/internal/pkg/server"
	"github.com/franbull/tftp/internal/pkg/transport"
	"github.com/franbull/tftp/internal/pkg/validate"
)

// ServerAppCfg configures a ServerApp.
type ServerAppCfg interface {
	ApplyServerApp(*ServerApp) error
}

// ServerApp is the tftpd server application.
type ServerApp struct {
	Port      uint16        `validate:"required"`
	Root      string        `validate:"required_without=RedisAddr"`
	RedisAddr string
	Timeout   time.Duration `validate:"required"`
}

// NewServerApp creates a new ServerApp.
func NewServerApp(cfgs ...ServerAppCfg) (*ServerApp, error) {
	app := &ServerApp{}
	for _, cfg := range cfgs {
		if err := cfg.ApplyServerApp(app); err != nil {
			return nil, errors.Wrap(err, "apply ServerApp cfg failed")
		}
	}
	if err := validate.Validate().Struct(app); err != nil {
		return nil, errors.Wrap(err, "validate ServerApp failed")
	}
	return app, nil
}

// Run serves read requests until ctx is cancelled.
func (app *ServerApp) Run(ctx context.Context, args []string) error {
	var provider block.Provider
	if app.RedisAddr != "" {
		redisProvider := block.NewRedisProvider(app.RedisAddr)
		defer redisProvider.Close()
		provider = redisProvider
	} else {
		provider = block.NewDirProvider(app.Root)
	}
	s, err := server.NewServer(
		server.WithTransport(transport.NewUDPTransport("0.0.0.0")),
		server.WithBlockProvider(provider),
		server.WithPort(app.Port),
		server.WithIdleTimeout(app.Timeout),
	)
	if err != nil {
		return errors.Wrap(err, "new server failed")
	}
	if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrap(err, "run server failed")
	}
	return nil
}
