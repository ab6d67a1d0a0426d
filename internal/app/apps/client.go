package apps

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/franbull/tftp/internal/pkg/client"
	"github.com/franbull/tftp/internal/pkg/transport"
	"github.com/franbull/tftp/internal/pkg/validate"
)

// ClientAppCfg configures a ClientApp.
type ClientAppCfg interface {
	ApplyClientApp(*ClientApp) error
}

// ClientApp fetches one file from a tftpd server and writes it to stdout.
type ClientApp struct {
	Host    string        `validate:"required"`
	Port    uint16        `validate:"required"`
	Timeout time.Duration `validate:"required"`
}

// NewClientApp creates a new ClientApp.
func NewClientApp(cfgs ...ClientAppCfg) (*ClientApp, error) {
	app := &ClientApp{}
	for _, cfg := range cfgs {
		if err := cfg.ApplyClientApp(app); err != nil {
			return nil, errors.Wrap(err, "apply ClientApp cfg failed")
		}
	}
	if err := validate.Validate().Struct(app); err != nil {
		return nil, errors.Wrap(err, "validate ClientApp failed")
	}
	return app, nil
}

// Run fetches the file named by the first argument.
func (app *ClientApp) Run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("fetch requires a filename argument")
	}
	c, err := client.NewClient(
		client.WithTransport(transport.NewUDPTransport("0.0.0.0")),
		client.WithServer(app.Host, app.Port),
		client.WithTimeout(app.Timeout),
	)
	if err != nil {
		return errors.Wrap(err, "new client failed")
	}
	data, err := c.Fetch(ctx, args[1])
	if err != nil {
		return errors.Wrapf(err, "fetch %s failed", args[1])
	}
	if _, err := os.Stdout.Write(data); err != nil {
		return errors.Wrap(err, "write fetched file failed")
	}
	return nil
}
