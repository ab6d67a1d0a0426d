package apps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type serverAppCfgFunc func(*ServerApp) error

func (f serverAppCfgFunc) ApplyServerApp(app *ServerApp) error { return f(app) }

type clientAppCfgFunc func(*ClientApp) error

func (f clientAppCfgFunc) ApplyClientApp(app *ClientApp) error { return f(app) }

func TestNewServerAppValidatesConfig(t *testing.T) {
	_, err := NewServerApp()
	require.Error(t, err)

	app, err := NewServerApp(serverAppCfgFunc(func(app *ServerApp) error {
		app.Port = 6969
		app.Root = "/tmp/test_tftp"
		app.Timeout = 5 * time.Second
		return nil
	}))
	require.NoError(t, err)
	require.Equal(t, uint16(6969), app.Port)
}

func TestNewServerAppAcceptsRedisInsteadOfRoot(t *testing.T) {
	_, err := NewServerApp(serverAppCfgFunc(func(app *ServerApp) error {
		app.Port = 6969
		app.RedisAddr = "127.0.0.1:6379"
		app.Timeout = 5 * time.Second
		return nil
	}))
	require.NoError(t, err)
}

func TestNewClientAppValidatesConfig(t *testing.T) {
	_, err := NewClientApp()
	require.Error(t, err)

	app, err := NewClientApp(clientAppCfgFunc(func(app *ClientApp) error {
		app.Host = "127.0.0.1"
		app.Port = 6969
		app.Timeout = 5 * time.Second
		return nil
	}))
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", app.Host)
}
