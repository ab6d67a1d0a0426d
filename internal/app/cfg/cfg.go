// Package cfg implements functionaltiy to configure an app.
//
// The configuration objects defined here need only be implemented once,
// but can be applied to multiple types.
//
// In order to add support for a new type, the configuration
// need only implement an ApplyX method.
package cfg

import (
	"time"

	"github.com/franbull/tftp/internal"
	"github.com/franbull/tftp/internal/app/apps"
)

// PortCfg is configuration for the server's well-known port.
type PortCfg struct {
	port uint16
}

// NewPortCfg creates a new PortCfg from the given port.
func NewPortCfg(port uint16) *PortCfg {
	return &PortCfg{
		port: port,
	}
}

// PortFromEnv creates a new PortCfg from the current environment.
func PortFromEnv() *PortCfg {
	return &PortCfg{
		port: uint16(internal.Port),
	}
}

// ApplyServerApp applies the PortCfg to a ServerApp.
func (cfg PortCfg) ApplyServerApp(app *apps.ServerApp) error {
	app.Port = cfg.port
	return nil
}

// ApplyClientApp applies the PortCfg to a ClientApp.
func (cfg PortCfg) ApplyClientApp(app *apps.ClientApp) error {
	app.Port = cfg.port
	return nil
}

// StoreCfg is configuration for the server's block store.
type StoreCfg struct {
	root      string
	redisAddr string
}

// StoreFromEnv creates a new StoreCfg from the current environment.
func StoreFromEnv() *StoreCfg {
	return &StoreCfg{
		root:      internal.Root,
		redisAddr: internal.RedisAddr,
	}
}

// ApplyServerApp applies the StoreCfg to a ServerApp.
func (cfg StoreCfg) ApplyServerApp(app *apps.ServerApp) error {
	app.Root = cfg.root
	app.RedisAddr = cfg.redisAddr
	return nil
}

// TimeoutCfg is configuration for the transfer idle timeout.
type TimeoutCfg struct {
	timeout time.Duration
}

// TimeoutFromEnv creates a new TimeoutCfg from the current environment.
func TimeoutFromEnv() *TimeoutCfg {
	return &TimeoutCfg{
		timeout: time.Duration(internal.TimeoutSeconds) * time.Second,
	}
}

// ApplyServerApp applies the TimeoutCfg to a ServerApp.
func (cfg TimeoutCfg) ApplyServerApp(app *apps.ServerApp) error {
	app.Timeout = cfg.timeout
	return nil
}

// ApplyClientApp applies the TimeoutCfg to a ClientApp.
func (cfg TimeoutCfg) ApplyClientApp(app *apps.ClientApp) error {
	app.Timeout = cfg.timeout
	return nil
}

// HostCfg is configuration for the server host a client fetches from.
type HostCfg struct {
	host string
}

// HostFromEnv creates a new HostCfg from the current environment.
func HostFromEnv() *HostCfg {
	return &HostCfg{
		host: internal.Host,
	}
}

// ApplyClientApp applies the HostCfg to a ClientApp.
func (cfg HostCfg) ApplyClientApp(app *apps.ClientApp) error {
	app.Host = cfg.host
	return nil
}
