// Package internal holds the process-level configuration shared by the
// tftpd commands. Every flag falls back to an environment variable so
// the server can be configured without a command line.
package internal

import (
	"math"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Configuration values bound by the flags below.
var (
	LogLevel       string
	Port           uint
	Root           string
	RedisAddr      string
	Host           string
	TimeoutSeconds uint
)

// Flag binds one cobra flag to a package variable, with an environment
// variable overriding the default.
type Flag struct {
	Name  string
	Env   string
	Usage string

	StringTarget  *string
	StringDefault string
	UintTarget    *uint
	UintDefault   uint
}

// Flag definitions.
var (
	LogLevelFlag = Flag{
		Name:          "log-level",
		Env:           "TFTPD_LOG_LEVEL",
		Usage:         "log level: trace, debug, info, warn or error",
		StringTarget:  &LogLevel,
		StringDefault: "info",
	}
	PortFlag = Flag{
		Name:        "port",
		Env:         "TFTPD_PORT",
		Usage:       "well-known port to serve read requests on",
		UintTarget:  &Port,
		UintDefault: 69,
	}
	RootFlag = Flag{
		Name:          "root",
		Env:           "TFTPD_ROOT",
		Usage:         "directory to serve files from",
		StringTarget:  &Root,
		StringDefault: "/tmp/test_tftp",
	}
	RedisAddrFlag = Flag{
		Name:          "redis-addr",
		Env:           "TFTPD_REDIS_ADDR",
		Usage:         "serve blocks from redis string values at this address instead of the root directory",
		StringTarget:  &RedisAddr,
		StringDefault: "",
	}
	HostFlag = Flag{
		Name:          "host",
		Env:           "TFTPD_HOST",
		Usage:         "server host to fetch files from",
		StringTarget:  &Host,
		StringDefault: "127.0.0.1",
	}
	TimeoutSecondsFlag = Flag{
		Name:        "timeout-seconds",
		Env:         "TFTPD_TIMEOUT_SECONDS",
		Usage:       "seconds of silence before a transfer is torn down",
		UintTarget:  &TimeoutSeconds,
		UintDefault: 5,
	}
)

// RegisterCommandFlags registers the given flags on a command.
func RegisterCommandFlags(cmd *cobra.Command, flags []*Flag) error {
	for _, f := range flags {
		if err := f.register(cmd); err != nil {
			return errors.Wrapf(err, "register flag %s failed", f.Name)
		}
	}
	return nil
}

func (f *Flag) register(cmd *cobra.Command) error {
	switch {
	case f.StringTarget != nil:
		def := f.StringDefault
		if v, ok := os.LookupEnv(f.Env); ok {
			def = v
		}
		cmd.PersistentFlags().StringVar(f.StringTarget, f.Name, def, f.Usage)
	case f.UintTarget != nil:
		def := f.UintDefault
		if v, ok := os.LookupEnv(f.Env); ok {
			parsed, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return errors.Wrapf(err, "parse %s failed", f.Env)
			}
			def = uint(parsed)
		}
		cmd.PersistentFlags().UintVar(f.UintTarget, f.Name, def, f.Usage)
	default:
		return errors.New("flag has no target")
	}
	return nil
}

// ValidateEnv checks the bound configuration values for consistency.
func ValidateEnv() error {
	if Port > math.MaxUint16 {
		return errors.Errorf("port %d out of range", Port)
	}
	if TimeoutSeconds == 0 {
		return errors.New("timeout must be at least one second")
	}
	return nil
}
