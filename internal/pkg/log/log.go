// Package log adds logging utilities.
package log

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/franbull/tftp/internal/pkg/session"
	"github.com/franbull/tftp/internal/pkg/transport"
	"github.com/franbull/tftp/internal/pkg/wire"
)

// SetLogger sets the default logger's level.
func SetLogger(level string) {
	logrus.SetLevel(logrus.ErrorLevel)
	customFormatter := new(logrus.TextFormatter)
	customFormatter.TimestampFormat = time.RFC3339
	logrus.SetFormatter(customFormatter)
	customFormatter.FullTimestamp = true
	switch strings.ToLower(level) {
	case "trace":
		logrus.SetLevel(logrus.TraceLevel)
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.ErrorLevel)
	}
}

// RequestFields describes a parsed read request and its origin.
func RequestFields(req wire.ReadRequest, host string, port uint16) logrus.Fields {
	return logrus.Fields{
		"filename": req.Filename,
		"mode":     req.Mode,
		"host":     host,
		"port":     port,
	}
}

// TransferFields describes the current state of a transfer.
func TransferFields(t *session.Transfer) logrus.Fields {
	return logrus.Fields{
		"transfer": t.ID.String(),
		"filename": t.Filename,
		"host":     t.RemoteHost,
		"port":     t.RemotePort,
		"block":    t.BlockNumber(),
		"done":     t.Done(),
	}
}

// DatagramFields describes an inbound datagram's origin and size.
func DatagramFields(dg transport.Datagram) logrus.Fields {
	return logrus.Fields{
		"host": dg.Host,
		"port": dg.Port,
		"size": len(dg.Payload),
	}
}
