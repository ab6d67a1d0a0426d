package client

import "github.com/pkg/errors"

// ErrTimedOut indicates the server stopped sending data blocks.
var ErrTimedOut = errors.New("timed out")
