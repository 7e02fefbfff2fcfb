package session

import "errors"

// ErrClosed is returned by Manager.Get after Close.
var ErrClosed = errors.New("session manager closed")
