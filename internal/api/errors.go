package api

import "errors"

// ErrNoText signals that a recognition call completed without finding any
// text, as opposed to failing outright.
var ErrNoText = errors.New("no text recognized in document")
