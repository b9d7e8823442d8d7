package core

import "errors"

// ErrDisconnected is the terminal signal for one connection. Any code path
// that notices the transport is gone (or decides to end the session) returns
// an error satisfying errors.Is(err, ErrDisconnected); the handler stack
// unwinds without treating it as a failure.
var ErrDisconnected = errors.New("client disconnected")

// ErrContactListed is returned when adding a contact that is already present.
var ErrContactListed = errors.New("contact already listed")
