package schema

import "errors"

// ErrNoBackend means the console has no execution transport configured.
var ErrNoBackend = errors.New("no backend available")

// ErrExecBusy means a command is already in flight for the session.
var ErrExecBusy = errors.New("command already in flight")

// ErrCommandBlocked means a command is refused client-side and never sent to
// the backend.
var ErrCommandBlocked = errors.New("command not supported in console")
