// Package module defines the validation-unit capability and the registry
// that resolves module names from test definitions to constructors.
package module

import (
	"context"
	"log/slog"

	"github.com/calderadb/harness/internal/bridge"
	"github.com/calderadb/harness/internal/config"
)

// Module is one independent validation unit run against a provisioned
// cluster. The engine schedules Validate on its own goroutine; a returned
// error aborts the remaining module groups.
type Module interface {
	Name() string
	Validate(ctx context.Context) error
}

// FailureSink is the shared failure-signaling surface. Modules may call
// SignalFailure from any concurrently running task, not only from inside
// Validate; each signal is recorded as one failure message for the module.
//
// Spawn runs a background task tracked in the engine's per-group join-set,
// so a watcher a module starts from Validate cannot outlive the group it
// belongs to. Signals submitted from a spawned task are always observed
// before the verdict.
type FailureSink interface {
	SignalFailure(moduleName, message string)
	Spawn(task func())
}

// Context is the harness-side state handed to every module at
// construction.
type Context struct {
	Bridge bridge.Bridge
	Sink   FailureSink
	Logger *slog.Logger
}

// Factory constructs a module bound to one test definition and harness
// context.
type Factory func(cfg *config.Config, hctx *Context) (Module, error)
