// Package harness orchestrates one validation run: provision the cluster,
// execute the configured module groups, tear the cluster down, and judge
// pass/fail from collected failures and the captured-log transcript.
//
// A run moves through Init -> Provisioned -> per-group execution ->
// TornDown -> Verdict. Teardown always executes, including after an abort,
// and a teardown failure never masks the error that aborted the run.
package harness

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/calderadb/harness/internal/bridge"
	"github.com/calderadb/harness/internal/command"
	"github.com/calderadb/harness/internal/config"
	"github.com/calderadb/harness/internal/module"
)

// BridgeFactory constructs the cluster bridge for a run. The default factory
// provisions a CtoolBridge; tests substitute fakes.
type BridgeFactory func(ctx context.Context, target bridge.Target) (bridge.Bridge, error)

// Engine executes one test definition against one ephemeral cluster.
//
// The engine owns the failure log. Modules and their spawned tasks are the
// producers; the engine reads it only after every producer has joined.
type Engine struct {
	cfg      *config.Config
	testName string
	settings config.Settings
	registry *module.Registry
	logger   *slog.Logger

	newBridge BridgeFactory

	cluster  bridge.Bridge
	failures *failureLog
	tasks    sync.WaitGroup
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRegistry sets the module registry. Defaults to the built-in modules.
func WithRegistry(r *module.Registry) EngineOption {
	return func(e *Engine) { e.registry = r }
}

// WithBridgeFactory overrides how the cluster bridge is constructed.
func WithBridgeFactory(f BridgeFactory) EngineOption {
	return func(e *Engine) { e.newBridge = f }
}

// WithEngineLogger sets the engine logger.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// New creates an engine for one loaded test definition. testName keys the
// captured-log folder and the verdict.
func New(cfg *config.Config, testName string, settings config.Settings, opts ...EngineOption) *Engine {
	cfg.Normalize()
	e := &Engine{
		cfg:      cfg,
		testName: testName,
		settings: settings,
		registry: module.Builtins(),
		logger:   slog.Default(),
		failures: newFailureLog(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SignalFailure records an out-of-band failure for a module. Each call is
// scheduled as an independent task in the run's join-set; the engine waits
// for all of them before judging a group complete. Safe from any goroutine.
func (e *Engine) SignalFailure(moduleName, message string) {
	e.Spawn(func() {
		e.failures.append(moduleName, moduleName+": "+message)
	})
}

// Spawn runs task on its own goroutine, tracked in the run's join-set.
func (e *Engine) Spawn(task func()) {
	e.tasks.Add(1)
	go func() {
		defer e.tasks.Done()
		task()
	}()
}

// Run executes the full harness lifecycle and returns the verdict.
//
// The returned error is abort-class only (provisioning, module validation,
// teardown commands); filter-based failures are expressed in the Verdict.
// Both can be set at once: an aborted run still tears down, and its
// accumulated failures are still judged.
func (e *Engine) Run(ctx context.Context) (*Verdict, error) {
	runErr := e.provision(ctx)
	if runErr == nil {
		runErr = e.runGroups(ctx)
	}

	// Teardown happens-after the last group attempt, whether it succeeded
	// or raised.
	transcript, teardownErr := e.teardown(ctx)

	e.tasks.Wait()
	failures := e.failures.snapshot()
	e.logFailures(failures)

	verdict := judge(e.testName, failures, transcript, e.cfg.IgnoredErrors, e.cfg.RequiredErrors)
	if runErr != nil {
		if teardownErr != nil {
			// The original abort wins; the teardown failure is only logged.
			e.logger.Error("teardown failed after run error", "error", teardownErr)
		}
		verdict.Pass = false
		return verdict, runErr
	}
	if teardownErr != nil {
		verdict.Pass = false
		return verdict, teardownErr
	}
	return verdict, nil
}

// provision reconciles the cluster, applies definition overrides, and
// starts the database on every node.
func (e *Engine) provision(ctx context.Context) error {
	factory := e.newBridge
	if factory == nil {
		factory = e.defaultBridgeFactory()
	}

	target := bridge.Target{
		ClusterName:     e.settings.ClusterNameFor(e.cfg),
		NodeCount:       e.cfg.NodeCount,
		ConfigOverrides: e.cfg.ClusterConfig,
	}

	cluster, err := factory(ctx, target)
	if err != nil {
		return newProvisionError(err)
	}
	e.cluster = cluster

	if len(e.cfg.ClusterConfig) > 0 {
		if err := cluster.ApplyConfig(ctx, e.cfg.ClusterConfig); err != nil {
			return newProvisionError(err)
		}
	}
	if err := cluster.Start(ctx); err != nil {
		return newProvisionError(err)
	}
	return nil
}

func (e *Engine) defaultBridgeFactory() BridgeFactory {
	return func(ctx context.Context, target bridge.Target) (bridge.Bridge, error) {
		runner := command.NewExecRunner(e.settings.WorkDir, command.WithLogger(e.logger))
		return bridge.Provision(ctx, runner, target,
			bridge.WithLogRoot(e.settings.LogRoot),
			bridge.WithLocalTree(e.settings.WorkDir),
			bridge.WithLogger(e.logger),
		)
	}
}

// runGroups executes the configured module groups strictly in sequence. A
// failing group skips the remaining ones.
func (e *Engine) runGroups(ctx context.Context) error {
	for i, group := range e.cfg.Modules {
		e.logger.Debug("running module group", "group", i, "modules", group)
		if err := e.runGroup(ctx, group); err != nil {
			return err
		}
	}
	return nil
}

// runGroup instantiates the group's modules, runs every Validate
// concurrently, and blocks until all validate handles and all tasks in the
// join-set have resolved. The first validate error aborts the run.
func (e *Engine) runGroup(ctx context.Context, names []string) error {
	hctx := &module.Context{
		Bridge: e.cluster,
		Sink:   e,
		Logger: e.logger,
	}

	modules := make([]module.Module, 0, len(names))
	for _, name := range names {
		m, err := e.registry.New(name, e.cfg, hctx)
		if err != nil {
			return newModuleError(name, err)
		}
		modules = append(modules, m)
	}

	// A plain group, not errgroup.WithContext: the derived context is
	// canceled the moment every Validate returns, which would kill the
	// out-of-band tasks a module spawns before they touch the bridge.
	// Nothing cancels siblings here, so the run context is the right one
	// for both Validate and anything it spawns.
	var g errgroup.Group
	failed := make(map[int]string, len(modules))
	var mu sync.Mutex
	for i, m := range modules {
		i, m := i, m
		g.Go(func() error {
			if err := m.Validate(ctx); err != nil {
				mu.Lock()
				failed[i] = m.Name()
				mu.Unlock()
				return fmt.Errorf("%s: %w", m.Name(), err)
			}
			return nil
		})
	}

	validateErr := g.Wait()
	// The group is complete only once every signal task (and any module
	// spawned watcher) has joined, even when a validate already failed.
	e.tasks.Wait()

	if validateErr != nil {
		mu.Lock()
		name := firstValue(failed)
		mu.Unlock()
		return newModuleError(name, validateErr)
	}
	return nil
}

// teardown stops the cluster, captures and reads its logs, and destroys it.
// It is fail-fast: a failed step aborts the remaining ones. The transcript
// read before a failure is still returned for judging.
func (e *Engine) teardown(ctx context.Context) (string, error) {
	if e.cluster == nil {
		return "", nil
	}
	if err := e.cluster.Stop(ctx); err != nil {
		return "", newTeardownError("stop", err)
	}
	if err := e.cluster.CaptureLogs(ctx, e.testName); err != nil {
		return "", newTeardownError("capture-logs", err)
	}
	transcript, err := e.cluster.ReadClusterLogs(ctx, e.testName)
	if err != nil {
		return "", newTeardownError("read-logs", err)
	}
	if err := e.cluster.Destroy(ctx); err != nil {
		return transcript, newTeardownError("destroy", err)
	}
	return transcript, nil
}

// logFailures replays every recorded failure through the logger before the
// filter pass, so suppressed failures still appear in the run log.
func (e *Engine) logFailures(failures map[string][]string) {
	for _, name := range sortedKeys(failures) {
		for _, message := range failures[name] {
			e.logger.Error(message)
		}
	}
}

func firstValue(m map[int]string) string {
	min := -1
	for i := range m {
		if min == -1 || i < min {
			min = i
		}
	}
	if min == -1 {
		return ""
	}
	return m[min]
}
