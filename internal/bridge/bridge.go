// Package bridge reconciles and drives the ephemeral database cluster
// through the automation backend.
//
// Provisioning is a three-state reconciliation: a missing cluster is
// launched, a wrongly-sized cluster is destroyed and relaunched, and a
// correctly-sized cluster is reset in place. Partial repair of topology is
// never attempted; any mismatch resolves through a full destroy+launch.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/calderadb/harness/internal/command"
	"github.com/calderadb/harness/internal/logscan"
)

// Remote layout on every cluster node. The install step copies the local
// build tree to remoteRoot; start launches the database from its bin dir.
const (
	remoteRoot    = "/home/automaton/caldera"
	remoteLog     = remoteRoot + "/logs/system.log"
	remotePIDFile = "~/PID"
)

// Bridge is the cluster-lifecycle contract the harness runs against.
// The production implementation is CtoolBridge; tests may substitute any
// implementation.
type Bridge interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	ApplyConfig(ctx context.Context, options map[string]string) error
	CaptureLogs(ctx context.Context, testName string) error
	ReadClusterLogs(ctx context.Context, testName string) (string, error)
	Endpoints(ctx context.Context) ([]string, error)
	Destroy(ctx context.Context) error
}

// Target identifies the desired cluster shape for one harness run.
type Target struct {
	ClusterName     string
	NodeCount       int
	ConfigOverrides map[string]string
}

// Handle is the runtime identity of the live cluster owned by a bridge.
// It must not outlive one harness invocation.
type Handle struct {
	RunID     string
	Endpoints []string
}

// clusterState is the observed state of the target cluster at
// reconciliation time.
type clusterState int

const (
	stateAbsent clusterState = iota
	stateWrongSize
	stateCorrectSize
)

func (s clusterState) String() string {
	switch s {
	case stateAbsent:
		return "absent"
	case stateWrongSize:
		return "exists-wrong-size"
	case stateCorrectSize:
		return "exists-correct-size"
	default:
		return "unknown"
	}
}

// CtoolBridge drives a ctool-managed cluster. All node-addressed operations
// issue commands sequentially by ordinal; nothing here is parallelized.
type CtoolBridge struct {
	runner    command.Runner
	target    Target
	logRoot   string
	localTree string
	logger    *slog.Logger
	handle    Handle
}

// Option configures a bridge before reconciliation runs.
type Option func(*CtoolBridge)

// WithLogRoot sets the local root for captured logs and pid records.
func WithLogRoot(root string) Option {
	return func(b *CtoolBridge) { b.logRoot = root }
}

// WithLocalTree sets the local build tree propagated to every node by the
// install step. Defaults to the current directory.
func WithLocalTree(dir string) Option {
	return func(b *CtoolBridge) { b.localTree = dir }
}

// WithLogger sets the bridge logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *CtoolBridge) { b.logger = logger }
}

// Provision constructs a bridge and reconciles the backing cluster to the
// target shape. On return the cluster exists with the right node count,
// wiped to a clean state, with the local tree installed on every node.
func Provision(ctx context.Context, runner command.Runner, target Target, opts ...Option) (*CtoolBridge, error) {
	if target.NodeCount < 1 {
		return nil, fmt.Errorf("provision: node count must be >= 1, got %d", target.NodeCount)
	}
	b := &CtoolBridge{
		runner:    runner,
		target:    target,
		logRoot:   "build/test/logs/validation",
		localTree: ".",
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.handle = Handle{RunID: uuid.NewString()}

	if err := b.reconcile(ctx); err != nil {
		return nil, fmt.Errorf("provision cluster %s: %w", target.ClusterName, err)
	}
	return b, nil
}

// reconcile observes the cluster state and applies the transition table:
//
//	absent              -> launch, install
//	exists-wrong-size   -> destroy, launch, install
//	exists-correct-size -> reset, install
//
// Running it against an already-correct cluster takes the reset path again;
// it never launches a duplicate.
func (b *CtoolBridge) reconcile(ctx context.Context) error {
	state, err := b.observeState(ctx)
	if err != nil {
		return err
	}
	b.logger.Debug("reconciling cluster",
		"cluster", b.target.ClusterName,
		"state", state.String(),
		"target_nodes", b.target.NodeCount)

	switch state {
	case stateAbsent:
		if _, err := b.runner.RunChecked(ctx, command.Launch(b.target.ClusterName, b.target.NodeCount)); err != nil {
			return err
		}
	case stateWrongSize:
		if _, err := b.runner.RunChecked(ctx, command.Destroy(b.target.ClusterName)); err != nil {
			return err
		}
		if _, err := b.runner.RunChecked(ctx, command.Launch(b.target.ClusterName, b.target.NodeCount)); err != nil {
			return err
		}
	case stateCorrectSize:
		if _, err := b.runner.RunChecked(ctx, command.Reset(b.target.ClusterName)); err != nil {
			return err
		}
	}
	return b.install(ctx)
}

// observeState computes the cluster's observed state: membership in the
// backend's cluster list, then live endpoint count against the target.
func (b *CtoolBridge) observeState(ctx context.Context) (clusterState, error) {
	res, err := b.runner.RunChecked(ctx, command.List())
	if err != nil {
		return stateAbsent, err
	}
	if !strings.Contains(res.Stdout, b.target.ClusterName) {
		return stateAbsent, nil
	}
	endpoints, err := b.Endpoints(ctx)
	if err != nil {
		return stateAbsent, err
	}
	if len(endpoints) != b.target.NodeCount {
		return stateWrongSize, nil
	}
	return stateCorrectSize, nil
}

// install propagates the local build tree to every node. A precondition for
// Start.
func (b *CtoolBridge) install(ctx context.Context) error {
	_, err := b.runner.RunChecked(ctx,
		command.CopyTo(b.target.ClusterName, command.AllNodes, b.localTree, remoteRoot))
	return err
}

// Start launches the database process on every node and records each node's
// process id under <logRoot>/PIDs/node<N>_PID.txt (1-indexed).
func (b *CtoolBridge) Start(ctx context.Context) error {
	launch := remoteRoot + "/bin/caldera -p " + remotePIDFile
	if err := b.runner.RunStreaming(ctx, command.RunRemote(b.target.ClusterName, command.AllNodes, launch)); err != nil {
		return fmt.Errorf("start database: %w", err)
	}

	pidDir := b.pidDir()
	if !folderExists(pidDir) {
		// Pre-check only: a failed mkdir surfaces later as a copy failure.
		if err := os.MkdirAll(pidDir, 0o755); err != nil {
			b.logger.Warn("could not create pid directory", "dir", pidDir, "error", err)
		}
	}

	for ordinal := 0; ordinal < b.target.NodeCount; ordinal++ {
		dst := b.pidFile(ordinal + 1)
		if _, err := b.runner.RunChecked(ctx,
			command.CopyFrom(b.target.ClusterName, command.Node(ordinal), remotePIDFile, dst)); err != nil {
			return fmt.Errorf("record pid for node %d: %w", ordinal+1, err)
		}
	}
	return nil
}

// Stop reads each node's recorded pid and issues a targeted terminate, in
// ascending ordinal order. A missing or unreadable pid file aborts the whole
// stop; there is no partial-success bookkeeping.
func (b *CtoolBridge) Stop(ctx context.Context) error {
	for ordinal := 0; ordinal < b.target.NodeCount; ordinal++ {
		data, err := os.ReadFile(b.pidFile(ordinal + 1))
		if err != nil {
			return fmt.Errorf("read pid for node %d: %w", ordinal+1, err)
		}
		pid := strings.ReplaceAll(string(data), "\n", "")
		if err := b.runner.RunStreaming(ctx,
			command.RunRemote(b.target.ClusterName, command.Node(ordinal), "kill "+pid)); err != nil {
			return fmt.Errorf("terminate node %d: %w", ordinal+1, err)
		}
	}
	return nil
}

// ApplyConfig issues one configuration-change command per entry. Keys are
// applied in sorted order so the command sequence is deterministic.
func (b *CtoolBridge) ApplyConfig(ctx context.Context, options map[string]string) error {
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := b.runner.RunChecked(ctx,
			command.ChangeConfig(b.target.ClusterName, k, options[k])); err != nil {
			return fmt.Errorf("apply config %s: %w", k, err)
		}
	}
	return nil
}

// CaptureLogs copies every node's remote system log down to
// <logRoot>/<testName>/node<N>.log (1-indexed). An existing capture folder
// for testName is archived first, never overwritten in place. A copy
// failure for one node aborts the whole capture.
func (b *CtoolBridge) CaptureLogs(ctx context.Context, testName string) error {
	dir := b.captureDir(testName)
	if folderExists(dir) {
		if err := archiveFolder(dir); err != nil {
			return fmt.Errorf("archive previous capture for %s: %w", testName, err)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create capture folder for %s: %w", testName, err)
	}

	for ordinal := 0; ordinal < b.target.NodeCount; ordinal++ {
		dst := filepath.Join(dir, fmt.Sprintf("node%d.log", ordinal+1))
		if _, err := b.runner.RunChecked(ctx,
			command.CopyFrom(b.target.ClusterName, command.Node(ordinal), remoteLog, dst)); err != nil {
			return fmt.Errorf("capture log for node %d: %w", ordinal+1, err)
		}
	}
	return nil
}

// ReadClusterLogs scans each captured node log for error lines and returns
// the concatenated matches. Returns "" when the capture folder is missing or
// no line survives the scan; the empty return doubles as the oracle's pass
// verdict.
func (b *CtoolBridge) ReadClusterLogs(_ context.Context, testName string) (string, error) {
	dir := b.captureDir(testName)
	if !folderExists(dir) {
		return "", nil
	}

	var combined strings.Builder
	for ordinal := 1; ordinal <= b.target.NodeCount; ordinal++ {
		data, err := os.ReadFile(filepath.Join(dir, fmt.Sprintf("node%d.log", ordinal)))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", fmt.Errorf("read captured log for node %d: %w", ordinal, err)
		}
		combined.WriteString(logscan.Grep(string(data)))
	}

	transcript := combined.String()
	if !logscan.Scan(transcript) {
		return "", nil
	}
	return transcript, nil
}

// Endpoints queries the live cluster for its ordered host list.
func (b *CtoolBridge) Endpoints(ctx context.Context) ([]string, error) {
	res, err := b.runner.RunChecked(ctx, command.Info(b.target.ClusterName))
	if err != nil {
		return nil, err
	}
	hosts := strings.Fields(strings.TrimRight(res.Stdout, "\n"))
	b.handle.Endpoints = hosts
	return hosts, nil
}

// Destroy stops the database best-effort and resets the backing cluster to
// an unallocated state. Safe to call on teardown paths even when Start
// never succeeded; a stop failure is logged, not returned, so it cannot
// mask an earlier error.
func (b *CtoolBridge) Destroy(ctx context.Context) error {
	if err := b.Stop(ctx); err != nil {
		b.logger.Warn("stop during destroy failed", "error", err)
	}
	_, err := b.runner.RunChecked(ctx, command.Reset(b.target.ClusterName))
	return err
}

// NodeTool runs the database's admin tool on one node through the backend's
// remote-run primitive.
func (b *CtoolBridge) NodeTool(ctx context.Context, node command.NodeSelector, subcommand string, args ...string) error {
	remote := remoteRoot + "/bin/nodetool " + subcommand
	if len(args) > 0 {
		remote += " " + strings.Join(args, " ")
	}
	return b.runner.RunStreaming(ctx, command.RunRemote(b.target.ClusterName, node, remote))
}

// HandleInfo returns the bridge's runtime cluster identity.
func (b *CtoolBridge) HandleInfo() Handle { return b.handle }

func (b *CtoolBridge) pidDir() string {
	return filepath.Join(b.logRoot, "PIDs")
}

func (b *CtoolBridge) pidFile(n int) string {
	return filepath.Join(b.pidDir(), fmt.Sprintf("node%d_PID.txt", n))
}

func (b *CtoolBridge) captureDir(testName string) string {
	return filepath.Join(b.logRoot, testName)
}

func folderExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
