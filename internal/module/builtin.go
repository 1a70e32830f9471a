package module

import (
	"context"
	"fmt"

	"github.com/calderadb/harness/internal/config"
)

// Builtins returns a registry pre-populated with the modules shipped with
// the harness.
func Builtins() *Registry {
	r := NewRegistry()
	r.Register("ClusterUp", NewClusterUp)
	r.Register("EndpointWatch", NewEndpointWatch)
	return r
}

// ClusterUp verifies the provisioned cluster exposes exactly the configured
// number of endpoints.
type ClusterUp struct {
	cfg  *config.Config
	hctx *Context
}

// NewClusterUp constructs the ClusterUp module.
func NewClusterUp(cfg *config.Config, hctx *Context) (Module, error) {
	return &ClusterUp{cfg: cfg, hctx: hctx}, nil
}

func (m *ClusterUp) Name() string { return "ClusterUp" }

// Validate fails the run when the live endpoint count diverges from the
// target node count.
func (m *ClusterUp) Validate(ctx context.Context) error {
	endpoints, err := m.hctx.Bridge.Endpoints(ctx)
	if err != nil {
		return fmt.Errorf("query endpoints: %w", err)
	}
	if len(endpoints) != m.cfg.NodeCount {
		return fmt.Errorf("cluster exposes %d endpoints, want %d", len(endpoints), m.cfg.NodeCount)
	}
	return nil
}

// EndpointWatch validates endpoint health out of band: Validate returns
// immediately after spawning a watcher task that signals any late failure
// through the shared sink rather than the synchronous return path.
type EndpointWatch struct {
	cfg  *config.Config
	hctx *Context
}

// NewEndpointWatch constructs the EndpointWatch module.
func NewEndpointWatch(cfg *config.Config, hctx *Context) (Module, error) {
	return &EndpointWatch{cfg: cfg, hctx: hctx}, nil
}

func (m *EndpointWatch) Name() string { return "EndpointWatch" }

// Validate spawns the watcher and returns without waiting for it. The
// watcher runs as a tracked task, so the engine joins it (and any failures
// it signals) before judging the group complete.
func (m *EndpointWatch) Validate(ctx context.Context) error {
	m.hctx.Sink.Spawn(func() {
		endpoints, err := m.hctx.Bridge.Endpoints(ctx)
		if err != nil {
			m.hctx.Sink.SignalFailure(m.Name(), fmt.Sprintf("endpoint query failed: %v", err))
			return
		}
		for i, host := range endpoints {
			if host == "" {
				m.hctx.Sink.SignalFailure(m.Name(), fmt.Sprintf("node %d has no address", i+1))
			}
		}
	})
	return nil
}
