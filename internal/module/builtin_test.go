package module

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calderadb/harness/internal/config"
	"github.com/calderadb/harness/internal/testutil"
)

func moduleContext(b *testutil.FakeBridge, sink *testutil.FailureCollector) *Context {
	return &Context{
		Bridge: b,
		Sink:   sink,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClusterUp_PassesWhenEndpointCountMatches(t *testing.T) {
	hctx := moduleContext(testutil.NewFakeBridge("10.0.0.1", "10.0.0.2"), testutil.NewFailureCollector())
	m, err := NewClusterUp(&config.Config{NodeCount: 2}, hctx)
	require.NoError(t, err)

	assert.NoError(t, m.Validate(context.Background()))
}

func TestClusterUp_FailsOnEndpointMismatch(t *testing.T) {
	hctx := moduleContext(testutil.NewFakeBridge("10.0.0.1"), testutil.NewFailureCollector())
	m, err := NewClusterUp(&config.Config{NodeCount: 3}, hctx)
	require.NoError(t, err)

	err = m.Validate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 endpoints, want 3")
}

func TestEndpointWatch_SignalsBlankAddressOutOfBand(t *testing.T) {
	sink := testutil.NewFailureCollector()
	hctx := moduleContext(testutil.NewFakeBridge("10.0.0.1", ""), sink)
	m, err := NewEndpointWatch(&config.Config{NodeCount: 2}, hctx)
	require.NoError(t, err)

	// The collector runs spawned tasks inline, so the watcher has finished
	// by the time Validate returns.
	require.NoError(t, m.Validate(context.Background()))

	signals := sink.Signals()
	require.Len(t, signals["EndpointWatch"], 1)
	assert.Contains(t, signals["EndpointWatch"][0], "node 2 has no address")
}

func TestEndpointWatch_QuietWhenHealthy(t *testing.T) {
	sink := testutil.NewFailureCollector()
	hctx := moduleContext(testutil.NewFakeBridge("10.0.0.1", "10.0.0.2"), sink)
	m, err := NewEndpointWatch(&config.Config{NodeCount: 2}, hctx)
	require.NoError(t, err)

	require.NoError(t, m.Validate(context.Background()))
	assert.Empty(t, sink.Signals())
}
