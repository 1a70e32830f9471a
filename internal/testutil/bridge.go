package testutil

import (
	"context"
	"sync"
)

// FakeBridge is an in-memory bridge.Bridge recording lifecycle calls.
// Errors and the log transcript are settable per operation.
type FakeBridge struct {
	mu    sync.Mutex
	calls []string

	EndpointList []string
	Transcript   string

	StartErr   error
	StopErr    error
	CaptureErr error
	ReadErr    error
	DestroyErr error
	ConfigErr  error
}

// NewFakeBridge creates a bridge reporting the given endpoints.
func NewFakeBridge(endpoints ...string) *FakeBridge {
	return &FakeBridge{EndpointList: endpoints}
}

func (b *FakeBridge) record(call string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)
}

// Calls returns the recorded operation names, in order.
func (b *FakeBridge) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *FakeBridge) Start(context.Context) error {
	b.record("start")
	return b.StartErr
}

func (b *FakeBridge) Stop(context.Context) error {
	b.record("stop")
	return b.StopErr
}

func (b *FakeBridge) ApplyConfig(_ context.Context, options map[string]string) error {
	b.record("apply-config")
	return b.ConfigErr
}

func (b *FakeBridge) CaptureLogs(_ context.Context, testName string) error {
	b.record("capture-logs:" + testName)
	return b.CaptureErr
}

func (b *FakeBridge) ReadClusterLogs(_ context.Context, testName string) (string, error) {
	b.record("read-logs:" + testName)
	return b.Transcript, b.ReadErr
}

func (b *FakeBridge) Endpoints(context.Context) ([]string, error) {
	b.record("endpoints")
	return append([]string(nil), b.EndpointList...), nil
}

func (b *FakeBridge) Destroy(context.Context) error {
	b.record("destroy")
	return b.DestroyErr
}
