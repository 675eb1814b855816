package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxSignalBot/internal/domain"
	"fxSignalBot/internal/ports"
)

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...map[string]interface{})        {}
func (nopLogger) Info(context.Context, string, ...map[string]interface{})         {}
func (nopLogger) Warn(context.Context, string, ...map[string]interface{})         {}
func (nopLogger) Error(context.Context, error, string, ...map[string]interface{}) {}

type countingExecutor struct {
	trades   atomic.Int32
	monitors atomic.Int32
}

func (c *countingExecutor) ExecuteSignals(ctx context.Context) []*domain.TradeResult {
	c.trades.Add(1)
	return []*domain.TradeResult{{Success: true, Action: domain.ActionHold, Symbol: "USD_JPY"}}
}

func (c *countingExecutor) MonitorPositions(ctx context.Context) []*domain.TradeResult {
	c.monitors.Add(1)
	return nil
}

type stubMarket struct {
	err error
}

func (m *stubMarket) GetKlines(ctx context.Context, symbol, interval, date string) (domain.Series, error) {
	if m.err != nil {
		return nil, m.err
	}
	return domain.Series{{Close: 150.0}}, nil
}

func (m *stubMarket) GetKlinesRange(ctx context.Context, symbol, interval string, days int) (domain.Series, error) {
	return m.GetKlines(ctx, symbol, interval, "")
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Config{Logger: nopLogger{}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}

func TestRunOnceExecutesBothCycles(t *testing.T) {
	exec := &countingExecutor{}
	svc, err := New(Config{
		Executor: exec,
		Market:   &stubMarket{},
		Logger:   nopLogger{},
	})
	require.NoError(t, err)

	require.NoError(t, svc.RunOnce(context.Background()))
	assert.Equal(t, int32(1), exec.trades.Load())
	assert.Equal(t, int32(1), exec.monitors.Load())
}

func TestRunOnceFailsOnBrokenConnectivity(t *testing.T) {
	exec := &countingExecutor{}
	svc, err := New(Config{
		Executor: exec,
		Market:   &stubMarket{err: errors.New("connection refused")},
		Logger:   nopLogger{},
	})
	require.NoError(t, err)

	err = svc.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connectivity check")
	assert.Equal(t, int32(0), exec.trades.Load())
}

func TestStartRunsOnStartAndStopsOnCancel(t *testing.T) {
	exec := &countingExecutor{}
	svc, err := New(Config{
		Executor:   exec,
		Market:     &stubMarket{},
		Logger:     nopLogger{},
		RunOnStart: true,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	// Give the service time to pass the startup sequence, then shut down.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop after context cancellation")
	}
	assert.Equal(t, int32(1), exec.trades.Load())
}
