package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/l1jgo/combatcore/internal/persist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSaver struct {
	mu    sync.Mutex
	names []string
}

func (m *memSaver) Save(_ context.Context, s *persist.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names = append(m.names, s.Name)
	return nil
}

func (m *memSaver) saved() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.names...)
}

func waitDone(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func TestSupervise_FinalFlushReachesWriterOnShutdown(t *testing.T) {
	saver := &memSaver{}
	writer := persist.NewWriter(saver, 8, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	flush := func() {
		writer.Enqueue(persist.Snapshot{Name: "aria"})
		writer.Enqueue(persist.Snapshot{Name: "bram"})
	}
	err := supervise(ctx, waitDone, flush, nil, []func(context.Context) error{writer.Run})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"aria", "bram"}, saver.saved())
}

func TestSupervise_LoopEndStopsServices(t *testing.T) {
	var stopped bool
	svc := func(ctx context.Context) error {
		<-ctx.Done()
		stopped = true
		return nil
	}
	loop := func(context.Context) error { return nil }

	done := make(chan error, 1)
	go func() { done <- supervise(context.Background(), loop, nil, []func(context.Context) error{svc}, nil) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("service outlived the loop")
	}
	assert.True(t, stopped)
}

func TestSupervise_ServiceFailureStopsLoop(t *testing.T) {
	boom := errors.New("bind failed")
	svc := func(context.Context) error { return boom }
	var flushed bool

	err := supervise(context.Background(), waitDone, func() { flushed = true },
		[]func(context.Context) error{svc}, nil)

	assert.ErrorIs(t, err, boom)
	assert.True(t, flushed, "players are still saved when a service fails")
}
