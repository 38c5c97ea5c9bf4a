package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWorker struct {
	mu       sync.Mutex
	name     string
	startErr error
	started  bool
	stopped  bool
	stopSeq  *[]string
}

func (w *fakeWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.startErr != nil {
		return w.startErr
	}
	w.started = true
	return nil
}

func (w *fakeWorker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	if w.stopSeq != nil {
		*w.stopSeq = append(*w.stopSeq, w.name)
	}
}

func (w *fakeWorker) Name() string { return w.name }

func TestManagerStartAll(t *testing.T) {
	m := NewManager(zap.NewNop())
	w1 := &fakeWorker{name: "first"}
	w2 := &fakeWorker{name: "second"}
	m.Register(w1)
	m.Register(w2)

	require.NoError(t, m.StartAll(context.Background()))
	assert.True(t, w1.started)
	assert.True(t, w2.started)
	assert.Equal(t, 2, m.Count())
}

func TestManagerStartAllStopsOnFirstError(t *testing.T) {
	m := NewManager(zap.NewNop())
	startErr := errors.New("bind failed")
	w1 := &fakeWorker{name: "broken", startErr: startErr}
	w2 := &fakeWorker{name: "never-started"}
	m.Register(w1)
	m.Register(w2)

	err := m.StartAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, startErr)
	assert.False(t, w2.started)
}

func TestManagerStopAllReverseOrder(t *testing.T) {
	m := NewManager(zap.NewNop())
	var order []string
	w1 := &fakeWorker{name: "first", stopSeq: &order}
	w2 := &fakeWorker{name: "second", stopSeq: &order}
	m.Register(w1)
	m.Register(w2)

	require.NoError(t, m.StartAll(context.Background()))
	m.StopAll()

	assert.True(t, w1.stopped)
	assert.True(t, w2.stopped)
	assert.Equal(t, []string{"second", "first"}, order)
}
