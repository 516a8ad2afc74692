package watch

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattermost/mattermost-plugin-crimewatch/server/alerts"
)

// mockWatch is a minimal Watch for registry tests
type mockWatch struct {
	id      string
	name    string
	stopped bool
	mu      sync.Mutex

	stopErr error
}

func newMockWatch(id, name string) *mockWatch {
	return &mockWatch{id: id, name: name}
}

func (m *mockWatch) Start() error { return nil }

func (m *mockWatch) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return m.stopErr
}

func (m *mockWatch) GetID() string        { return m.id }
func (m *mockWatch) GetName() string      { return m.name }
func (m *mockWatch) GetChannelID() string { return "channel-" + m.id }
func (m *mockWatch) GetStatus() Status    { return Status{ID: m.id, Name: m.name} }

func (m *mockWatch) Snapshot() alerts.Snapshot                 { return alerts.Snapshot{} }
func (m *mockWatch) Refresh(context.Context) error             { return nil }
func (m *mockWatch) Acknowledge(context.Context, string) error { return nil }
func (m *mockWatch) ClearState() error                         { return nil }

func (m *mockWatch) isStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

func TestNewRegistry(t *testing.T) {
	registry := NewRegistry()
	assert.NotNil(t, registry)
	assert.Equal(t, 0, registry.Count())
	assert.Empty(t, registry.List())
}

func TestRegistry_Register(t *testing.T) {
	t.Run("registers a watch", func(t *testing.T) {
		registry := NewRegistry()
		w := newMockWatch("w1", "Gate")

		require.NoError(t, registry.Register(w))
		assert.Equal(t, 1, registry.Count())
		assert.Same(t, w, registry.Get("w1"))
	})

	t.Run("rejects nil watch", func(t *testing.T) {
		err := NewRegistry().Register(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nil watch")
	})

	t.Run("rejects empty id", func(t *testing.T) {
		err := NewRegistry().Register(newMockWatch("", "Gate"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot be empty")
	})

	t.Run("rejects duplicate id", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register(newMockWatch("w1", "Gate")))

		err := registry.Register(newMockWatch("w1", "Library"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already registered")
		assert.Equal(t, "Gate", registry.Get("w1").GetName())
	})
}

func TestRegistry_Unregister(t *testing.T) {
	t.Run("stops and removes the watch", func(t *testing.T) {
		registry := NewRegistry()
		w := newMockWatch("w1", "Gate")
		require.NoError(t, registry.Register(w))

		require.NoError(t, registry.Unregister("w1"))
		assert.True(t, w.isStopped())
		assert.Nil(t, registry.Get("w1"))
		assert.Equal(t, 0, registry.Count())
	})

	t.Run("unknown id", func(t *testing.T) {
		err := NewRegistry().Unregister("missing")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("removes even when stop fails", func(t *testing.T) {
		registry := NewRegistry()
		w := newMockWatch("w1", "Gate")
		w.stopErr = fmt.Errorf("boom")
		require.NoError(t, registry.Register(w))

		err := registry.Unregister("w1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
		assert.Nil(t, registry.Get("w1"))
	})
}

func TestRegistry_List(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(newMockWatch("w1", "Library")))
	require.NoError(t, registry.Register(newMockWatch("w2", "Gate")))
	require.NoError(t, registry.Register(newMockWatch("w3", "Hostel")))

	var names []string
	for _, w := range registry.List() {
		names = append(names, w.GetName())
	}
	assert.Equal(t, []string{"Gate", "Hostel", "Library"}, names)
}

func TestRegistry_UnregisterAll(t *testing.T) {
	registry := NewRegistry()
	w1 := newMockWatch("w1", "Gate")
	w2 := newMockWatch("w2", "Library")
	w2.stopErr = fmt.Errorf("stop failed")
	w3 := newMockWatch("w3", "Hostel")
	for _, w := range []*mockWatch{w1, w2, w3} {
		require.NoError(t, registry.Register(w))
	}

	err := registry.UnregisterAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stop failed")

	assert.Equal(t, 0, registry.Count())
	assert.True(t, w1.isStopped())
	assert.True(t, w2.isStopped())
	assert.True(t, w3.isStopped())
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	registry := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("w%d", i)
			assert.NoError(t, registry.Register(newMockWatch(id, id)))
			_ = registry.Get(id)
			_ = registry.List()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, registry.Count())
}
