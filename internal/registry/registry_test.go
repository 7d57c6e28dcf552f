package registry

import (
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeConn struct {
	open         atomic.Bool
	awaitingPong atomic.Bool
	closed       atomic.Bool
}

func newFakeConn() *fakeConn {
	c := &fakeConn{}
	c.open.Store(true)
	return c
}

func (c *fakeConn) SendJSON(any) error { return nil }
func (c *fakeConn) Ping() error        { return nil }
func (c *fakeConn) Close() error {
	c.closed.Store(true)
	c.open.Store(false)
	return nil
}
func (c *fakeConn) IsOpen() bool         { return c.open.Load() }
func (c *fakeConn) AwaitingPong() bool   { return c.awaitingPong.Load() }
func (c *fakeConn) SetAwaitingPong(v bool) { c.awaitingPong.Store(v) }

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := New()
	defer r.Stop()

	deviceID := uuid.New()
	conn := newFakeConn()

	assert.Nil(t, r.Lookup(deviceID))

	r.Register(deviceID, conn)
	assert.Same(t, conn, r.Lookup(deviceID).(*fakeConn))
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_RegisterOverwritesWithoutClosing(t *testing.T) {
	r := New()
	defer r.Stop()

	deviceID := uuid.New()
	first := newFakeConn()
	second := newFakeConn()

	r.Register(deviceID, first)
	r.Register(deviceID, second)

	assert.Same(t, second, r.Lookup(deviceID).(*fakeConn))
	assert.Equal(t, 1, r.Len())
	assert.False(t, first.closed.Load(), "overwritten handle must not be closed by the registry")
}

func TestRegistry_UnregisterIsIdempotent(t *testing.T) {
	r := New()
	defer r.Stop()

	deviceID := uuid.New()
	r.Unregister(deviceID)
	assert.Equal(t, 0, r.Len())

	r.Register(deviceID, newFakeConn())
	r.Unregister(deviceID)
	r.Unregister(deviceID)

	assert.Nil(t, r.Lookup(deviceID))
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_UnregisterConnSkipsSuccessor(t *testing.T) {
	r := New()
	defer r.Stop()

	deviceID := uuid.New()
	stale := newFakeConn()
	successor := newFakeConn()

	r.Register(deviceID, stale)
	r.Register(deviceID, successor)

	// The stale connection's disconnect handler must not evict the successor.
	r.UnregisterConn(deviceID, stale)
	assert.Same(t, successor, r.Lookup(deviceID).(*fakeConn))

	r.UnregisterConn(deviceID, successor)
	assert.Nil(t, r.Lookup(deviceID))
}

func TestRegistry_StopClosesConnections(t *testing.T) {
	r := New()

	conns := []*fakeConn{newFakeConn(), newFakeConn(), newFakeConn()}
	for _, c := range conns {
		r.Register(uuid.New(), c)
	}

	r.Stop()

	for _, c := range conns {
		assert.True(t, c.closed.Load())
	}
}
