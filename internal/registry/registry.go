// Package registry tracks which devices currently hold a live connection.
// It is an in-memory cache of reachability, rebuilt from scratch on restart;
// the database remains the system of record for believed liveness.
package registry

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/mka142/ccw-platform-sub001/internal/metrics"
)

// Conn is the handle the registry keeps per device. The server's websocket
// wrapper implements it; tests supply fakes.
type Conn interface {
	// SendJSON enqueues a JSON frame for delivery. Best effort: a full send
	// buffer or closed connection yields an error.
	SendJSON(v any) error
	// Ping sends a transport-level ping control frame.
	Ping() error
	// Close terminates the connection.
	Close() error
	// IsOpen reports whether the transport still accepts writes.
	IsOpen() bool
	// AwaitingPong reports whether a ping is outstanding since the last sweep.
	AwaitingPong() bool
	SetAwaitingPong(v bool)
}

// --- Command types ---

type registryCmd interface{ registryCmd() }

type cmdRegister struct {
	deviceID uuid.UUID
	conn     Conn
}

func (cmdRegister) registryCmd() {}

type cmdUnregister struct {
	deviceID uuid.UUID
	conn     Conn
}

func (cmdUnregister) registryCmd() {}

type cmdLookup struct {
	deviceID uuid.UUID
	replyCh  chan Conn
}

func (cmdLookup) registryCmd() {}

type cmdLen struct {
	replyCh chan int
}

func (cmdLen) registryCmd() {}

type cmdStop struct{}

func (cmdStop) registryCmd() {}

// Registry owns the device-to-connection map. All mutations are serialized
// through a single goroutine, so no locking is needed on the map itself.
type Registry struct {
	cmdCh chan registryCmd
	conns map[uuid.UUID]Conn
	done  chan struct{}
}

func New() *Registry {
	r := &Registry{
		cmdCh: make(chan registryCmd, 256),
		conns: make(map[uuid.UUID]Conn),
		done:  make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Registry) run() {
	for cmd := range r.cmdCh {
		switch c := cmd.(type) {
		case cmdRegister:
			r.conns[c.deviceID] = c.conn
			metrics.RegistryConnections.Set(float64(len(r.conns)))
		case cmdUnregister:
			r.handleUnregister(c)
		case cmdLookup:
			c.replyCh <- r.conns[c.deviceID]
		case cmdLen:
			c.replyCh <- len(r.conns)
		case cmdStop:
			r.handleStop()
			return
		}
	}
}

func (r *Registry) handleUnregister(c cmdUnregister) {
	current, exists := r.conns[c.deviceID]
	if !exists {
		return
	}
	// A conn-scoped unregister is a no-op when the entry has already been
	// overwritten by a newer connection for the same device.
	if c.conn != nil && current != c.conn {
		return
	}
	delete(r.conns, c.deviceID)
	metrics.RegistryConnections.Set(float64(len(r.conns)))
}

func (r *Registry) handleStop() {
	for deviceID, conn := range r.conns {
		if err := conn.Close(); err != nil {
			slog.Debug("Registry: close on stop failed", "device_id", deviceID.String(), "error", err)
		}
		delete(r.conns, deviceID)
	}
	metrics.RegistryConnections.Set(0)
	close(r.done)
}

// Register associates a device with its live connection. An existing entry
// for the device is silently overwritten; the previous handle is not closed
// here (its own read loop notices the defunct socket and cleans up).
func (r *Registry) Register(deviceID uuid.UUID, conn Conn) {
	r.cmdCh <- cmdRegister{deviceID: deviceID, conn: conn}
}

// Unregister removes the device's entry. Idempotent: absent ids are a no-op.
func (r *Registry) Unregister(deviceID uuid.UUID) {
	r.cmdCh <- cmdUnregister{deviceID: deviceID}
}

// UnregisterConn removes the entry only if it still points at conn. Used by
// disconnect handlers so a stale read loop cannot evict a successor
// connection registered for the same device.
func (r *Registry) UnregisterConn(deviceID uuid.UUID, conn Conn) {
	r.cmdCh <- cmdUnregister{deviceID: deviceID, conn: conn}
}

// Lookup returns the device's connection handle, or nil when absent.
func (r *Registry) Lookup(deviceID uuid.UUID) Conn {
	replyCh := make(chan Conn, 1)
	r.cmdCh <- cmdLookup{deviceID: deviceID, replyCh: replyCh}
	return <-replyCh
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	replyCh := make(chan int, 1)
	r.cmdCh <- cmdLen{replyCh: replyCh}
	return <-replyCh
}

// Stop closes every registered connection and shuts the registry down.
// Blocks until the registry goroutine has exited.
func (r *Registry) Stop() {
	r.cmdCh <- cmdStop{}
	<-r.done
}
