package serial

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
	"go.bug.st/serial"

	fx "github.com/robotalks/laserlink/pkg/framework"
	"github.com/robotalks/laserlink/pkg/l1"
	"github.com/robotalks/laserlink/pkg/l1/comm"
	"github.com/robotalks/laserlink/pkg/l1/comm/stream"
)

// OpenFunc opens a port.
type OpenFunc func(name string, opts PortOptions) (io.ReadWriteCloser, error)

// Open opens a real serial port.
func Open(name string, opts PortOptions) (io.ReadWriteCloser, error) {
	mode, err := opts.Mode()
	if err != nil {
		return nil, err
	}
	return serial.Open(name, mode)
}

// ReopenInterval is the wait before reopening a failed port.
const ReopenInterval = time.Second

// Registrar implements l1.Registrar on a serial port. The port is
// reopened when it fails, e.g. a USB adapter unplugged.
type Registrar struct {
	Port    string
	Options PortOptions
	Open    OpenFunc

	lock      sync.Mutex
	registrar *comm.Registrar
}

// NewRegistrar creates a Registrar from a serial URL.
func NewRegistrar(rawURL string) (*Registrar, error) {
	port, opts, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return &Registrar{Port: port, Options: opts, Open: Open}, nil
}

// SendEvent implements Registrar. Events are dropped while the port
// is closed.
func (r *Registrar) SendEvent(ctx context.Context, msg fx.Message) error {
	r.lock.Lock()
	reg := r.registrar
	r.lock.Unlock()
	if reg == nil {
		glog.V(2).Infof("serial %s closed, event dropped", r.Port)
		return nil
	}
	return reg.SendEvent(ctx, msg)
}

// AddToLoop implements LoopAdder.
func (r *Registrar) AddToLoop(loop *fx.Loop) {
	loop.AddRunnable(r)
}

// Run implements Runnable.
func (r *Registrar) Run(ctx context.Context) error {
	for {
		if err := r.serve(ctx); err != nil && ctx.Err() == nil {
			glog.Warningf("serial %s: %v", r.Port, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ReopenInterval):
		}
	}
}

func (r *Registrar) serve(ctx context.Context) error {
	port, err := r.Open(r.Port, r.Options)
	if err != nil {
		return err
	}
	glog.Infof("serial %s opened at %d baud", r.Port, r.Options.BaudRate)
	reg := &comm.Registrar{}
	reg.Init(stream.New(port))
	r.lock.Lock()
	r.registrar = reg
	r.lock.Unlock()
	defer func() {
		r.lock.Lock()
		r.registrar = nil
		r.lock.Unlock()
	}()
	return fx.RunWithContextCloser(ctx, port, func() error {
		return reg.Run(ctx)
	})
}

// Connector implements l1.Connector on a serial port. The line is
// point-to-point so any ref connects to whatever is on the other end.
type Connector struct {
	Port    string
	Options PortOptions
	Open    OpenFunc
}

// NewConnector creates a Connector from a serial URL.
func NewConnector(rawURL string) (*Connector, error) {
	port, opts, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return &Connector{Port: port, Options: opts, Open: Open}, nil
}

// Discover implements Connector.
func (c *Connector) Discover(context.Context) ([]l1.ControllerInfo, error) {
	return nil, comm.ErrDiscoverUnsupported
}

// Connect implements Connector.
func (c *Connector) Connect(ctx context.Context, ref l1.ControllerRef) (l1.ControllerConn, error) {
	port, err := c.Open(c.Port, c.Options)
	if err != nil {
		return nil, err
	}
	conn := &ControllerConn{Port: port}
	conn.Init(stream.New(port))
	return conn, nil
}

// ControllerConn implements ControllerConn on a serial port.
type ControllerConn struct {
	comm.ControllerConn
	Port io.ReadWriteCloser
}

// Close implements io.Closer.
func (c *ControllerConn) Close() error {
	return c.Port.Close()
}
