package websocket

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/laserlink/pkg/framework"
	"github.com/robotalks/laserlink/pkg/l1"
	"github.com/robotalks/laserlink/pkg/l1/comm"
)

// Paths served by Registrar.
const (
	MetaPath = "/meta"
	ConnPath = "/l1"
)

// Registrar implements l1.Registrar by serving websocket clients.
// Every client gets its own pipe, events are sent to all of them.
type Registrar struct {
	Info l1.ControllerInfo
	Addr string
	// Listener overrides Addr when set.
	Listener net.Listener

	lock    sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	ws  *websocket.Conn
	reg comm.Registrar
}

// NewRegistrar creates a Registrar listening on addr, e.g. ":8080".
func NewRegistrar(addr string, info l1.ControllerInfo) *Registrar {
	return &Registrar{Info: info, Addr: addr}
}

// SendEvent implements Registrar.
func (r *Registrar) SendEvent(ctx context.Context, msg fx.Message) error {
	r.lock.Lock()
	clients := make([]*client, 0, len(r.clients))
	for c := range r.clients {
		clients = append(clients, c)
	}
	r.lock.Unlock()
	var errs fx.AggregatedError
	for _, c := range clients {
		errs.Add(c.reg.SendEvent(ctx, msg))
	}
	return errs.Aggregate()
}

// Clients returns the number of connected clients.
func (r *Registrar) Clients() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.clients)
}

// AddToLoop implements LoopAdder.
func (r *Registrar) AddToLoop(loop *fx.Loop) {
	loop.AddRunnable(r)
}

// Handler serves the metadata and client connections. ctx must
// carry the loop control for commands to reach the loop.
func (r *Registrar) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(MetaPath, r.serveMeta)
	mux.Handle(ConnPath, websocket.Handler(func(ws *websocket.Conn) {
		r.serveClient(ctx, ws)
	}))
	return mux
}

// Run implements Runnable.
func (r *Registrar) Run(ctx context.Context) error {
	ln := r.Listener
	if ln == nil {
		var err error
		if ln, err = net.Listen("tcp", r.Addr); err != nil {
			return err
		}
	}
	server := &http.Server{Handler: r.Handler(ctx)}
	glog.Infof("websocket registrar listening on %s", ln.Addr())
	return fx.RunWithContextCancel(ctx, func() {
		server.Close()
		r.closeClients()
	}, func() error {
		if err := server.Serve(ln); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
}

func (r *Registrar) serveMeta(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&r.Info)
}

func (r *Registrar) serveClient(ctx context.Context, ws *websocket.Conn) {
	c := &client{ws: ws}
	c.reg.Init(New(ws))
	r.lock.Lock()
	if r.clients == nil {
		r.clients = make(map[*client]struct{})
	}
	r.clients[c] = struct{}{}
	r.lock.Unlock()

	remote := ws.Request().RemoteAddr
	glog.Infof("websocket client %s connected", remote)
	err := c.reg.Run(ctx)
	glog.Infof("websocket client %s disconnected: %v", remote, err)

	r.lock.Lock()
	delete(r.clients, c)
	r.lock.Unlock()
}

func (r *Registrar) closeClients() {
	r.lock.Lock()
	defer r.lock.Unlock()
	for c := range r.clients {
		c.ws.Close()
	}
}
