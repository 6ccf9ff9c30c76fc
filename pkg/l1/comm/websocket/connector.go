package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/net/websocket"

	"github.com/robotalks/laserlink/pkg/l1"
	"github.com/robotalks/laserlink/pkg/l1/comm"
)

// Connector implements l1.Connector by dialing a Registrar.
type Connector struct {
	// URL is the server, e.g. ws://host:8080.
	URL *url.URL
}

// NewConnector creates a Connector.
func NewConnector(serverURL string) (*Connector, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("websocket URL scheme must be ws or wss: %q", u.Scheme)
	}
	return &Connector{URL: u}, nil
}

func (c *Connector) endpoint(scheme, path string) string {
	u := *c.URL
	u.Scheme, u.Path, u.RawQuery = scheme, path, ""
	return u.String()
}

func (c *Connector) httpScheme() string {
	if c.URL.Scheme == "wss" {
		return "https"
	}
	return "http"
}

// Discover implements Connector. A server hosts a single controller.
func (c *Connector) Discover(ctx context.Context) ([]l1.ControllerInfo, error) {
	req, err := http.NewRequest(http.MethodGet, c.endpoint(c.httpScheme(), MetaPath), nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discover: %s", resp.Status)
	}
	var info l1.ControllerInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return []l1.ControllerInfo{info}, nil
}

// Connect implements Connector. A valid ref must match the
// controller served.
func (c *Connector) Connect(ctx context.Context, ref l1.ControllerRef) (l1.ControllerConn, error) {
	if ref.IsValid() {
		infos, err := c.Discover(ctx)
		if err != nil {
			return nil, err
		}
		if infos[0].Ref != ref {
			return nil, fmt.Errorf("controller %s not served at %s", ref.Name(), c.URL)
		}
	}
	ws, err := websocket.Dial(c.endpoint(c.URL.Scheme, ConnPath), "", c.endpoint(c.httpScheme(), "/"))
	if err != nil {
		return nil, err
	}
	conn := &ControllerConn{Conn: ws}
	conn.Init(New(ws))
	return conn, nil
}

// ControllerConn implements ControllerConn over websocket.
type ControllerConn struct {
	comm.ControllerConn
	Conn *websocket.Conn
}

// Close implements io.Closer.
func (c *ControllerConn) Close() error {
	return c.Conn.Close()
}
