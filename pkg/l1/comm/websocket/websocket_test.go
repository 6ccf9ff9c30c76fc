package websocket

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/laserlink/pkg/framework"
	"github.com/robotalks/laserlink/pkg/l1"
	"github.com/robotalks/laserlink/pkg/l1/comm"
	l1msgs "github.com/robotalks/laserlink/pkg/l1/msgs"
	"github.com/robotalks/laserlink/pkg/laser/msgs"
)

func inboxReplier(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		if cmd, ok := mctx.CurrentMessage().(*l1.CommandMsg); ok {
			if _, ok := cmd.Command.Msg().(*msgs.InboxRead); ok {
				mctx.MessageTaken()
				cmd.Command.Done(&msgs.InboxContents{Text: "Hi"})
			}
		}
	}))
	return nil
}

func TestRegistrarRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	info := l1.ControllerInfo{
		Ref:  l1.ControllerRef{Type: "laserlink", ID: "bench"},
		Meta: l1.ControllerMeta{Description: "loopback", Labels: map[string]string{"driver": "sim"}},
	}
	reg := NewRegistrar("", info)
	reg.Listener = ln

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	node := fx.NewLoop()
	node.Add(reg, &comm.UnsupportedCommands{})
	node.AddController(fx.PrLvControl, fx.ControlFunc(inboxReplier))
	go node.Run(ctx)

	connector, err := NewConnector("ws://" + ln.Addr().String())
	require.NoError(t, err)

	infos, err := connector.Discover(ctx)
	require.NoError(t, err)
	require.Equal(t, []l1.ControllerInfo{info}, infos)

	_, err = connector.Connect(ctx, l1.ControllerRef{Type: "laserlink", ID: "other"})
	require.Error(t, err)

	conn, err := connector.Connect(ctx, info.Ref)
	require.NoError(t, err)
	defer conn.(*ControllerConn).Close()

	events := make(chan *msgs.DataReceived, 1)
	cli := fx.NewLoop()
	cli.Add(conn.(fx.LoopAdder))
	cli.AddController(fx.PrLvControl, fx.ControlFunc(func(cc fx.ControlContext) error {
		cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
			if ev, ok := mctx.CurrentMessage().(*msgs.DataReceived); ok {
				mctx.MessageTaken()
				events <- ev
			}
		}))
		return nil
	}))
	go cli.Run(ctx)

	res := <-conn.DoCommand(&msgs.InboxRead{}).ResultChan()
	require.NoError(t, res.Err)
	require.Equal(t, &msgs.InboxContents{Text: "Hi"}, res.Msg)

	res = <-conn.DoCommand(&msgs.LinkStatusQuery{}).ResultChan()
	require.Error(t, res.Err)
	require.Equal(t, l1msgs.ErrUnsupportedCommand.Error(), res.Err.Error())

	require.Equal(t, 1, reg.Clients())
	require.NoError(t, reg.SendEvent(ctx, &msgs.DataReceived{Id: "a", Text: "Hi", Bits: 16}))
	select {
	case ev := <-events:
		require.Equal(t, "Hi", ev.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("event not received")
	}
}

func TestNewConnectorScheme(t *testing.T) {
	_, err := NewConnector("http://localhost:8080")
	require.Error(t, err)
	c, err := NewConnector("wss://node:8443/")
	require.NoError(t, err)
	require.Equal(t, "https://node:8443/meta", c.endpoint(c.httpScheme(), MetaPath))
	require.Equal(t, "wss://node:8443/l1", c.endpoint(c.URL.Scheme, ConnPath))
}
