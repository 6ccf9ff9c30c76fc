// Package node is the L1 controller of a laser link transceiver. It
// serves outbox, transmit, receive and inbox commands from L2 and
// reports the link status as events.
package node

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/laserlink/pkg/framework"
	"github.com/robotalks/laserlink/pkg/buffer"
	"github.com/robotalks/laserlink/pkg/l1"
	l1msgs "github.com/robotalks/laserlink/pkg/l1/msgs"
	"github.com/robotalks/laserlink/pkg/laser"
	"github.com/robotalks/laserlink/pkg/laser/msgs"
)

// Controller is the L1 controller driving a laser.Session.
type Controller struct {
	Registrar       l1.Registrar
	Session         *laser.Session
	Outbox          *buffer.Outbox
	Inbox           *buffer.Inbox
	ReceiveDuration time.Duration

	closer        io.Closer
	workers       sync.WaitGroup
	statusChanged bool
}

// AddToLoop implements LoopAdder. The loop also runs c as a Runnable.
func (c *Controller) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvControl, c)
	loop.AddController(fx.PrLvPostProc, fx.ControlFunc(c.notifyStatusChange))
}

// Run implements Runnable. It releases the hardware when the loop
// stops.
func (c *Controller) Run(ctx context.Context) error {
	<-ctx.Done()
	c.workers.Wait()
	c.close()
	return ctx.Err()
}

func (c *Controller) close() {
	if c.Session != nil {
		if err := c.Session.Detach(); err != nil {
			glog.Warningf("detach: %v", err)
		}
	}
	if c.closer != nil {
		if err := c.closer.Close(); err != nil {
			glog.Warningf("close board: %v", err)
		}
	}
}

// Control implements Controller.
func (c *Controller) Control(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		switch msg := mctx.CurrentMessage().(type) {
		case *l1.CommandMsg:
			switch m := msg.Command.Msg().(type) {
			case *msgs.OutboxWrite:
				mctx.MessageTaken()
				msg.Command.Done(c.writeOutbox(m.Data, m.Append))
			case *msgs.Transmit:
				mctx.MessageTaken()
				c.transmit(cc, msg.Command, m)
			case *msgs.Receive:
				mctx.MessageTaken()
				c.receive(cc, msg.Command, m)
			case *msgs.InboxRead:
				mctx.MessageTaken()
				var text string
				if m.Clear {
					text = c.Inbox.Take()
					c.statusChanged = true
				} else {
					text = c.Inbox.Text()
				}
				msg.Command.Done(&msgs.InboxContents{Text: text})
			case *msgs.LinkStatusQuery:
				mctx.MessageTaken()
				msg.Command.Done(&msgs.LinkStatusReply{Status: c.linkStatus()})
			}
		case *workDone:
			mctx.MessageTaken()
			c.statusChanged = true
			if res := msg.received; res != nil && res.Outcome == laser.OK {
				c.sendEvent(cc.Context(), &msgs.DataReceived{
					Id:   res.ID,
					Text: res.Text,
					Bits: uint32(res.Bits),
				})
			}
		}
	}))
	return nil
}

func (c *Controller) writeOutbox(data []byte, appending bool) fx.Message {
	var err error
	if appending {
		err = c.Outbox.Append(data)
	} else {
		err = c.Outbox.Write(data)
	}
	c.statusChanged = true
	if err != nil {
		return l1msgs.NewCommandErr(err)
	}
	return l1msgs.NewCommandOK()
}

func (c *Controller) transmit(cc fx.ControlContext, cmd l1.Command, m *msgs.Transmit) {
	if len(m.Data) > 0 {
		if reply, failed := c.writeOutbox(m.Data, false).(*l1msgs.CommandErr); failed {
			cmd.Done(reply)
			return
		}
	}
	length := m.SendLength()
	c.statusChanged = true
	c.spawn(cc, func(context.Context) *workDone {
		outcome, sent, err := c.Session.TransmitOutbox(length)
		if err != nil {
			glog.Errorf("transmit: %v", err)
			cmd.Done(l1msgs.NewCommandErr(err))
			return &workDone{}
		}
		cmd.Done(&msgs.TransmitReply{Outcome: outcome.String(), Bytes: uint32(sent)})
		return &workDone{}
	})
}

func (c *Controller) receive(cc fx.ControlContext, cmd l1.Command, m *msgs.Receive) {
	d := m.Duration(c.ReceiveDuration)
	c.statusChanged = true
	c.spawn(cc, func(ctx context.Context) *workDone {
		res, err := c.Session.StartReceive(ctx, d)
		if err != nil {
			cmd.Done(l1msgs.NewCommandErr(err))
			return &workDone{}
		}
		cmd.Done(msgs.NewReceiveReply(res))
		return &workDone{received: &res}
	})
}

// spawn runs fn off the loop and posts its result back.
func (c *Controller) spawn(cc fx.ControlContext, fn func(context.Context) *workDone) {
	ctx := cc.Context()
	c.workers.Add(1)
	go func() {
		defer c.workers.Done()
		done := fn(ctx)
		cc.PostMessage(done)
		cc.TriggerNext()
	}()
}

func (c *Controller) linkStatus() *msgs.LinkStatus {
	return &msgs.LinkStatus{
		Mode:      c.Session.Mode().String(),
		Timing:    msgs.NewTimingInfo(c.Session.Timing()),
		OutboxLen: uint32(c.Outbox.Len()),
		InboxLen:  uint32(c.Inbox.Len()),
		Stats:     msgs.NewLinkStats(c.Session.Stats()),
	}
}

func (c *Controller) notifyStatusChange(cc fx.ControlContext) error {
	changed := c.statusChanged
	c.statusChanged = false
	if changed {
		return c.sendEvent(cc.Context(), c.linkStatus())
	}
	return nil
}

func (c *Controller) sendEvent(ctx context.Context, msg fx.Message) error {
	if c.Registrar == nil {
		return nil
	}
	return c.Registrar.SendEvent(ctx, msg)
}

type workDone struct {
	received *laser.ReceiveResult
}

func (m *workDone) NewMessage() fx.Message { return &workDone{} }
