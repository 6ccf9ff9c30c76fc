package comm

import (
	"context"
	"errors"
	"reflect"

	"github.com/golang/glog"
	"go.uber.org/atomic"

	fx "github.com/robotalks/laserlink/pkg/framework"
	"github.com/robotalks/laserlink/pkg/l1"
	"github.com/robotalks/laserlink/pkg/l1/msgs"
)

// ErrAlreadyReplied is returned when a command is replied twice.
var ErrAlreadyReplied = errors.New("command already replied")

// Registrar serves a controller over a Pipe. Received commands are
// posted to the loop as l1.CommandMsg, received events as themselves.
type Registrar struct {
	pipe Pipe
}

// Init initializes the Registrar with defaults.
func (r *Registrar) Init(rw PacketReadWriter) {
	r.pipe.ReadWriter = rw
	r.pipe.Handler = msgs.HandleTypedMsgFunc(r.handleTypedMsg)
}

func (r *Registrar) handleTypedMsg(ctx context.Context, msg fx.Message, typed *msgs.Typed) error {
	if typed.IsReply() {
		glog.V(1).Infof("unexpected reply %x", typed.TypeId)
		return nil
	}
	if typed.IsCommand() {
		msg = &l1.CommandMsg{Command: &command{seq: typed.Sequence, msg: msg, pipe: &r.pipe}}
	}
	loopCtl := fx.LoopCtlFrom(ctx)
	loopCtl.PostMessage(msg)
	loopCtl.TriggerNext()
	return nil
}

// SendEvent implements Registrar.
func (r *Registrar) SendEvent(ctx context.Context, msg fx.Message) error {
	return r.pipe.SendEventMsg(msg)
}

// Stats returns the traffic counters of the pipe.
func (r *Registrar) Stats() PipeStats {
	return r.pipe.Stats()
}

// AddToLoop implements LoopAdder.
func (r *Registrar) AddToLoop(loop *fx.Loop) {
	loop.Add(&r.pipe)
}

// Run pumps the pipe until it fails. It's used instead of AddToLoop
// when the transport comes and goes while the loop is running,
// ctx must carry the loop control.
func (r *Registrar) Run(ctx context.Context) error {
	return r.pipe.Run(ctx)
}

type command struct {
	seq     uint32
	msg     fx.Message
	pipe    *Pipe
	replied atomic.Bool
}

func (c *command) Msg() fx.Message {
	return c.msg
}

// Done sends the reply. Only the first reply goes out.
func (c *command) Done(reply fx.Message) error {
	if c.replied.Swap(true) {
		return ErrAlreadyReplied
	}
	return c.pipe.SendCommandMsg(reply, c.seq)
}

// RegistrarMux registers a controller with multiple Registrars.
// An event is sent through every registrar even if some fail.
type RegistrarMux struct {
	Registrars []l1.Registrar
}

// SendEvent implements Registrar.
func (r *RegistrarMux) SendEvent(ctx context.Context, msg fx.Message) error {
	var errs fx.AggregatedError
	for _, reg := range r.Registrars {
		if err := reg.SendEvent(ctx, msg); err != nil {
			glog.V(1).Infof("%T: send event: %v", reg, err)
			errs.Add(err)
		}
	}
	return errs.Aggregate()
}

// AddToLoop implements LoopAdder.
func (r *RegistrarMux) AddToLoop(l *fx.Loop) {
	for _, reg := range r.Registrars {
		if adder, ok := reg.(fx.LoopAdder); ok {
			l.Add(adder)
		}
	}
}

// Add adds more registrars.
func (r *RegistrarMux) Add(regs ...l1.Registrar) {
	r.Registrars = append(r.Registrars, regs...)
}

// UnsupportedCommands replies left-over commands as unsupported.
type UnsupportedCommands struct{}

// Control implements Controller.
func (c *UnsupportedCommands) Control(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		cmdMsg, ok := mctx.CurrentMessage().(*l1.CommandMsg)
		if !ok {
			return
		}
		mctx.MessageTaken()
		glog.V(1).Infof("unsupported command %s", reflect.Indirect(reflect.ValueOf(cmdMsg.Command.Msg())).Type().Name())
		cmdMsg.Command.Done(msgs.NewCommandErr(msgs.ErrUnsupportedCommand))
	}))
	return nil
}

// AddToLoop implements LoopAdder.
func (c *UnsupportedCommands) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvIdle, c)
}
