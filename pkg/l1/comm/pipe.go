package comm

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/golang/glog"
	"go.uber.org/atomic"

	fx "github.com/robotalks/laserlink/pkg/framework"
	"github.com/robotalks/laserlink/pkg/l1/msgs"
)

// ErrWrongKind is returned when sending a command as an event or
// the other way around.
var ErrWrongKind = errors.New("wrong message kind")

// Pipe carries Typed messages over a PacketReadWriter in both
// directions. Packets which don't decode are counted and skipped so a
// noisy line doesn't tear down the link.
type Pipe struct {
	ReadWriter PacketReadWriter
	Handler    msgs.TypedMsgHandler

	sendLock sync.Mutex
	stats    pipeStats
}

// PipeStats counts the traffic of a Pipe.
type PipeStats struct {
	Sent      uint64
	Received  uint64
	Malformed uint64
	Unknown   uint64
}

type pipeStats struct {
	sent      atomic.Uint64
	received  atomic.Uint64
	malformed atomic.Uint64
	unknown   atomic.Uint64
}

// NewPipe creates a Pipe with given PacketReadWriter.
func NewPipe(rw PacketReadWriter) *Pipe {
	return &Pipe{ReadWriter: rw}
}

// Stats returns the traffic counters.
func (p *Pipe) Stats() PipeStats {
	return PipeStats{
		Sent:      p.stats.sent.Load(),
		Received:  p.stats.received.Load(),
		Malformed: p.stats.malformed.Load(),
		Unknown:   p.stats.unknown.Load(),
	}
}

// SendCommandMsg sends a command, or a reply to the command seq.
func (p *Pipe) SendCommandMsg(msg fx.Message, seq uint32) error {
	return p.send(msg, msgs.TypeIDKindCommand, seq)
}

// SendEventMsg sends an event.
func (p *Pipe) SendEventMsg(msg fx.Message) error {
	return p.send(msg, msgs.TypeIDKindEvent, 0)
}

func (p *Pipe) send(msg fx.Message, kind, seq uint32) error {
	typed, err := msgs.TypedFrom(msg)
	if err != nil {
		return err
	}
	if typed.Kind() != kind {
		return ErrWrongKind
	}
	typed.Sequence = seq
	return p.SendTyped(typed)
}

// SendTyped send a Typed message.
func (p *Pipe) SendTyped(typed *msgs.Typed) error {
	pkt, err := typed.Encode()
	if err != nil {
		return err
	}
	p.sendLock.Lock()
	err = p.ReadWriter.WritePacket(pkt)
	p.sendLock.Unlock()
	if err == nil {
		p.stats.sent.Inc()
	}
	return err
}

// Run implements Runnable. It returns when reading fails or the
// handler returns an error.
func (p *Pipe) Run(ctx context.Context) error {
	defer p.Close()
	for {
		pkt, err := p.ReadWriter.ReadPacket()
		if err != nil {
			return err
		}
		if err = p.receive(ctx, pkt); err != nil {
			return err
		}
	}
}

func (p *Pipe) receive(ctx context.Context, pkt []byte) error {
	typed, err := msgs.DecodeTyped(pkt)
	if err != nil {
		p.stats.malformed.Inc()
		glog.V(1).Infof("malformed packet (%d bytes): %v", len(pkt), err)
		return nil
	}
	p.stats.received.Inc()
	msg, err := typed.Decode()
	if err != nil {
		p.stats.unknown.Inc()
		if typed.IsCommand() && !typed.IsReply() {
			return p.SendCommandMsg(msgs.NewCommandErr(err), typed.Sequence)
		}
		glog.V(1).Infof("dropped message %x: %v", typed.TypeId, err)
		return nil
	}
	if p.Handler == nil {
		return nil
	}
	return p.Handler.HandleTypedMsg(ctx, msg, typed)
}

// Close implements Closer.
func (p *Pipe) Close() error {
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// AddToLoop implements LoopAdder.
func (p *Pipe) AddToLoop(loop *fx.Loop) {
	switch rw := p.ReadWriter.(type) {
	case fx.LoopAdder:
		loop.Add(rw)
	case fx.Runnable:
		loop.AddRunnable(rw)
	}
	loop.AddRunnable(p)
}
