package comm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/laserlink/pkg/framework"
	"github.com/robotalks/laserlink/pkg/l1/msgs"
)

type packetRecorder struct {
	packets [][]byte
	err     error
}

func (r *packetRecorder) ReadPacket() ([]byte, error) {
	return nil, errors.New("not readable")
}

func (r *packetRecorder) WritePacket(pkt []byte) error {
	if r.err != nil {
		return r.err
	}
	r.packets = append(r.packets, pkt)
	return nil
}

func (r *packetRecorder) last(t *testing.T) *msgs.Typed {
	require.NotEmpty(t, r.packets)
	typed, err := msgs.DecodeTyped(r.packets[len(r.packets)-1])
	require.NoError(t, err)
	return typed
}

func encoded(t *testing.T, typed *msgs.Typed) []byte {
	pkt, err := typed.Encode()
	require.NoError(t, err)
	return pkt
}

func TestPipeReceive(t *testing.T) {
	rec := &packetRecorder{}
	p := NewPipe(rec)
	var handled []fx.Message
	p.Handler = msgs.HandleTypedMsgFunc(func(_ context.Context, msg fx.Message, _ *msgs.Typed) error {
		handled = append(handled, msg)
		return nil
	})
	ctx := context.Background()

	require.NoError(t, p.receive(ctx, []byte{0xff, 0xff, 0xff}))
	require.Empty(t, handled)

	require.NoError(t, p.receive(ctx, encoded(t, &msgs.Typed{TypeId: msgs.GroupCustom | 0x7001, Sequence: 5})))
	reply := rec.last(t)
	require.Equal(t, msgs.CommandErrTypeID, reply.TypeId)
	require.Equal(t, uint32(5), reply.Sequence)

	require.NoError(t, p.receive(ctx, encoded(t, &msgs.Typed{TypeId: msgs.TypeIDKindEvent | msgs.GroupCustom | 0x7001})))
	require.Len(t, rec.packets, 1)

	typed, err := msgs.TypedFrom(msgs.NewCommandOK())
	require.NoError(t, err)
	require.NoError(t, p.receive(ctx, encoded(t, typed)))
	require.Equal(t, []fx.Message{msgs.NewCommandOK()}, handled)

	require.Equal(t, PipeStats{Sent: 1, Received: 3, Malformed: 1, Unknown: 2}, p.Stats())
}

func TestPipeSendKind(t *testing.T) {
	rec := &packetRecorder{}
	p := NewPipe(rec)
	require.Equal(t, ErrWrongKind, p.SendEventMsg(msgs.NewCommandOK()))
	require.NoError(t, p.SendCommandMsg(msgs.NewCommandOK(), 7))
	require.Equal(t, uint32(7), rec.last(t).Sequence)

	rec.err = errors.New("broken")
	require.Error(t, p.SendCommandMsg(msgs.NewCommandOK(), 8))
	require.Equal(t, uint64(1), p.Stats().Sent)
}

func TestCommandRepliesOnce(t *testing.T) {
	rec := &packetRecorder{}
	cmd := &command{seq: 3, msg: msgs.NewCommandOK(), pipe: NewPipe(rec)}
	require.NoError(t, cmd.Done(msgs.NewCommandOK()))
	require.Equal(t, ErrAlreadyReplied, cmd.Done(msgs.NewCommandErrFromMsg("late")))
	require.Len(t, rec.packets, 1)
}

type registrarFunc func(context.Context, fx.Message) error

func (f registrarFunc) SendEvent(ctx context.Context, msg fx.Message) error {
	return f(ctx, msg)
}

func TestRegistrarMuxSendsToAll(t *testing.T) {
	var sent int
	ok := registrarFunc(func(context.Context, fx.Message) error {
		sent++
		return nil
	})
	broken := registrarFunc(func(context.Context, fx.Message) error {
		return errors.New("unplugged")
	})
	mux := &RegistrarMux{}
	mux.Add(ok, broken, ok)
	err := mux.SendEvent(context.Background(), msgs.NewCommandOK())
	require.Error(t, err)
	require.Len(t, err.(*fx.AggregatedError).Errors, 1)
	require.Equal(t, 2, sent)

	mux = &RegistrarMux{}
	mux.Add(ok)
	require.NoError(t, mux.SendEvent(context.Background(), msgs.NewCommandOK()))
}
