// Package msgs defines the L1 messages of a laser link node.
package msgs

import (
	"time"

	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/laserlink/pkg/framework"
	"github.com/robotalks/laserlink/pkg/l1/msgs"
	"github.com/robotalks/laserlink/pkg/laser"
	"github.com/robotalks/laserlink/pkg/pdm"
)

// DefaultReceiveDuration is used when Receive carries no duration.
const DefaultReceiveDuration = 5 * time.Second

// DefaultMaxTransmit is the outbox size assumed when estimating the
// airtime of a full-length Transmit.
const DefaultMaxTransmit = 1024

// replyMargin is added to long command timeouts for transport latency.
const replyMargin = time.Second

// OutboxWrite replaces or appends to the outbox. Replied by CommandOK.
type OutboxWrite struct {
	Data   []byte `protobuf:"bytes,1,opt,name=data,proto3" json:"data,omitempty"`
	Append bool   `protobuf:"varint,2,opt,name=append,proto3" json:"append,omitempty"`
}

// NewMessage implements Message.
func (m *OutboxWrite) NewMessage() fx.Message { return &OutboxWrite{} }

// TypeID implements SerializableMessage.
func (m *OutboxWrite) TypeID() uint32 { return OutboxWriteTypeID }

// Serializable implements SerializableMessage.
func (m *OutboxWrite) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *OutboxWrite) ProtoMessage() {}

// Reset implements proto.Message.
func (m *OutboxWrite) Reset() { *m = OutboxWrite{} }

// String implements proto.Message.
func (m *OutboxWrite) String() string { return proto.CompactTextString(m) }

// Transmit sends the outbox. Non-empty Data replaces the outbox first.
// Length is the number of bytes to send, laser.FullLength for all.
// Data with a zero Length sends all of Data.
type Transmit struct {
	Data      []byte `protobuf:"bytes,1,opt,name=data,proto3" json:"data,omitempty"`
	Length    int32  `protobuf:"varint,2,opt,name=length,proto3" json:"length,omitempty"`
	TimeoutMs uint32 `protobuf:"varint,3,opt,name=timeout_ms,proto3" json:"timeout_ms,omitempty"`
}

// NewMessage implements Message.
func (m *Transmit) NewMessage() fx.Message { return &Transmit{} }

// TypeID implements SerializableMessage.
func (m *Transmit) TypeID() uint32 { return TransmitTypeID }

// Serializable implements SerializableMessage.
func (m *Transmit) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *Transmit) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Transmit) Reset() { *m = Transmit{} }

// String implements proto.Message.
func (m *Transmit) String() string { return proto.CompactTextString(m) }

// CommandTimeout implements l1.CommandTimeout. Without an explicit
// timeout the airtime is estimated with the default timing.
func (m *Transmit) CommandTimeout() time.Duration {
	if m.TimeoutMs > 0 {
		return time.Duration(m.TimeoutMs) * time.Millisecond
	}
	n := m.SendLength()
	switch {
	case n >= 0 && len(m.Data) > 0 && n > len(m.Data):
		n = len(m.Data)
	case n < 0 && len(m.Data) > 0:
		n = len(m.Data)
	case n < 0:
		n = DefaultMaxTransmit
	}
	return pdm.DefaultTiming.Airtime(n) + replyMargin
}

// SendLength is the length passed to the session.
func (m *Transmit) SendLength() int {
	if m.Length == 0 && len(m.Data) > 0 {
		return laser.FullLength
	}
	return int(m.Length)
}

// TransmitReply is the reply of Transmit.
type TransmitReply struct {
	Outcome string `protobuf:"bytes,1,opt,name=outcome,proto3" json:"outcome,omitempty"`
	Bytes   uint32 `protobuf:"varint,2,opt,name=bytes,proto3" json:"bytes,omitempty"`
}

// NewMessage implements Message.
func (m *TransmitReply) NewMessage() fx.Message { return &TransmitReply{} }

// TypeID implements SerializableMessage.
func (m *TransmitReply) TypeID() uint32 { return TransmitReplyTypeID }

// Serializable implements SerializableMessage.
func (m *TransmitReply) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *TransmitReply) ProtoMessage() {}

// Reset implements proto.Message.
func (m *TransmitReply) Reset() { *m = TransmitReply{} }

// String implements proto.Message.
func (m *TransmitReply) String() string { return proto.CompactTextString(m) }

// Receive opens a receive window. Zero DurationMs uses the node's
// default.
type Receive struct {
	DurationMs uint32 `protobuf:"varint,1,opt,name=duration_ms,proto3" json:"duration_ms,omitempty"`
}

// NewMessage implements Message.
func (m *Receive) NewMessage() fx.Message { return &Receive{} }

// TypeID implements SerializableMessage.
func (m *Receive) TypeID() uint32 { return ReceiveTypeID }

// Serializable implements SerializableMessage.
func (m *Receive) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *Receive) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Receive) Reset() { *m = Receive{} }

// String implements proto.Message.
func (m *Receive) String() string { return proto.CompactTextString(m) }

// Duration returns the window, or def if unset.
func (m *Receive) Duration(def time.Duration) time.Duration {
	if m.DurationMs == 0 {
		return def
	}
	return time.Duration(m.DurationMs) * time.Millisecond
}

// CommandTimeout implements l1.CommandTimeout.
func (m *Receive) CommandTimeout() time.Duration {
	return m.Duration(DefaultReceiveDuration) + replyMargin
}

// ReceiveReply is the reply of Receive.
type ReceiveReply struct {
	Id         string `protobuf:"bytes,1,opt,name=id,proto3" json:"id,omitempty"`
	Outcome    string `protobuf:"bytes,2,opt,name=outcome,proto3" json:"outcome,omitempty"`
	Text       string `protobuf:"bytes,3,opt,name=text,proto3" json:"text,omitempty"`
	Bits       uint32 `protobuf:"varint,4,opt,name=bits,proto3" json:"bits,omitempty"`
	Trailing   uint32 `protobuf:"varint,5,opt,name=trailing,proto3" json:"trailing,omitempty"`
	Dropped    uint32 `protobuf:"varint,6,opt,name=dropped,proto3" json:"dropped,omitempty"`
	Stale      uint32 `protobuf:"varint,7,opt,name=stale,proto3" json:"stale,omitempty"`
	Truncated  bool   `protobuf:"varint,8,opt,name=truncated,proto3" json:"truncated,omitempty"`
	DurationUs int64  `protobuf:"varint,9,opt,name=duration_us,proto3" json:"duration_us,omitempty"`
}

// NewReceiveReply converts a receive result.
func NewReceiveReply(res laser.ReceiveResult) *ReceiveReply {
	return &ReceiveReply{
		Id:         res.ID,
		Outcome:    res.Outcome.String(),
		Text:       res.Text,
		Bits:       uint32(res.Bits),
		Trailing:   uint32(res.Trailing),
		Dropped:    uint32(res.Dropped),
		Stale:      uint32(res.Stale),
		Truncated:  res.Truncated,
		DurationUs: res.Duration.Microseconds(),
	}
}

// NewMessage implements Message.
func (m *ReceiveReply) NewMessage() fx.Message { return &ReceiveReply{} }

// TypeID implements SerializableMessage.
func (m *ReceiveReply) TypeID() uint32 { return ReceiveReplyTypeID }

// Serializable implements SerializableMessage.
func (m *ReceiveReply) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *ReceiveReply) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ReceiveReply) Reset() { *m = ReceiveReply{} }

// String implements proto.Message.
func (m *ReceiveReply) String() string { return proto.CompactTextString(m) }

// InboxRead reads the inbox, optionally clearing it.
type InboxRead struct {
	Clear bool `protobuf:"varint,1,opt,name=clear,proto3" json:"clear,omitempty"`
}

// NewMessage implements Message.
func (m *InboxRead) NewMessage() fx.Message { return &InboxRead{} }

// TypeID implements SerializableMessage.
func (m *InboxRead) TypeID() uint32 { return InboxReadTypeID }

// Serializable implements SerializableMessage.
func (m *InboxRead) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *InboxRead) ProtoMessage() {}

// Reset implements proto.Message.
func (m *InboxRead) Reset() { *m = InboxRead{} }

// String implements proto.Message.
func (m *InboxRead) String() string { return proto.CompactTextString(m) }

// InboxContents is the reply of InboxRead.
type InboxContents struct {
	Text string `protobuf:"bytes,1,opt,name=text,proto3" json:"text,omitempty"`
}

// NewMessage implements Message.
func (m *InboxContents) NewMessage() fx.Message { return &InboxContents{} }

// TypeID implements SerializableMessage.
func (m *InboxContents) TypeID() uint32 { return InboxContentsTypeID }

// Serializable implements SerializableMessage.
func (m *InboxContents) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *InboxContents) ProtoMessage() {}

// Reset implements proto.Message.
func (m *InboxContents) Reset() { *m = InboxContents{} }

// String implements proto.Message.
func (m *InboxContents) String() string { return proto.CompactTextString(m) }

// LinkStatusQuery queries the status.
type LinkStatusQuery struct {
}

// NewMessage implements Message.
func (m *LinkStatusQuery) NewMessage() fx.Message { return &LinkStatusQuery{} }

// TypeID implements SerializableMessage.
func (m *LinkStatusQuery) TypeID() uint32 { return LinkStatusQueryTypeID }

// Serializable implements SerializableMessage.
func (m *LinkStatusQuery) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *LinkStatusQuery) ProtoMessage() {}

// Reset implements proto.Message.
func (m *LinkStatusQuery) Reset() { *m = LinkStatusQuery{} }

// String implements proto.Message.
func (m *LinkStatusQuery) String() string { return proto.CompactTextString(m) }

// LinkStatusReply is the response for LinkStatusQuery.
type LinkStatusReply struct {
	Status *LinkStatus `protobuf:"bytes,1,opt,name=status,proto3" json:"status,omitempty"`
}

// NewMessage implements Message.
func (m *LinkStatusReply) NewMessage() fx.Message { return &LinkStatusReply{} }

// TypeID implements SerializableMessage.
func (m *LinkStatusReply) TypeID() uint32 { return LinkStatusReplyTypeID }

// Serializable implements SerializableMessage.
func (m *LinkStatusReply) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *LinkStatusReply) ProtoMessage() {}

// Reset implements proto.Message.
func (m *LinkStatusReply) Reset() { *m = LinkStatusReply{} }

// String implements proto.Message.
func (m *LinkStatusReply) String() string { return proto.CompactTextString(m) }

// LinkStatus is the event reporting the state of a node.
type LinkStatus struct {
	Mode      string      `protobuf:"bytes,1,opt,name=mode,proto3" json:"mode,omitempty"`
	Timing    *TimingInfo `protobuf:"bytes,2,opt,name=timing,proto3" json:"timing,omitempty"`
	OutboxLen uint32      `protobuf:"varint,3,opt,name=outbox_len,proto3" json:"outbox_len,omitempty"`
	InboxLen  uint32      `protobuf:"varint,4,opt,name=inbox_len,proto3" json:"inbox_len,omitempty"`
	Stats     *LinkStats  `protobuf:"bytes,5,opt,name=stats,proto3" json:"stats,omitempty"`
}

// NewMessage implements Message.
func (m *LinkStatus) NewMessage() fx.Message { return &LinkStatus{} }

// TypeID implements SerializableMessage.
func (m *LinkStatus) TypeID() uint32 { return LinkStatusEventTypeID }

// Serializable implements SerializableMessage.
func (m *LinkStatus) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *LinkStatus) ProtoMessage() {}

// Reset implements proto.Message.
func (m *LinkStatus) Reset() { *m = LinkStatus{} }

// String implements proto.Message.
func (m *LinkStatus) String() string { return proto.CompactTextString(m) }

// TimingInfo carries pdm.Timing in microseconds.
type TimingInfo struct {
	High0Us uint32 `protobuf:"varint,1,opt,name=high0_us,proto3" json:"high0_us,omitempty"`
	Low0Us  uint32 `protobuf:"varint,2,opt,name=low0_us,proto3" json:"low0_us,omitempty"`
	High1Us uint32 `protobuf:"varint,3,opt,name=high1_us,proto3" json:"high1_us,omitempty"`
	Low1Us  uint32 `protobuf:"varint,4,opt,name=low1_us,proto3" json:"low1_us,omitempty"`
}

// NewTimingInfo converts t.
func NewTimingInfo(t pdm.Timing) *TimingInfo {
	return &TimingInfo{
		High0Us: uint32(t.High0.Microseconds()),
		Low0Us:  uint32(t.Low0.Microseconds()),
		High1Us: uint32(t.High1.Microseconds()),
		Low1Us:  uint32(t.Low1.Microseconds()),
	}
}

// Timing converts back to pdm.Timing.
func (m *TimingInfo) Timing() pdm.Timing {
	return pdm.Timing{
		High0: time.Duration(m.High0Us) * time.Microsecond,
		Low0:  time.Duration(m.Low0Us) * time.Microsecond,
		High1: time.Duration(m.High1Us) * time.Microsecond,
		Low1:  time.Duration(m.Low1Us) * time.Microsecond,
	}
}

// ProtoMessage implements proto.Message.
func (m *TimingInfo) ProtoMessage() {}

// Reset implements proto.Message.
func (m *TimingInfo) Reset() { *m = TimingInfo{} }

// String implements proto.Message.
func (m *TimingInfo) String() string { return proto.CompactTextString(m) }

// LinkStats are the node counters.
type LinkStats struct {
	Edges         uint64 `protobuf:"varint,1,opt,name=edges,proto3" json:"edges,omitempty"`
	Timeouts      uint64 `protobuf:"varint,2,opt,name=timeouts,proto3" json:"timeouts,omitempty"`
	Recorded      uint64 `protobuf:"varint,3,opt,name=recorded,proto3" json:"recorded,omitempty"`
	Discarded     uint64 `protobuf:"varint,4,opt,name=discarded,proto3" json:"discarded,omitempty"`
	Transmits     uint64 `protobuf:"varint,5,opt,name=transmits,proto3" json:"transmits,omitempty"`
	BytesSent     uint64 `protobuf:"varint,6,opt,name=bytes_sent,proto3" json:"bytes_sent,omitempty"`
	Receives      uint64 `protobuf:"varint,7,opt,name=receives,proto3" json:"receives,omitempty"`
	BytesReceived uint64 `protobuf:"varint,8,opt,name=bytes_received,proto3" json:"bytes_received,omitempty"`
}

// NewLinkStats converts session stats.
func NewLinkStats(s laser.Stats) *LinkStats {
	return &LinkStats{
		Edges:         s.Edges,
		Timeouts:      s.Timeouts,
		Recorded:      s.Recorded,
		Discarded:     s.Discarded,
		Transmits:     s.Transmits,
		BytesSent:     s.BytesSent,
		Receives:      s.Receives,
		BytesReceived: s.BytesReceived,
	}
}

// ProtoMessage implements proto.Message.
func (m *LinkStats) ProtoMessage() {}

// Reset implements proto.Message.
func (m *LinkStats) Reset() { *m = LinkStats{} }

// String implements proto.Message.
func (m *LinkStats) String() string { return proto.CompactTextString(m) }

// DataReceived is the event emitted when a receive window decoded data.
type DataReceived struct {
	Id   string `protobuf:"bytes,1,opt,name=id,proto3" json:"id,omitempty"`
	Text string `protobuf:"bytes,2,opt,name=text,proto3" json:"text,omitempty"`
	Bits uint32 `protobuf:"varint,3,opt,name=bits,proto3" json:"bits,omitempty"`
}

// NewMessage implements Message.
func (m *DataReceived) NewMessage() fx.Message { return &DataReceived{} }

// TypeID implements SerializableMessage.
func (m *DataReceived) TypeID() uint32 { return DataReceivedEventTypeID }

// Serializable implements SerializableMessage.
func (m *DataReceived) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *DataReceived) ProtoMessage() {}

// Reset implements proto.Message.
func (m *DataReceived) Reset() { *m = DataReceived{} }

// String implements proto.Message.
func (m *DataReceived) String() string { return proto.CompactTextString(m) }

// GroupLaser defines the custom group.
const GroupLaser = msgs.GroupCustom | 0x00010000

// TypeIDs
const (
	LinkStatusEventTypeID   uint32 = GroupLaser | msgs.TypeIDKindEvent | 0x0000
	DataReceivedEventTypeID uint32 = GroupLaser | msgs.TypeIDKindEvent | 0x0001

	LinkStatusQueryTypeID uint32 = GroupLaser | 0x0000
	LinkStatusReplyTypeID uint32 = GroupLaser | msgs.TypeIDMaskReply | 0x0000
	OutboxWriteTypeID     uint32 = GroupLaser | 0x0001
	TransmitTypeID        uint32 = GroupLaser | 0x0002
	TransmitReplyTypeID   uint32 = GroupLaser | msgs.TypeIDMaskReply | 0x0002
	ReceiveTypeID         uint32 = GroupLaser | 0x0003
	ReceiveReplyTypeID    uint32 = GroupLaser | msgs.TypeIDMaskReply | 0x0003
	InboxReadTypeID       uint32 = GroupLaser | 0x0004
	InboxContentsTypeID   uint32 = GroupLaser | msgs.TypeIDMaskReply | 0x0004
)

func init() {
	msgs.Register(
		(*LinkStatus)(nil),
		(*DataReceived)(nil),
		(*LinkStatusQuery)(nil),
		(*LinkStatusReply)(nil),
		(*OutboxWrite)(nil),
		(*Transmit)(nil),
		(*TransmitReply)(nil),
		(*Receive)(nil),
		(*ReceiveReply)(nil),
		(*InboxRead)(nil),
		(*InboxContents)(nil),
	)
}
