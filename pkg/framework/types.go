package framework

import (
	"context"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable is a background task bound to a context.
type Runnable interface {
	Run(context.Context) error
}

// RunnableFunc is the func form of Runnable.
type RunnableFunc func(context.Context) error

// Run implements Runnable.
func (f RunnableFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Message is anything posted to a Loop: commands from a registrar,
// events from a connection or completions of background work.
type Message interface {
	// NewMessage creates an empty message of the same type.
	NewMessage() Message
}

// Controller runs once per loop iteration at its priority level.
type Controller interface {
	Control(ControlContext) error
}

// ControlFunc defines the func form of Controller.
type ControlFunc func(ControlContext) error

// Control implements Controller.
func (f ControlFunc) Control(ctx ControlContext) error {
	return f(ctx)
}

// ControlContext is the state of the current iteration.
type ControlContext interface {
	// Time is when the iteration started.
	Time() time.Time
	Context() context.Context
	PriorityLevel() int
	// Messages holds the messages posted before the iteration started
	// and not yet taken by a higher priority controller.
	Messages() MessageStore
	// PostRun adds one-shot hooks run after the controllers of the
	// current level. Hooks added by a hook run next iteration.
	PostRun(hooks ...Controller)

	LoopControl
}

// PriorityLevels is the total levels of priorities, 0 runs first.
const PriorityLevels int = 16

// Priority levels.
const (
	PrLvTop    int = 0
	PrLvHigh   int = 4
	PrLvNormal int = 8
	PrLvLow    int = 12
	PrLvIdle   int = PriorityLevels - 1

	// PrLvControl is where controllers take their commands.
	PrLvControl = PrLvNormal
	// PrLvPostProc reports what changed during the iteration.
	PrLvPostProc = PrLvIdle - 1
)

// LoopControl is safe to use from any goroutine.
type LoopControl interface {
	// PreRunAt adds one-shot hooks run before the controllers of
	// the level in the next iteration.
	PreRunAt(priorityLevel int, controllers ...Controller)
	// PostRunAt adds one-shot hooks run after the controllers of
	// the level.
	PostRunAt(priorityLevel int, controllers ...Controller)
	// PostMessage enqueues the message for the next iteration.
	PostMessage(Message)
	// TriggerNext starts the next iteration without waiting for the
	// ticker.
	TriggerNext()
}

// MessageStore provides read/write access to a list of messages.
type MessageStore interface {
	ProcessMessages(MessageProcessor)

	MessageAppender
}

// MessageAppender appends messages visible to the controllers run
// later in the same iteration.
type MessageAppender interface {
	AddMessages(msgs ...Message)
}

// MessageProcessor visits messages one by one.
type MessageProcessor interface {
	ProcessMessage(MessageProcessingContext)
}

// ProcessMessageFunc is the func form of MessageProcessor.
type ProcessMessageFunc func(MessageProcessingContext)

// ProcessMessage implements MessageProcessor.
func (f ProcessMessageFunc) ProcessMessage(mc MessageProcessingContext) {
	f(mc)
}

// MessageProcessingContext provides context for current message.
type MessageProcessingContext interface {
	CurrentMessage() Message
	// MessageTaken removes the message from the store.
	MessageTaken()
	// StopProcessing skips the remaining messages.
	StopProcessing()

	MessageAppender
}
