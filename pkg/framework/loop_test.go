package framework

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

type testMsg struct {
	val int
}

func (m *testMsg) NewMessage() Message { return &testMsg{} }

type otherMsg struct{}

func (m *otherMsg) NewMessage() Message { return &otherMsg{} }

func TestLoopTicksWithClock(t *testing.T) {
	mock := clock.NewMock()
	l := NewLoop()
	l.Clock = mock
	l.Interval = 10 * time.Millisecond

	ticks := make(chan time.Time, 8)
	l.AddController(PrLvControl, ControlFunc(func(cc ControlContext) error {
		ticks <- cc.Time()
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	// Ticker creation races with Add, so keep advancing until it fires.
	var got time.Time
	require.Eventually(t, func() bool {
		mock.Add(10 * time.Millisecond)
		select {
		case got = <-ticks:
			return true
		default:
			return false
		}
	}, time.Second, time.Millisecond)
	require.False(t, got.IsZero())
	require.True(t, !got.After(mock.Now()))

	cancel()
	require.Equal(t, context.Canceled, <-done)
}

func TestLoopMessagesByPriority(t *testing.T) {
	l := NewLoop()
	l.Clock = clock.NewMock()

	var lock sync.Mutex
	var order []string
	var lowVal int
	record := func(s string) {
		lock.Lock()
		order = append(order, s)
		lock.Unlock()
	}
	processed := make(chan struct{}, 1)

	l.AddController(PrLvHigh, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mc MessageProcessingContext) {
			if m, ok := mc.CurrentMessage().(*testMsg); ok {
				record("high")
				m.val++
			}
		}))
		return nil
	}))
	l.AddController(PrLvLow, ControlFunc(func(cc ControlContext) error {
		var seen bool
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mc MessageProcessingContext) {
			if m, ok := mc.CurrentMessage().(*testMsg); ok {
				record("low")
				lock.Lock()
				lowVal = m.val
				lock.Unlock()
				mc.MessageTaken()
				seen = true
			}
		}))
		if seen {
			processed <- struct{}{}
		}
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	l.PostMessage(&testMsg{val: 1})
	l.PostMessage(&otherMsg{})
	l.TriggerNext()

	select {
	case <-processed:
	case <-time.After(2 * time.Second):
		t.Fatal("message not processed")
	}
	lock.Lock()
	defer lock.Unlock()
	require.Equal(t, []string{"high", "low"}, order)
	require.Equal(t, 2, lowVal)
}

func TestLoopRunsRunnablesAndHooks(t *testing.T) {
	l := NewLoop()
	l.Clock = clock.NewMock()

	started := make(chan struct{})
	l.AddRunnable(RunnableFunc(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))
	hooked := make(chan struct{}, 1)
	l.PostRunAt(PrLvIdle, ControlFunc(func(ControlContext) error {
		hooked <- struct{}{}
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	<-started
	l.TriggerNext()
	select {
	case <-hooked:
	case <-time.After(2 * time.Second):
		t.Fatal("post-run hook not called")
	}
	cancel()
	require.Equal(t, context.Canceled, <-done)
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil, nil).Aggregate())

	errA := errors.New("a")
	err := errs.Add(errA).Aggregate()
	require.Equal(t, "a", err.Error())

	err = errs.Add(nil, errors.New("b")).Aggregate()
	require.Error(t, err)
	require.Equal(t, "2 errors:\n\ta\n\tb", err.Error())
	require.ErrorIs(t, err, errA)
}

func TestMessageStore(t *testing.T) {
	testCases := []struct {
		name   string
		take   map[int]bool
		stopAt int
		added  bool
		seen   []int
		remain []int
	}{
		{name: "keep all", stopAt: -1, seen: []int{1, 2, 3}, remain: []int{1, 2, 3}},
		{name: "take some", take: map[int]bool{2: true}, stopAt: -1, seen: []int{1, 2, 3}, remain: []int{1, 3}},
		{name: "stop", take: map[int]bool{1: true}, stopAt: 2, seen: []int{1, 2}, remain: []int{2, 3}},
		{name: "added later", stopAt: -1, added: true, seen: []int{1, 2, 3}, remain: []int{1, 2, 3, 4}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := &messageStore{}
			s.AddMessages(&testMsg{val: 1}, &testMsg{val: 2}, &testMsg{val: 3})
			var seen []int
			s.ProcessMessages(ProcessMessageFunc(func(mc MessageProcessingContext) {
				val := mc.CurrentMessage().(*testMsg).val
				seen = append(seen, val)
				if tc.take[val] {
					mc.MessageTaken()
				}
				if val == tc.stopAt {
					mc.StopProcessing()
				}
				if tc.added && val == 1 {
					mc.AddMessages(&testMsg{val: 4})
				}
			}))
			require.Equal(t, tc.seen, seen)
			var remain []int
			for _, msg := range s.msgs {
				remain = append(remain, msg.(*testMsg).val)
			}
			require.Equal(t, tc.remain, remain)
		})
	}
}
