package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tavola/internal/eventstore"
	"tavola/internal/eventstore/memory"
	"tavola/internal/platform/logger"
)

type recordingHandler struct {
	name string
	fail func(ev eventstore.Event, attempt int) error

	mu       sync.Mutex
	seen     []int64
	attempts map[int64]int
}

func newRecorder(name string) *recordingHandler {
	return &recordingHandler{name: name, attempts: make(map[int64]int)}
}

func (h *recordingHandler) Name() string { return h.name }

func (h *recordingHandler) Handle(_ context.Context, ev eventstore.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attempts[ev.Position]++
	if h.fail != nil {
		if err := h.fail(ev, h.attempts[ev.Position]); err != nil {
			return err
		}
	}
	h.seen = append(h.seen, ev.Position)
	return nil
}

func (h *recordingHandler) positions() []int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int64(nil), h.seen...)
}

type DispatchSuite struct {
	suite.Suite
	ctx         context.Context
	store       *memory.Store
	checkpoints *MemoryCheckpoints
	runner      *Runner
}

func TestDispatchSuite(t *testing.T) {
	suite.Run(t, new(DispatchSuite))
}

func (s *DispatchSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New()
	s.checkpoints = NewMemoryCheckpoints()
	s.runner = New(s.store, s.checkpoints,
		WithLogger(logger.Discard()),
		WithRetry(3, time.Millisecond),
	)
}

func (s *DispatchSuite) appendEvents(stream string, n int) {
	events := make([]eventstore.NewEvent, n)
	for i := range events {
		events[i] = eventstore.NewEvent{Type: "Tick", Payload: json.RawMessage(`{}`)}
	}
	current, err := s.store.ReadStream(s.ctx, stream, 0)
	s.Require().NoError(err)
	_, err = s.store.Append(s.ctx, stream, len(current), events)
	s.Require().NoError(err)
}

func (s *DispatchSuite) TestCatchUpDeliversInOrderAndCheckpoints() {
	s.appendEvents("a", 2)
	s.appendEvents("b", 1)
	h := newRecorder("summary")

	s.Require().NoError(s.runner.CatchUp(s.ctx, h))

	s.Equal([]int64{1, 2, 3}, h.positions())
	pos, err := s.checkpoints.Load(s.ctx, "summary")
	s.Require().NoError(err)
	s.Equal(int64(3), pos)
}

func (s *DispatchSuite) TestResumesFromCheckpoint() {
	s.appendEvents("a", 3)
	s.Require().NoError(s.checkpoints.Save(s.ctx, "history", 2))
	h := newRecorder("history")

	s.Require().NoError(s.runner.CatchUp(s.ctx, h))

	s.Equal([]int64{3}, h.positions())
}

func (s *DispatchSuite) TestRetriesTransientFailures() {
	s.appendEvents("a", 1)
	h := newRecorder("flaky")
	h.fail = func(_ eventstore.Event, attempt int) error {
		if attempt < 3 {
			return errors.New("database busy")
		}
		return nil
	}

	s.Require().NoError(s.runner.CatchUp(s.ctx, h))

	s.Equal([]int64{1}, h.positions())
	s.Equal(3, h.attempts[1])
}

func (s *DispatchSuite) TestSkipsPermanentFailures() {
	s.appendEvents("a", 3)
	h := newRecorder("strict")
	h.fail = func(ev eventstore.Event, _ int) error {
		if ev.Position == 2 {
			return Skip(errors.New("malformed payload"))
		}
		return nil
	}

	s.Require().NoError(s.runner.CatchUp(s.ctx, h))

	s.Equal([]int64{1, 3}, h.positions())
	s.Equal(1, h.attempts[2], "skipped events are not retried")
	statuses := s.runner.Statuses()
	s.Require().Len(statuses, 1)
	s.Equal(1, statuses[0].Skipped)
}

func (s *DispatchSuite) TestHaltsOnlyTheFailingSubscriber() {
	s.appendEvents("a", 3)
	broken := newRecorder("broken")
	broken.fail = func(ev eventstore.Event, _ int) error {
		if ev.Position == 2 {
			return errors.New("unexpected state")
		}
		return nil
	}
	healthy := newRecorder("healthy")

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan error, 1)
	go func() { done <- s.runner.Run(ctx, broken, healthy) }()

	s.Eventually(func() bool { return len(healthy.positions()) == 3 }, time.Second, 5*time.Millisecond)
	s.Eventually(func() bool {
		for _, st := range s.runner.Statuses() {
			if st.Name == "broken" {
				return st.State == StateHalted
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	pos, err := s.checkpoints.Load(s.ctx, "broken")
	s.Require().NoError(err)
	s.Equal(int64(1), pos, "halted subscriber keeps its last good position")

	s.appendEvents("b", 1)
	s.Eventually(func() bool { return len(healthy.positions()) == 4 }, time.Second, 5*time.Millisecond)

	cancel()
	s.NoError(<-done)
}

func (s *DispatchSuite) TestRejectsDuplicateNames() {
	err := s.runner.Run(s.ctx, newRecorder("x"), newRecorder("x"))
	s.Error(err)
}

func (s *DispatchSuite) TestCatchUpReturnsHaltError() {
	s.appendEvents("a", 1)
	h := newRecorder("doomed")
	h.fail = func(eventstore.Event, int) error { return errors.New("nope") }

	err := s.runner.CatchUp(s.ctx, h)

	s.Error(err)
	s.Equal(3, h.attempts[1])
}
