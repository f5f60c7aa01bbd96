package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []Frame
	fail   bool
	closed bool
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broken pipe")
	}
	var fr Frame
	if err := json.Unmarshal(data, &fr); err != nil {
		return err
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) received() []Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Frame(nil), f.frames...)
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(zaptest.NewLogger(t), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

func TestLateDisplayGetsLastState(t *testing.T) {
	h := startHub(t)
	admin := &fakeConn{}
	h.Join(admin, RoleAdmin)

	assert.Nil(t, h.LastState())

	h.Publish(json.RawMessage(`{"total":"12.50"}`))
	h.Publish(json.RawMessage(`{"total":"19.25"}`))

	display := &fakeConn{}
	h.Join(display, RoleDisplay)

	require.Eventually(t, func() bool { return len(display.received()) == 1 }, time.Second, 5*time.Millisecond)
	got := display.received()[0]
	assert.Equal(t, EventUpdateDisplay, got.Event)
	assert.JSONEq(t, `{"total":"19.25"}`, string(got.Data))
	assert.JSONEq(t, `{"total":"19.25"}`, string(h.LastState()))

	// the publisher itself is not a display
	assert.Empty(t, admin.received())
}

func TestDisplayWithoutStateGetsNothingUntilPublish(t *testing.T) {
	h := startHub(t)
	display := &fakeConn{}
	h.Join(display, RoleDisplay)
	require.Eventually(t, func() bool { return h.Count(RoleDisplay) == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, display.received())

	h.Publish(json.RawMessage(`{"items":[]}`))
	require.Eventually(t, func() bool { return len(display.received()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestFailedWriteDropsClient(t *testing.T) {
	h := startHub(t)
	bad := &fakeConn{fail: true}
	good := &fakeConn{}
	h.Join(bad, RoleDisplay)
	h.Join(good, RoleDisplay)

	h.Publish(json.RawMessage(`1`))

	require.Eventually(t, func() bool { return h.Count(RoleDisplay) == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, bad.isClosed, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(good.received()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestNotifyAdminsOnly(t *testing.T) {
	h := startHub(t)
	admin := &fakeConn{}
	display := &fakeConn{}
	h.Join(admin, RoleAdmin)
	h.Join(display, RoleDisplay)

	require.NoError(t, h.NotifyAdmins(EventSaleRecorded, map[string]string{"id": "20250101120000.000001"}))

	require.Eventually(t, func() bool { return len(admin.received()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, EventSaleRecorded, admin.received()[0].Event)
	assert.Empty(t, display.received())
}

func TestRejoinSwitchesRoleAndLeaveCloses(t *testing.T) {
	h := startHub(t)
	c := &fakeConn{}
	h.Join(c, RoleDisplay)
	h.Join(c, RoleAdmin)
	require.Eventually(t, func() bool { return h.Count(RoleAdmin) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, h.Count(RoleDisplay))

	h.Leave(c)
	require.Eventually(t, c.isClosed, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, h.Count(RoleAdmin))
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("display")
	assert.True(t, ok)
	assert.Equal(t, RoleDisplay, r)

	_, ok = ParseRole("root")
	assert.False(t, ok)
}

func TestStoppedHubDoesNotBlock(t *testing.T) {
	h := NewHub(zaptest.NewLogger(t), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.Run(ctx)

	c := &fakeConn{}
	h.Join(c, RoleDisplay)
	h.Publish(json.RawMessage(`{"total":"1.00"}`))
	assert.ErrorIs(t, h.NotifyAdmins(EventSaleRecorded, map[string]string{"id": "x"}), ErrHubStopped)

	h.Leave(c)
	assert.True(t, c.isClosed())
	assert.Empty(t, c.received())
}

// stalledConn blocks every write until it is closed, like a peer that
// stopped reading.
type stalledConn struct {
	once   sync.Once
	closed chan struct{}
}

func newStalledConn() *stalledConn {
	return &stalledConn{closed: make(chan struct{})}
}

func (s *stalledConn) WriteMessage(int, []byte) error {
	<-s.closed
	return errors.New("use of closed connection")
}

func (s *stalledConn) SetWriteDeadline(time.Time) error { return nil }

func (s *stalledConn) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func (s *stalledConn) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// finishes fails the test if fn does not return within a second.
func finishes(t *testing.T, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("call blocked")
	}
}

func TestStalledDisplayDoesNotBlockPublishers(t *testing.T) {
	h := startHub(t)
	stalled := newStalledConn()
	admin := &fakeConn{}
	h.Join(stalled, RoleDisplay)
	h.Join(admin, RoleAdmin)

	// one frame in the writer plus a full queue is the most it can hold
	finishes(t, func() {
		for i := 0; i < sendBuffer+2; i++ {
			h.Publish(json.RawMessage(fmt.Sprintf(`{"n":%d}`, i)))
		}
	})
	require.Eventually(t, stalled.isClosed, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return h.Count(RoleDisplay) == 0 }, time.Second, 5*time.Millisecond)
	want := fmt.Sprintf(`{"n":%d}`, sendBuffer+1)
	require.Eventually(t, func() bool { return string(h.LastState()) == want }, time.Second, 5*time.Millisecond)

	finishes(t, func() {
		assert.NoError(t, h.NotifyAdmins(EventSaleRecorded, map[string]string{"id": "x"}))
	})
	require.Eventually(t, func() bool { return len(admin.received()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestNotifyAdminsNeverWaits(t *testing.T) {
	// Run is not started, so nothing drains the queue.
	h := NewHub(zaptest.NewLogger(t), nil)
	finishes(t, func() {
		var busy int
		for i := 0; i < 32; i++ {
			if errors.Is(h.NotifyAdmins(EventSaleRecorded, i), ErrHubBusy) {
				busy++
			}
		}
		assert.Equal(t, 16, busy)
	})
}

func TestReplyReachesAttachedConnOnly(t *testing.T) {
	h := startHub(t)
	c := &fakeConn{}
	h.Attach(c)
	frame, err := NewFrame(EventError, map[string]string{"message": "nope"})
	require.NoError(t, err)

	h.Reply(c, frame)
	require.Eventually(t, func() bool { return len(c.received()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, EventError, c.received()[0].Event)
	assert.Equal(t, 0, h.Count(RoleDisplay))
	assert.Equal(t, 0, h.Count(RoleAdmin))

	stranger := &fakeConn{}
	h.Reply(stranger, frame)
	h.Leave(c)
	require.Eventually(t, c.isClosed, time.Second, 5*time.Millisecond)
	assert.Empty(t, stranger.received())
}
