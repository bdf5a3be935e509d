package inactivity

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// fakeClock 手动推进；到期回调在时钟锁外执行
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	c       *fakeClock
	at      time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{c: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	rest := c.timers[:0]
	for _, t := range c.timers {
		switch {
		case t.stopped:
		case t.at <= c.now:
			t.stopped = true
			due = append(due, t)
		default:
			rest = append(rest, t)
		}
	}
	c.timers = rest
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.f()
	}
}

type recorder struct {
	mu       sync.Mutex
	warns    []time.Duration
	expires  int
	navigate []string
}

func (r *recorder) config(c Clock) Config {
	return Config{
		Clock:    c,
		OnWarn:   func(d time.Duration) { r.mu.Lock(); r.warns = append(r.warns, d); r.mu.Unlock() },
		OnExpire: func() { r.mu.Lock(); r.expires++; r.mu.Unlock() },
		Navigate: NavigatorFunc(func(p string) { r.mu.Lock(); r.navigate = append(r.navigate, p); r.mu.Unlock() }),
	}
}

func TestWarnOnceThenExpireOnce(t *testing.T) {
	clk := &fakeClock{}
	rec := &recorder{}
	m := New(rec.config(clk))
	defer m.Close()

	clk.Advance(29 * time.Minute)
	assert.Equal(t, []time.Duration{time.Minute}, rec.warns)
	assert.Zero(t, rec.expires)

	clk.Advance(time.Minute)
	assert.Equal(t, 1, rec.expires)
	assert.Equal(t, []string{"/login"}, rec.navigate)
	assert.True(t, m.Expired())

	clk.Advance(time.Hour)
	m.Notify(Click)
	clk.Advance(time.Hour)
	assert.Len(t, rec.warns, 1)
	assert.Equal(t, 1, rec.expires)
}

func TestActivityResetsTimers(t *testing.T) {
	clk := &fakeClock{}
	rec := &recorder{}
	m := New(rec.config(clk))
	defer m.Close()

	clk.Advance(28 * time.Minute)
	m.Notify(PointerMove)
	clk.Advance(28 * time.Minute)
	assert.Empty(t, rec.warns)

	clk.Advance(time.Minute) // 29 分钟无操作
	assert.Len(t, rec.warns, 1)

	// 提示之后又有操作：重新武装，提示可以再来一次
	m.Notify(KeyPress)
	clk.Advance(29 * time.Minute)
	assert.Len(t, rec.warns, 2)
	assert.Zero(t, rec.expires)

	clk.Advance(time.Minute)
	assert.Equal(t, 1, rec.expires)
}

func TestAttachAndClose(t *testing.T) {
	clk := &fakeClock{}
	rec := &recorder{}
	m := New(rec.config(clk))
	feed := &Feed{}
	m.Attach(feed)
	assert.Equal(t, 1, feed.Listeners())

	clk.Advance(29*time.Minute + 30*time.Second)
	feed.Emit(Scroll)
	clk.Advance(28 * time.Minute)
	assert.Len(t, rec.warns, 1, "activity from the source re-armed the monitor")
	assert.Zero(t, rec.expires)

	m.Close()
	m.Close()
	assert.Zero(t, feed.Listeners())
	clk.Advance(2 * time.Hour)
	assert.Zero(t, rec.expires, "closed monitor never expires")

	m.Attach(feed)
	assert.Zero(t, feed.Listeners(), "attach after close is a no-op")
}

func TestConfigDefaults(t *testing.T) {
	m := New(Config{Clock: &fakeClock{}})
	defer m.Close()
	assert.Equal(t, DefaultTimeout, m.cfg.Timeout)
	assert.Equal(t, DefaultWarnBefore, m.cfg.WarnBefore)
	assert.Equal(t, DefaultLoginPath, m.cfg.LoginPath)

	m2 := New(Config{Clock: &fakeClock{}, Timeout: time.Minute, WarnBefore: 2 * time.Minute})
	defer m2.Close()
	assert.Equal(t, 30*time.Second, m2.cfg.WarnBefore)
}

func TestActivityString(t *testing.T) {
	assert.Equal(t, "pointerdown", PointerDown.String())
	assert.Equal(t, "touchstart", TouchStart.String())
	assert.Equal(t, "unknown", Activity(0).String())
}

func TestRealClockExpiresWithoutLeaks(t *testing.T) {
	defer goleak.VerifyNone(t)

	expired := make(chan struct{})
	warned := make(chan time.Duration, 1)
	m := New(Config{
		Timeout:    60 * time.Millisecond,
		WarnBefore: 30 * time.Millisecond,
		OnWarn:     func(d time.Duration) { warned <- d },
		OnExpire:   func() { close(expired) },
	})
	defer m.Close()

	select {
	case d := <-warned:
		assert.Equal(t, 30*time.Millisecond, d)
	case <-time.After(2 * time.Second):
		require.FailNow(t, "warning did not fire")
	}
	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		require.FailNow(t, "monitor did not expire")
	}
}
