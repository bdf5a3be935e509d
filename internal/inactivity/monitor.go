// Package inactivity 空闲超时：到点前提示一次，到点强制登出并跳转登录页。
package inactivity

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultTimeout    = 30 * time.Minute
	DefaultWarnBefore = time.Minute
	DefaultLoginPath  = "/login"
)

// Activity 用户交互类型，任何一种都会重置计时
type Activity int

const (
	PointerDown Activity = iota + 1
	PointerMove
	KeyPress
	Scroll
	TouchStart
	Click
)

func (a Activity) String() string {
	switch a {
	case PointerDown:
		return "pointerdown"
	case PointerMove:
		return "pointermove"
	case KeyPress:
		return "keypress"
	case Scroll:
		return "scroll"
	case TouchStart:
		return "touchstart"
	case Click:
		return "click"
	}
	return "unknown"
}

type Timer interface{ Stop() bool }

// Clock 测试里替换成可手动推进的时钟
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Source 活动来源（窗口、终端输入等）；返回的函数用于解绑
type Source interface {
	Subscribe(fn func(Activity)) (unsubscribe func())
}

// Navigator 到期后跳转
type Navigator interface{ Navigate(path string) }

type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

type Config struct {
	Timeout    time.Duration
	WarnBefore time.Duration
	LoginPath  string
	Clock      Clock

	OnWarn   func(remaining time.Duration)
	OnExpire func() // 强制登出
	Navigate Navigator
	Logger   *zap.Logger
}

type Monitor struct {
	cfg Config
	log *zap.Logger

	mu      sync.Mutex
	gen     uint64 // 每次重置递增，旧定时器回调据此作废
	warn    Timer
	expire  Timer
	expired bool
	closed  bool
	detach  []func()
}

// New 创建后立即开始计时
func New(cfg Config) *Monitor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.WarnBefore <= 0 {
		cfg.WarnBefore = DefaultWarnBefore
	}
	if cfg.WarnBefore >= cfg.Timeout {
		cfg.WarnBefore = cfg.Timeout / 2
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = DefaultLoginPath
	}
	if cfg.Clock == nil {
		cfg.Clock = realClock{}
	}
	l := cfg.Logger
	if l == nil {
		l = zap.NewNop()
	}
	m := &Monitor{cfg: cfg, log: l.Named("inactivity")}
	m.mu.Lock()
	m.armLocked()
	m.mu.Unlock()
	return m
}

func (m *Monitor) stopLocked() {
	if m.warn != nil {
		m.warn.Stop()
		m.warn = nil
	}
	if m.expire != nil {
		m.expire.Stop()
		m.expire = nil
	}
}

func (m *Monitor) armLocked() {
	m.stopLocked()
	m.gen++
	gen := m.gen
	m.warn = m.cfg.Clock.AfterFunc(m.cfg.Timeout-m.cfg.WarnBefore, func() { m.fireWarn(gen) })
	m.expire = m.cfg.Clock.AfterFunc(m.cfg.Timeout, func() { m.fireExpire(gen) })
}

// Notify 任意活动重置两个定时器；已到期或已关闭时忽略
func (m *Monitor) Notify(a Activity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.expired {
		return
	}
	m.armLocked()
}

func (m *Monitor) fireWarn(gen uint64) {
	m.mu.Lock()
	if m.closed || m.expired || gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.warn = nil
	m.mu.Unlock()

	m.log.Info("session about to expire", zap.Duration("remaining", m.cfg.WarnBefore))
	if m.cfg.OnWarn != nil {
		m.cfg.OnWarn(m.cfg.WarnBefore)
	}
}

func (m *Monitor) fireExpire(gen uint64) {
	m.mu.Lock()
	if m.closed || m.expired || gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.expired = true
	m.stopLocked()
	m.mu.Unlock()

	m.log.Info("session expired after inactivity", zap.Duration("timeout", m.cfg.Timeout))
	if m.cfg.OnExpire != nil {
		m.cfg.OnExpire()
	}
	if m.cfg.Navigate != nil {
		m.cfg.Navigate.Navigate(m.cfg.LoginPath)
	}
}

// Attach 订阅活动来源；Close 时统一解绑
func (m *Monitor) Attach(src Source) {
	unsub := src.Subscribe(m.Notify)
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		unsub()
		return
	}
	m.detach = append(m.detach, unsub)
	m.mu.Unlock()
}

// Expired 是否已触发过到期
func (m *Monitor) Expired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expired
}

// Close 解绑所有来源并停掉定时器；可重复调用
func (m *Monitor) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.stopLocked()
	detach := m.detach
	m.detach = nil
	m.mu.Unlock()

	for _, fn := range detach {
		fn()
	}
}
