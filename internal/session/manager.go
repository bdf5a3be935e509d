// Package session 客户端会话状态：登录、登出、身份刷新和路由守卫。
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"clinic-manager/internal/core/observer"
	"clinic-manager/internal/domain"
)

var (
	// ErrUnauthenticated 没有有效会话（who-am-I 返回 401）
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrProfileNotFound 会话有效但 users 表没有对应档案
	ErrProfileNotFound = errors.New("user not found")
)

type Event int

const (
	EventSignedIn Event = iota + 1
	EventSignedOut
)

// Provider 身份提供方（client.Client 实现）
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) error
	SignOut(ctx context.Context) error
	OnSessionChange(fn func(Event)) (unsubscribe func())
	WhoAmI(ctx context.Context) (*domain.Me, error)
}

type Status int

const (
	StatusUnauthenticated Status = iota
	StatusLoading
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusAuthenticated:
		return "authenticated"
	}
	return "unauthenticated"
}

// Identity 归一化后的当前用户
type Identity struct {
	ID          string
	AuthID      string
	Email       string
	DisplayName string
	RoleID      *string
}

type State struct {
	Status Status
	User   *Identity
	Roles  []string
	Err    string
}

const eventRefreshTimeout = 10 * time.Second

type Manager struct {
	p   Provider
	log *zap.Logger

	mu    sync.Mutex
	state State
	seq   uint64

	obs   observer.List[State]
	unsub func()
}

// NewManager 订阅提供方的会话事件，每个事件都重新拉一次身份
func NewManager(p Provider, l *zap.Logger) *Manager {
	if l == nil {
		l = zap.NewNop()
	}
	m := &Manager{p: p, log: l.Named("session"), state: State{Status: StatusLoading}}
	m.unsub = p.OnSessionChange(func(ev Event) {
		ctx, cancel := context.WithTimeout(context.Background(), eventRefreshTimeout)
		defer cancel()
		m.log.Debug("session event", zap.Int("event", int(ev)))
		m.Refresh(ctx)
	})
	return m
}

// Start 挂载时的首次身份拉取
func (m *Manager) Start(ctx context.Context) State { return m.Refresh(ctx) }

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) IsAuthenticated() bool { return m.State().Status == StatusAuthenticated }

func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) { return m.obs.Subscribe(fn) }

// Close 退订提供方事件
func (m *Manager) Close() {
	if m.unsub != nil {
		m.unsub()
	}
}

// set 直接写状态，同时作废在途的 Refresh
func (m *Manager) set(s State) {
	m.mu.Lock()
	m.seq++
	m.state = s
	m.mu.Unlock()
	m.obs.Notify(s)
}

// Refresh 重新拉取身份；并发时只采用最后一次发起的结果
func (m *Manager) Refresh(ctx context.Context) State {
	m.mu.Lock()
	m.seq++
	my := m.seq
	prev := m.state
	m.state = State{Status: StatusLoading, User: prev.User, Roles: prev.Roles}
	loading := m.state
	m.mu.Unlock()
	m.obs.Notify(loading)

	me, err := m.p.WhoAmI(ctx)
	next := resolve(me, err)
	if err != nil && next.Err != "" {
		m.log.Warn("identity fetch failed", zap.Error(err))
	}

	m.mu.Lock()
	if my != m.seq {
		m.mu.Unlock()
		return m.State()
	}
	m.state = next
	m.mu.Unlock()
	m.obs.Notify(next)
	return next
}

func resolve(me *domain.Me, err error) State {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return State{Status: StatusUnauthenticated}
	case errors.Is(err, ErrProfileNotFound):
		return State{Status: StatusUnauthenticated, Err: ErrProfileNotFound.Error()}
	case err != nil:
		return State{Status: StatusUnauthenticated, Err: err.Error()}
	case me == nil:
		return State{Status: StatusUnauthenticated, Err: ErrProfileNotFound.Error()}
	}
	roles := me.Roles
	if roles == nil {
		roles = []string{}
	}
	return State{
		Status: StatusAuthenticated,
		User: &Identity{
			ID:          me.ID,
			AuthID:      me.AuthID,
			Email:       me.Email,
			DisplayName: me.DisplayName(),
			RoleID:      me.RoleID,
		},
		Roles: roles,
	}
}

// Login 成功后重新拉身份；失败时保持未登录并带上提供方的错误信息
func (m *Manager) Login(ctx context.Context, email, password string) error {
	if err := m.p.SignInWithPassword(ctx, email, password); err != nil {
		m.set(State{Status: StatusUnauthenticated, Err: err.Error()})
		return err
	}
	st := m.Refresh(ctx)
	if st.Err != "" {
		return errors.New(st.Err)
	}
	return nil
}

// Logout 登出后重新拉身份（预期为未登录）
func (m *Manager) Logout(ctx context.Context) error {
	err := m.p.SignOut(ctx)
	if err != nil {
		m.log.Warn("sign out failed", zap.Error(err))
	}
	m.Refresh(ctx)
	return err
}
