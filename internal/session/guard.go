package session

import "strings"

const (
	DefaultLoginPath = "/login"
	DefaultHomePath  = "/dashboard"
)

// DefaultProtected 需要登录才能访问的页面前缀
var DefaultProtected = []string{"/dashboard", "/patients", "/exams", "/users", "/roles"}

// Rules 页面守卫规则；客户端 Guard 与服务端 PageGuard 共用
type Rules struct {
	Protected []string
	Login     string
	Home      string
}

func DefaultRules() Rules {
	return Rules{Protected: DefaultProtected, Login: DefaultLoginPath, Home: DefaultHomePath}
}

func (r Rules) withDefaults() Rules {
	if r.Login == "" {
		r.Login = DefaultLoginPath
	}
	if r.Home == "" {
		r.Home = DefaultHomePath
	}
	return r
}

// IsProtected 前缀按路径段匹配：/users 命中 /users/1，不命中 /usersx
func (r Rules) IsProtected(path string) bool {
	for _, p := range r.Protected {
		p = strings.TrimRight(p, "/")
		if p == "" {
			continue
		}
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// Redirect 返回需要跳转的目标；ok=false 表示放行
func (r Rules) Redirect(path string, authenticated bool) (target string, ok bool) {
	r = r.withDefaults()
	switch {
	case !authenticated && r.IsProtected(path):
		return r.Login, true
	case authenticated && strings.TrimRight(path, "/") == r.Login:
		return r.Home, true
	}
	return "", false
}

// Guard 客户端路由守卫，按 Manager 当前状态判断
type Guard struct {
	m     *Manager
	rules Rules
}

func NewGuard(m *Manager, rules Rules) *Guard { return &Guard{m: m, rules: rules} }

// Check 加载中沿用上一次的身份：有用户视为已登录，没有则视为未登录
func (g *Guard) Check(path string) (redirect string, ok bool) {
	st := g.m.State()
	authed := st.Status == StatusAuthenticated || (st.Status == StatusLoading && st.User != nil)
	return g.rules.Redirect(path, authed)
}
