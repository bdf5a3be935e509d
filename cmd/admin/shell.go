package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"clinic-manager/internal/client"
	"clinic-manager/internal/domain"
	"clinic-manager/internal/inactivity"
	"clinic-manager/internal/resource"
	"clinic-manager/internal/session"
	"clinic-manager/internal/store"
)

const shellCallTimeout = 15 * time.Second

func shellCmd(c *cli) *cobra.Command {
	var (
		baseURL string
		apiKey  string
		idle    time.Duration
		warn    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive session against a running API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			l := c.log
			if l == nil {
				l = zap.NewNop()
			}
			cl, err := client.New(baseURL, apiKey, client.WithLogger(l))
			if err != nil {
				return err
			}
			sh := newShell(cl, session.DefaultRules(), inactivity.Config{Timeout: idle, WarnBefore: warn}, cmd.OutOrStdout(), l)
			defer sh.Close()
			return sh.Run(cmd.Context(), cmd.InOrStdin())
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", envOr("CLINIC_API_URL", "http://127.0.0.1:8080"), "API base URL")
	cmd.Flags().StringVar(&apiKey, "api-key", os.Getenv("APP_STORE_API_KEY"), "public api key")
	cmd.Flags().DurationVar(&idle, "idle", inactivity.DefaultTimeout, "sign out after this much inactivity")
	cmd.Flags().DurationVar(&warn, "warn", inactivity.DefaultWarnBefore, "warn this long before sign out")
	return cmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// shell 终端版的受保护页面：会话 + 路由守卫 + 资源 + 空闲登出
type shell struct {
	log   *zap.Logger
	mgr   *session.Manager
	guard *session.Guard
	rules session.Rules
	res   *resource.Set
	feed  *inactivity.Feed
	idle  inactivity.Config

	outMu sync.Mutex
	out   io.Writer

	mu    sync.Mutex
	path  string
	mon   *inactivity.Monitor
	unsub func()
}

func newShell(cl *client.Client, rules session.Rules, idle inactivity.Config, out io.Writer, l *zap.Logger) *shell {
	mgr := session.NewManager(cl, l)
	s := &shell{
		log:   l,
		mgr:   mgr,
		guard: session.NewGuard(mgr, rules),
		rules: rules,
		res:   resource.NewSet(client.Backends(cl), l),
		feed:  &inactivity.Feed{},
		idle:  idle,
		out:   out,
		path:  "/",
	}
	s.unsub = mgr.Subscribe(s.onSession)
	return s
}

func (s *shell) printf(format string, args ...any) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

// onSession 登录后开始空闲计时，登出后停表
func (s *shell) onSession(st session.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case st.Status == session.StatusAuthenticated && s.mon == nil:
		cfg := s.idle
		cfg.LoginPath = s.rules.Login
		cfg.Logger = s.log
		cfg.OnWarn = func(left time.Duration) { s.printf("! session ends in %s without activity\n", left) }
		cfg.OnExpire = s.expire
		cfg.Navigate = inactivity.NavigatorFunc(s.navigate)
		s.mon = inactivity.New(cfg)
		s.mon.Attach(s.feed)
	case st.Status == session.StatusUnauthenticated && s.mon != nil:
		s.mon.Close()
		s.mon = nil
	}
}

func (s *shell) expire() {
	ctx, cancel := context.WithTimeout(context.Background(), shellCallTimeout)
	defer cancel()
	s.printf("! signed out after inactivity\n")
	_ = s.mgr.Logout(ctx)
}

func (s *shell) navigate(path string) {
	s.mu.Lock()
	s.path = path
	s.mu.Unlock()
	s.printf("-> %s\n", path)
}

func (s *shell) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

func (s *shell) Close() {
	s.unsub()
	s.mu.Lock()
	if s.mon != nil {
		s.mon.Close()
		s.mon = nil
	}
	s.mu.Unlock()
	s.res.Close()
	s.mgr.Close()
}

// Run 每读到一行都算一次按键活动
func (s *shell) Run(ctx context.Context, in io.Reader) error {
	st := s.mgr.Start(ctx)
	s.printf("session: %s\n", st.Status)
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		s.feed.Emit(inactivity.KeyPress)
		if quit := s.exec(ctx, strings.Fields(sc.Text())); quit {
			return nil
		}
	}
	return sc.Err()
}

func (s *shell) exec(ctx context.Context, f []string) (quit bool) {
	if len(f) == 0 {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, shellCallTimeout)
	defer cancel()

	switch f[0] {
	case "quit", "exit":
		return true
	case "help":
		s.printf("commands: login <email> <password> | logout | whoami | go <path> | list <resource> | quit\n")
	case "login":
		if len(f) != 3 {
			s.printf("usage: login <email> <password>\n")
			return false
		}
		if err := s.mgr.Login(ctx, f[1], f[2]); err != nil {
			s.printf("login failed: %v\n", err)
			return false
		}
		s.whoami()
		if target, redirect := s.guard.Check(s.rules.Login); redirect {
			s.navigate(target)
		}
	case "logout":
		if err := s.mgr.Logout(ctx); err != nil {
			s.printf("logout: %v\n", err)
		}
		s.navigate(s.rules.Login)
	case "whoami":
		s.whoami()
	case "go":
		if len(f) != 2 {
			s.printf("usage: go <path>\n")
			return false
		}
		if target, redirect := s.guard.Check(f[1]); redirect {
			s.navigate(target)
			return false
		}
		s.navigate(f[1])
	case "list":
		if len(f) != 2 {
			s.printf("usage: list <resource>\n")
			return false
		}
		s.list(ctx, tableArg(f[1]))
	default:
		s.printf("unknown command %q, try help\n", f[0])
	}
	return false
}

func (s *shell) whoami() {
	st := s.mgr.State()
	if st.User == nil {
		s.printf("not signed in\n")
		return
	}
	s.printf("%s <%s> roles=%s\n", st.User.DisplayName, st.User.Email, strings.Join(st.Roles, ","))
}

func (s *shell) list(ctx context.Context, table string) {
	if !s.mgr.IsAuthenticated() {
		s.printf("sign in first\n")
		return
	}
	switch table {
	case domain.TablePatients:
		printState(ctx, s, s.res.Patients)
	case domain.TableExams:
		printState(ctx, s, s.res.Exams)
	case domain.TableUsers:
		printState(ctx, s, s.res.Users)
	case domain.TableRoles:
		printState(ctx, s, s.res.Roles)
	case domain.TableUserRoles:
		printState(ctx, s, s.res.UserRoles)
	default:
		s.printf("%v: %q\n", store.ErrUnknownTable, table)
	}
}

func printState[T any](ctx context.Context, s *shell, r *resource.Resource[T]) {
	r.FetchData(ctx)
	st := r.State()
	if st.Err != "" {
		s.printf("error: %s\n", st.Err)
		r.ClearError()
		return
	}
	b, err := json.MarshalIndent(st.Data, "", "  ")
	if err != nil {
		s.printf("error: %v\n", err)
		return
	}
	s.printf("%s\n", b)
}
