// Package client 远程记录存储与身份接口的 HTTP 客户端。
//
// 会话 token 由服务端以 HttpOnly cookie 下发，这里用 cookiejar 保存；
// 每个请求都带上客户端公钥（apikey 头）。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"clinic-manager/internal/core/observer"
	"clinic-manager/internal/domain"
	"clinic-manager/internal/session"
	"clinic-manager/internal/store"
)

const headerAPIKey = "apikey"

// APIError 非 2xx 响应；按状态码映射到哨兵错误
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return http.StatusText(e.Status)
	}
	return e.Message
}

func (e *APIError) Is(target error) bool {
	switch target {
	case store.ErrNotFound:
		return e.Status == http.StatusNotFound
	case session.ErrUnauthenticated:
		return e.Status == http.StatusUnauthorized
	}
	return false
}

type Client struct {
	base   *url.URL
	apiKey string
	http   *http.Client
	log    *zap.Logger
	events observer.List[session.Event]
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = l } }

// New baseURL 与 apiKey 都必填
func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("client: base url is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("client: api key is required")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: parse base url: %w", err)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	c := &Client{
		base:   u,
		apiKey: apiKey,
		http:   &http.Client{Timeout: 15 * time.Second},
		log:    zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.http.Jar == nil {
		c.http.Jar = jar
	}
	return c, nil
}

func (c *Client) url(path string, q url.Values) string {
	u := *c.base
	u.Path = c.base.Path + path
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// do 发请求并把 2xx 响应解码进 out（out 可为 nil）
func (c *Client) do(ctx context.Context, method, path string, q url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: encode body: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(path, q), body)
	if err != nil {
		return err
	}
	req.Header.Set(headerAPIKey, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		var eb struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(res.Body).Decode(&eb)
		c.log.Debug("request failed", zap.String("method", method), zap.String("path", path), zap.Int("status", res.StatusCode))
		return &APIError{Status: res.StatusCode, Message: eb.Error}
	}
	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode %s: %w", path, err)
	}
	return nil
}

// ---------- 身份 ----------

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) error {
	var tok struct {
		AccessToken string `json:"access_token"`
	}
	in := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token", nil, in, &tok); err != nil {
		return err
	}
	c.events.Notify(session.EventSignedIn)
	return nil
}

func (c *Client) SignOut(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/auth/v1/logout", nil, nil, nil); err != nil {
		return err
	}
	c.events.Notify(session.EventSignedOut)
	return nil
}

func (c *Client) OnSessionChange(fn func(session.Event)) (unsubscribe func()) {
	return c.events.Subscribe(fn)
}

// WhoAmI 401 → session.ErrUnauthenticated，档案缺失 → session.ErrProfileNotFound
func (c *Client) WhoAmI(ctx context.Context) (*domain.Me, error) {
	var me domain.Me
	err := c.do(ctx, http.MethodGet, "/auth/v1/user", nil, nil, &me)
	var ae *APIError
	if errors.As(err, &ae) && ae.Status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", session.ErrProfileNotFound, ae.Message)
	}
	if err != nil {
		return nil, err
	}
	return &me, nil
}
