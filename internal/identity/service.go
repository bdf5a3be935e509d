// Package identity 身份提供方：密码登录签发 JWT、登出吊销、who-am-I。
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"clinic-manager/internal/core/auth"
	"clinic-manager/internal/domain"
	"clinic-manager/internal/feature/account"
	"clinic-manager/internal/repo"
	"clinic-manager/pkg/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrInvalidToken       = errors.New("invalid or expired session")
	ErrProfileNotFound    = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
)

type Service struct {
	db      *gorm.DB
	jwt     *auth.JWTer
	revoker Revoker
	users   *repo.UserRepo
	log     *zap.Logger
}

func NewService(db *gorm.DB, j *auth.JWTer, r Revoker, users *repo.UserRepo, l *zap.Logger) *Service {
	if r == nil {
		r = NewMemoryRevoker()
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &Service{db: db, jwt: j, revoker: r, users: users, log: l.Named("identity")}
}

// Token 登录结果
type Token struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   int64        `json:"expires_at"`
	Claims      *auth.Claims `json:"-"`
}

func normEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (*Token, error) {
	var acc account.Model
	err := s.db.WithContext(ctx).Where("email = ?", normEmail(email)).Take(&acc).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrInvalidCredentials
	case err != nil:
		return nil, fmt.Errorf("identity: load account: %w", err)
	}
	if !utils.CheckPassword(password, acc.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	tok, claims, err := s.jwt.Issue(acc.ID, acc.Email)
	if err != nil {
		return nil, fmt.Errorf("identity: issue token: %w", err)
	}
	s.log.Info("signed in", zap.String("uid", acc.ID))
	return &Token{
		AccessToken: tok,
		TokenType:   "bearer",
		ExpiresAt:   claims.ExpiresAt.Unix(),
		Claims:      claims,
	}, nil
}

// Authenticate 验签 + 吊销检查
func (s *Service) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims, err := s.jwt.Parse(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("identity: revocation check: %w", err)
	}
	if revoked {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// SignOut 吊销到 token 原本的过期时间
func (s *Service) SignOut(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	if err := s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("identity: revoke: %w", err)
	}
	s.log.Info("signed out", zap.String("uid", claims.UID))
	return nil
}

// WhoAmI 会话对应的 users 档案 + 角色名
func (s *Service) WhoAmI(ctx context.Context, claims *auth.Claims) (*domain.Me, error) {
	u, err := s.users.FindByAuthID(ctx, claims.UID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrProfileNotFound
	}
	roles, err := s.users.RoleNames(ctx, u)
	if err != nil {
		return nil, err
	}
	me := domain.NewMe(u, claims.UID, roles)
	return &me, nil
}

// CreateAccount 管理端建号
func (s *Service) CreateAccount(ctx context.Context, email, password string) (*account.Model, error) {
	email = normEmail(email)
	if email == "" || password == "" {
		return nil, errors.New("identity: email and password are required")
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("identity: hash password: %w", err)
	}
	acc := &account.Model{ID: utils.NewID(), Email: email, PasswordHash: hash}
	if err := s.db.WithContext(ctx).Create(acc).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isDupKey(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("identity: create account: %w", err)
	}
	return acc, nil
}

// isDupKey 驱动未开启 TranslateError 时兜底
func isDupKey(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}
