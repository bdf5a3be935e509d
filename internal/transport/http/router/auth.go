package router

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"clinic-manager/internal/domain"
	"clinic-manager/internal/identity"
	httpez "clinic-manager/internal/transport/http/ez"
	mdw "clinic-manager/internal/transport/http/middleware"
)

// ---------- 身份接口：/auth/v1/token、/auth/v1/logout、/auth/v1/user ----------

func (e *engine) mountAuthActions(g *gin.RouterGroup) {
	cookie := e.d.Config.JWT.CookieName

	// 登出、who-am-I 都需要解析会话；登出允许无会话
	optional := g.Group("", mdw.Session(e.d.Identity, cookie, false, e.d.Log))
	required := g.Group("", mdw.Session(e.d.Identity, cookie, true, e.d.Log))

	type tokenIn struct {
		Email    string `json:"email"    binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	httpez.RegisterAction[tokenIn, *identity.Token](httpez.New(g), httpez.Action[tokenIn, *identity.Token]{
		Method: http.MethodPost,
		Path:   "/token",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *tokenIn) (*identity.Token, error) {
			tok, err := e.d.Identity.SignInWithPassword(c.Request.Context(), strings.TrimSpace(in.Email), in.Password)
			if errors.Is(err, identity.ErrInvalidCredentials) {
				return nil, httpez.Unauthorized(err.Error())
			}
			if err != nil {
				return nil, httpez.Internal("sign in failed", err)
			}
			e.setSessionCookie(c, tok.AccessToken, int(e.d.JWT.TTL.Seconds()))
			return tok, nil
		},
	})

	httpez.RegisterAction[struct{}, struct{}](httpez.New(optional), httpez.Action[struct{}, struct{}]{
		Method: http.MethodPost,
		Path:   "/logout",
		Binder: httpez.BindNone,
		Status: http.StatusNoContent,
		Handler: func(c *gin.Context, _ *struct{}) (struct{}, error) {
			if err := e.d.Identity.SignOut(c.Request.Context(), mdw.ClaimsFrom(c)); err != nil {
				return struct{}{}, httpez.Internal("sign out failed", err)
			}
			e.setSessionCookie(c, "", -1)
			return struct{}{}, nil
		},
	})

	httpez.RegisterAction[struct{}, *domain.Me](httpez.New(required), httpez.Action[struct{}, *domain.Me]{
		Method: http.MethodGet,
		Path:   "/user",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.Me, error) {
			me, err := e.d.Identity.WhoAmI(c.Request.Context(), mdw.ClaimsFrom(c))
			if errors.Is(err, identity.ErrProfileNotFound) {
				return nil, httpez.NotFound(err.Error())
			}
			if err != nil {
				return nil, httpez.Internal("load profile failed", err)
			}
			return me, nil
		},
	})
}

func (e *engine) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(e.d.Config.JWT.CookieName, value, maxAge, "/", "", e.d.Config.JWT.CookieSecure, true)
}
