package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	mdw "clinic-manager/internal/transport/http/middleware"
)

// 页面占位：只为守卫提供落点，界面不在服务端渲染
func (e *engine) mountPages(r *gin.Engine) {
	rules := e.rules()
	pages := r.Group("", mdw.PageGuard(e.d.Identity, e.d.Config.JWT.CookieName, rules))

	placeholder := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"page": c.Request.URL.Path})
	}
	login := rules.Login
	if login == "" {
		login = "/login"
	}
	pages.GET(login, placeholder)
	for _, p := range rules.Protected {
		pages.GET(p, placeholder)
		pages.GET(p+"/*rest", placeholder)
	}
}
