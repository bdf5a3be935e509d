package router

import (
	"sort"

	"github.com/gin-gonic/gin"
)

// APIModule 挂在 /api 分组（已过 apikey + 会话校验）
type APIModule interface{ MountAPI(*gin.RouterGroup) }

// 可选：实现该接口可控制挂载顺序（数值越小越先挂）
// 不实现则默认 100
type prioritizer interface{ Priority() int }

// Registry 模块列表，由组装方显式构造
type Registry struct {
	apiMods []APIModule
}

func (r *Registry) Register(mods ...APIModule) {
	r.apiMods = append(r.apiMods, mods...)
}

func (r *Registry) Len() int { return len(r.apiMods) }

// MountAllAPI 按优先级挂载
func (r *Registry) MountAllAPI(api *gin.RouterGroup) {
	mods := append([]APIModule(nil), r.apiMods...)
	sort.SliceStable(mods, func(i, j int) bool {
		return priorityOf(mods[i]) < priorityOf(mods[j])
	})
	for _, m := range mods {
		m.MountAPI(api)
	}
}

func priorityOf(v any) int {
	if p, ok := v.(prioritizer); ok {
		return p.Priority()
	}
	return 100
}
