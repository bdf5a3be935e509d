package inactivity

import "clinic-manager/internal/core/observer"

// Feed 手动投递活动的来源，例如终端每读到一行就 Emit(KeyPress)
type Feed struct {
	obs observer.List[Activity]
}

func (f *Feed) Subscribe(fn func(Activity)) func() { return f.obs.Subscribe(fn) }

func (f *Feed) Emit(a Activity) { f.obs.Notify(a) }

// Listeners 当前订阅数
func (f *Feed) Listeners() int { return f.obs.Len() }
