package resource

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-manager/internal/domain"
	"clinic-manager/internal/store"
	"clinic-manager/internal/store/storetest"
)

// fakeBackend 函数字段式 mock，未设置的方法返回零值
type fakeBackend struct {
	ListFunc   func(ctx context.Context, opts store.ListOptions) ([]domain.Patient, error)
	GetFunc    func(ctx context.Context, id string) (*domain.Patient, error)
	CreateFunc func(ctx context.Context, rec *domain.Patient) (*domain.Patient, error)
	UpdateFunc func(ctx context.Context, id string, patch map[string]any) (*domain.Patient, error)
	RemoveFunc func(ctx context.Context, id string) error

	listCalls int32
}

func (f *fakeBackend) List(ctx context.Context, opts store.ListOptions) ([]domain.Patient, error) {
	atomic.AddInt32(&f.listCalls, 1)
	if f.ListFunc != nil {
		return f.ListFunc(ctx, opts)
	}
	return []domain.Patient{}, nil
}

func (f *fakeBackend) Get(ctx context.Context, id string) (*domain.Patient, error) {
	if f.GetFunc != nil {
		return f.GetFunc(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (f *fakeBackend) Create(ctx context.Context, rec *domain.Patient) (*domain.Patient, error) {
	if f.CreateFunc != nil {
		return f.CreateFunc(ctx, rec)
	}
	return rec, nil
}

func (f *fakeBackend) Update(ctx context.Context, id string, patch map[string]any) (*domain.Patient, error) {
	if f.UpdateFunc != nil {
		return f.UpdateFunc(ctx, id, patch)
	}
	return nil, errors.New("not implemented")
}

func (f *fakeBackend) Remove(ctx context.Context, id string) error {
	if f.RemoveFunc != nil {
		return f.RemoveFunc(ctx, id)
	}
	return nil
}

func (f *fakeBackend) lists() int { return int(atomic.LoadInt32(&f.listCalls)) }

func TestUseMountsOnce(t *testing.T) {
	fb := &fakeBackend{ListFunc: func(_ context.Context, opts store.ListOptions) ([]domain.Patient, error) {
		assert.Equal(t, "created_at", opts.OrderBy)
		assert.True(t, opts.Descending)
		assert.False(t, opts.IncludeInactive)
		return []domain.Patient{{ID: "p1"}}, nil
	}}
	r := New[domain.Patient](fb, PatientsConfig, nil)

	st := r.Use(context.Background())
	assert.Len(t, st.Data, 1)
	assert.False(t, st.Loading)
	r.Use(context.Background())
	assert.Equal(t, 1, fb.lists())
}

func TestFetchFailureKeepsStaleData(t *testing.T) {
	fail := false
	fb := &fakeBackend{ListFunc: func(context.Context, store.ListOptions) ([]domain.Patient, error) {
		if fail {
			return nil, errors.New("network down")
		}
		return []domain.Patient{{ID: "p1"}}, nil
	}}
	r := New[domain.Patient](fb, PatientsConfig, nil)
	r.FetchData(context.Background())

	fail = true
	r.FetchData(context.Background())
	st := r.State()
	assert.Equal(t, "network down", st.Err)
	assert.False(t, st.Loading)
	require.Len(t, st.Data, 1)
	assert.Equal(t, "p1", st.Data[0].ID)

	r.ClearError()
	assert.Empty(t, r.State().Err)
	assert.Equal(t, 2, fb.lists())
}

func TestFetchDoesNotRetry(t *testing.T) {
	for _, failure := range []error{
		errors.New(`column "active" does not exist`),
		fmt.Errorf("store: get_all legacy: %w", store.ErrSoftDeleteUnsupported),
	} {
		var seen []bool
		fb := &fakeBackend{ListFunc: func(_ context.Context, opts store.ListOptions) ([]domain.Patient, error) {
			seen = append(seen, opts.IncludeInactive)
			return nil, failure
		}}
		r := New[domain.Patient](fb, PatientsConfig, nil)
		r.FetchData(context.Background())
		assert.Equal(t, []bool{false}, seen, failure.Error())
		assert.Equal(t, failure.Error(), r.State().Err)
	}
}

func TestStaleFetchResponseDiscarded(t *testing.T) {
	release := make(chan struct{})
	var calls int32
	fb := &fakeBackend{ListFunc: func(context.Context, store.ListOptions) ([]domain.Patient, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			<-release // 第一次请求卡住，晚于第二次返回
			return []domain.Patient{{ID: "old"}}, nil
		}
		return []domain.Patient{{ID: "new"}}, nil
	}}
	r := New[domain.Patient](fb, PatientsConfig, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.FetchData(context.Background())
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, timeout, tick)

	r.FetchData(context.Background())
	close(release)
	wg.Wait()

	st := r.State()
	require.Len(t, st.Data, 1)
	assert.Equal(t, "new", st.Data[0].ID)
	assert.False(t, st.Loading)
}

func TestGetItem(t *testing.T) {
	fb := &fakeBackend{GetFunc: func(_ context.Context, id string) (*domain.Patient, error) {
		switch id {
		case "p1":
			return &domain.Patient{ID: "p1"}, nil
		case "boom":
			return nil, errors.New("store unavailable")
		}
		return nil, fmt.Errorf("wrapped: %w", store.ErrNotFound)
	}}
	r := New[domain.Patient](fb, PatientsConfig, nil)
	ctx := context.Background()

	assert.Equal(t, "p1", r.GetItem(ctx, "p1").ID)

	assert.Nil(t, r.GetItem(ctx, "missing"))
	assert.Empty(t, r.State().Err, "not found renders as empty state")

	assert.Nil(t, r.GetItem(ctx, "boom"))
	assert.Equal(t, "store unavailable", r.State().Err)
}

func TestCreateItemSanitizesAndRefreshes(t *testing.T) {
	fb := &fakeBackend{}
	fb.CreateFunc = func(_ context.Context, rec *domain.Patient) (*domain.Patient, error) {
		assert.Empty(t, rec.ID)
		assert.True(t, rec.CreatedAt.IsZero())
		assert.True(t, rec.Active)
		out := *rec
		out.ID = "srv-1"
		return &out, nil
	}
	r := New[domain.Patient](fb, PatientsConfig, nil)
	ctx := context.Background()
	r.FetchData(ctx)
	before := fb.lists()

	got := r.CreateItem(ctx, domain.Patient{ID: "client", FullName: "Ana Ruiz"})
	require.NotNil(t, got)
	assert.Equal(t, "srv-1", got.ID)
	assert.Equal(t, before+1, fb.lists(), "refresh after write")
}

func TestMutationFailuresBecomeState(t *testing.T) {
	fb := &fakeBackend{
		CreateFunc: func(context.Context, *domain.Patient) (*domain.Patient, error) { return nil, errors.New("create failed") },
		UpdateFunc: func(context.Context, string, map[string]any) (*domain.Patient, error) {
			return nil, errors.New("update failed")
		},
		RemoveFunc: func(context.Context, string) error { return errors.New("delete failed") },
	}
	r := New[domain.Patient](fb, PatientsConfig, nil)
	ctx := context.Background()
	r.FetchData(ctx)
	before := fb.lists()

	assert.Nil(t, r.CreateItem(ctx, domain.Patient{FullName: "x"}))
	assert.Equal(t, "create failed", r.State().Err)
	assert.Nil(t, r.UpdateItem(ctx, "p1", map[string]any{"phone": "1"}))
	assert.Equal(t, "update failed", r.State().Err)
	assert.False(t, r.DeleteItem(ctx, "p1"))
	assert.Equal(t, "delete failed", r.State().Err)
	assert.Equal(t, before, fb.lists(), "no refresh after failed writes")
}

func TestSubscribeAndClose(t *testing.T) {
	fb := &fakeBackend{}
	r := New[domain.Patient](fb, PatientsConfig, nil)
	var states []State[domain.Patient]
	unsub := r.Subscribe(func(s State[domain.Patient]) { states = append(states, s) })

	r.FetchData(context.Background())
	require.Len(t, states, 2)
	assert.True(t, states[0].Loading)
	assert.False(t, states[1].Loading)

	unsub()
	r.Close()
	r.FetchData(context.Background())
	assert.Len(t, states, 2)
	assert.Equal(t, 1, fb.lists())
}

func TestStoreBackedResourceLifecycle(t *testing.T) {
	_, a := storetest.Open(t)
	set := NewSet(StoreBackends(a), nil)
	defer set.Close()
	ctx := context.Background()

	assert.Empty(t, set.Patients.Use(ctx).Data)

	p := set.Patients.CreateItem(ctx, domain.Patient{FullName: "Ana Ruiz"})
	require.NotNil(t, p)
	require.Len(t, set.Patients.State().Data, 1)

	phone := "555-1111"
	up := set.Patients.UpdateItem(ctx, p.ID, map[string]any{"phone": phone})
	require.NotNil(t, up)
	assert.Equal(t, phone, *up.Phone)

	assert.True(t, set.Patients.DeleteItem(ctx, p.ID))
	assert.Empty(t, set.Patients.State().Data)
	assert.NotNil(t, set.Patients.GetItem(ctx, p.ID), "soft-deleted row stays retrievable")

	// roles 没有 active 列，列表不过滤
	role := set.Roles.CreateItem(ctx, domain.Role{Name: "doctor"})
	require.NotNil(t, role)
	assert.Len(t, set.Roles.State().Data, 1)
	assert.False(t, set.Roles.DeleteItem(ctx, role.ID))
	assert.Contains(t, set.Roles.State().Err, "no active column")
}
