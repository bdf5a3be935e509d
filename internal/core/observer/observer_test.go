package observer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscribeNotifyOrder(t *testing.T) {
	var l List[int]
	var got []string
	l.Subscribe(func(v int) { got = append(got, "a") })
	l.Subscribe(func(v int) { got = append(got, "b") })
	l.Notify(1)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 2, l.Len())
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	var l List[string]
	calls := 0
	unsub := l.Subscribe(func(string) { calls++ })
	l.Notify("x")
	unsub()
	unsub()
	l.Notify("y")
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, l.Len())
}

func TestUnsubscribeInsideCallback(t *testing.T) {
	var l List[int]
	var unsub func()
	calls := 0
	unsub = l.Subscribe(func(int) { calls++; unsub() })
	l.Notify(1)
	l.Notify(2)
	assert.Equal(t, 1, calls)
}
