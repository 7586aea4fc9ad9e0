package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusOrder(t *testing.T) {
	var b Bus[int]
	var got []string

	b.Subscribe(func(v int) { got = append(got, "a") })
	b.Subscribe(func(v int) { got = append(got, "b") })
	b.Subscribe(func(v int) { got = append(got, "c") })

	b.Emit(1)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestBusUnsubscribe(t *testing.T) {
	var b Bus[string]
	var got []string

	b.Subscribe(func(v string) { got = append(got, "first:"+v) })
	unsub := b.Subscribe(func(v string) { got = append(got, "second:"+v) })
	b.Subscribe(func(v string) { got = append(got, "third:"+v) })

	unsub()
	unsub()
	assert.Equal(t, 2, b.Len())

	b.Emit("x")
	assert.Equal(t, []string{"first:x", "third:x"}, got)
}

func TestBusUnsubscribeDuringEmit(t *testing.T) {
	var b Bus[int]
	calls := 0

	var unsub func()
	unsub = b.Subscribe(func(int) {
		calls++
		unsub()
	})
	b.Subscribe(func(int) { calls++ })

	b.Emit(1)
	assert.Equal(t, 2, calls, "removal takes effect on the next Emit")

	b.Emit(2)
	assert.Equal(t, 3, calls)
}

func TestBusClear(t *testing.T) {
	var b Bus[int]
	called := false
	b.Subscribe(func(int) { called = true })

	b.Clear()
	b.Emit(1)

	assert.False(t, called)
	assert.Zero(t, b.Len())
}

func TestBusPanickingSubscriber(t *testing.T) {
	var b Bus[string]
	var got []string

	b.Subscribe(func(v string) { got = append(got, "first:"+v) })
	b.Subscribe(func(v string) { panic("boom " + v) })
	b.Subscribe(func(v string) { got = append(got, "third:"+v) })

	err := b.Emit("x")
	assert.Equal(t, []string{"first:x", "third:x"}, got)

	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "boom x", pe.Value)
	assert.NotEmpty(t, pe.Stack)
	assert.Contains(t, err.Error(), "subscriber panicked: boom x")

	got = nil
	b.Clear()
	b.Subscribe(func(v string) { got = append(got, v) })
	assert.NoError(t, b.Emit("y"))
	assert.Equal(t, []string{"y"}, got)
}
