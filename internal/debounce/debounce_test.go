package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	values []string
	ch     chan string
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan string, 16)}
}

func (r *recorder) record(v string) {
	r.mu.Lock()
	r.values = append(r.values, v)
	r.mu.Unlock()
	r.ch <- v
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.values...)
}

func TestDebouncer_CollapsesBurstToLastValue(t *testing.T) {
	rec := newRecorder()
	d := New(60*time.Millisecond, rec.record)

	for _, v := range []string{"f", "fj", "fja", "fjal"} {
		d.Push(v)
		time.Sleep(2 * time.Millisecond)
	}

	select {
	case v := <-rec.ch:
		assert.Equal(t, "fjal", v)
	case <-time.After(time.Second):
		t.Fatal("debounced value never delivered")
	}

	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, []string{"fjal"}, rec.snapshot())
	assert.False(t, d.Pending())
}

func TestDebouncer_WaitsForQuietPeriod(t *testing.T) {
	rec := newRecorder()
	d := New(80*time.Millisecond, rec.record)

	d.Push("bag")
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
	assert.True(t, d.Pending())
}

func TestDebouncer_Flush(t *testing.T) {
	rec := newRecorder()
	d := New(time.Hour, rec.record)

	assert.False(t, d.Flush())

	d.Push("jacket")
	require.True(t, d.Flush())
	assert.Equal(t, []string{"jacket"}, rec.snapshot())
	assert.False(t, d.Pending())
	assert.False(t, d.Flush())
}

func TestDebouncer_StopDropsPending(t *testing.T) {
	rec := newRecorder()
	d := New(20*time.Millisecond, rec.record)

	d.Push("lost")
	d.Stop()
	d.Push("ignored")

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
	assert.False(t, d.Flush())
}

func TestDebouncer_CancelKeepsAcceptingInput(t *testing.T) {
	rec := newRecorder()
	d := New(20*time.Millisecond, rec.record)

	d.Push("dropped")
	d.Cancel()
	assert.False(t, d.Pending())

	d.Push("kept")
	select {
	case v := <-rec.ch:
		assert.Equal(t, "kept", v)
	case <-time.After(time.Second):
		t.Fatal("value pushed after Cancel never delivered")
	}
	assert.Equal(t, []string{"kept"}, rec.snapshot())
}

func TestNew_DefaultDelay(t *testing.T) {
	d := New(0, func(string) {})
	assert.Equal(t, DefaultDelay, d.delay)
	assert.Equal(t, 500*time.Millisecond, DefaultDelay)
}
