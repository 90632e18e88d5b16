package search

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	terms []string
	fired chan struct{}
}

func newRecorder() *recorder {
	return &recorder{fired: make(chan struct{}, 16)}
}

func (r *recorder) fire(term string) {
	r.mu.Lock()
	r.terms = append(r.terms, term)
	r.mu.Unlock()
	r.fired <- struct{}{}
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.terms...)
}

func TestDebouncerFiresOnceWithLastInput(t *testing.T) {
	rec := newRecorder()
	d := NewDebouncer(Settings{Quiet: 100 * time.Millisecond, MinLength: 3}, rec.fire)

	for _, term := range []string{"a", "ac", "acm", "acme", "acme s"} {
		d.Input(term)
		time.Sleep(time.Millisecond)
	}

	select {
	case <-rec.fired:
	case <-time.After(time.Second):
		t.Fatal("debouncer never fired")
	}
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, []string{"acme s"}, rec.got())
}

func TestDebouncerIgnoresShortInput(t *testing.T) {
	rec := newRecorder()
	d := NewDebouncer(Settings{Quiet: 10 * time.Millisecond, MinLength: 3}, rec.fire)

	d.Input("acme")
	d.Input(" ac ")
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, rec.got())
}

func TestDebouncerStopCancelsPending(t *testing.T) {
	rec := newRecorder()
	d := NewDebouncer(Settings{Quiet: 20 * time.Millisecond, MinLength: 2}, rec.fire)

	d.Input("ingenieria")
	d.Stop()
	d.Input("derecho")
	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, rec.got())
}

func TestDefaultSettings(t *testing.T) {
	require.Contains(t, DefaultSettings, FieldCompany)
	assert.Equal(t, 300*time.Millisecond, DefaultSettings[FieldCompany].Quiet)
	assert.Equal(t, 3, DefaultSettings[FieldCompany].MinLength)
	assert.Equal(t, 400*time.Millisecond, DefaultSettings[FieldProgram].Quiet)
	assert.Equal(t, 2, DefaultSettings[FieldProgram].MinLength)
	assert.Equal(t, 3, DefaultSettings[FieldSubject].MinLength)
}
