// Package search debounces autocomplete input before it reaches the
// reference provider.
package search

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"portal/internal/model"
)

// Field names a debounced lookup.
type Field string

const (
	FieldCompany Field = "company"
	FieldProgram Field = "program"
	FieldSubject Field = "subject"
)

// Settings is the quiet period and minimum input length of one field.
type Settings struct {
	Quiet     time.Duration
	MinLength int
}

var DefaultSettings = map[Field]Settings{
	FieldCompany: {Quiet: 300 * time.Millisecond, MinLength: model.MinCompanySearchLength},
	FieldProgram: {Quiet: 400 * time.Millisecond, MinLength: model.MinProgramSearchLength},
	FieldSubject: {Quiet: 400 * time.Millisecond, MinLength: model.MinSubjectSearchLength},
}

// Debouncer calls fire with the latest input once no new input has arrived
// for the quiet period. Input shorter than the minimum never fires and
// cancels whatever was pending.
type Debouncer struct {
	mu         sync.Mutex
	settings   Settings
	fire       func(term string)
	timer      *time.Timer
	generation uint64
	stopped    bool
}

func NewDebouncer(settings Settings, fire func(term string)) *Debouncer {
	return &Debouncer{settings: settings, fire: fire}
}

func (d *Debouncer) Input(raw string) {
	term := strings.TrimSpace(raw)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	d.generation++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if utf8.RuneCountInString(term) < d.settings.MinLength {
		return
	}

	gen := d.generation
	d.timer = time.AfterFunc(d.settings.Quiet, func() {
		d.mu.Lock()
		current := gen == d.generation && !d.stopped
		d.mu.Unlock()
		// a timer that lost the race with a newer input must stay silent
		if current {
			d.fire(term)
		}
	})
}

// Stop cancels any pending call; later input is ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.generation++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
