package websocket

import (
	"context"
	"errors"
	"fmt"
	"log"

	"portal/internal/model"
	"portal/internal/presenter"
	"portal/internal/search"
	"portal/internal/service"
)

// Inbound message types
const (
	MsgNavigate = "navigate"
	MsgRefresh  = "refresh"
	MsgSearch   = "search"
)

// Outbound message types
const (
	MsgScreen      = "screen"
	MsgSuggestions = "suggestions"
	MsgError       = "error"
)

// CodeUnsavedChanges asks the client to confirm before leaving a form.
const CodeUnsavedChanges = "unsaved_changes"

// Inbound is a message sent by the browser.
type Inbound struct {
	Type          string             `json:"type"`
	View          presenter.ViewKind `json:"view,omitempty"`
	OpportunityID string             `json:"opportunity_id,omitempty"`
	Query         *model.ListQuery   `json:"query,omitempty"`
	Narrow        string             `json:"narrow,omitempty"`
	Confirmed     bool               `json:"confirmed,omitempty"`
	Field         search.Field       `json:"field,omitempty"`
	Term          string             `json:"term,omitempty"`
}

// Outbound is a message pushed to the browser.
type Outbound struct {
	Type   string            `json:"type"`
	Screen *presenter.Screen `json:"screen,omitempty"`
	Field  search.Field      `json:"field,omitempty"`
	Term   string            `json:"term,omitempty"`
	Items  interface{}       `json:"items,omitempty"`
	Error  string            `json:"error,omitempty"`
	Code   string            `json:"code,omitempty"`
}

// Session drives one presenter. Everything except the debounced lookups runs
// on the goroutine calling run.
type Session struct {
	ctx        context.Context
	presenter  *presenter.Presenter
	references service.ReferenceService
	debouncers map[search.Field]*search.Debouncer
	results    chan Outbound
	emit       func(Outbound)
}

func NewSession(ctx context.Context, p *presenter.Presenter, references service.ReferenceService, emit func(Outbound)) *Session {
	s := &Session{
		ctx:        ctx,
		presenter:  p,
		references: references,
		debouncers: make(map[search.Field]*search.Debouncer, len(search.DefaultSettings)),
		results:    make(chan Outbound, 8),
		emit:       emit,
	}
	for field, settings := range search.DefaultSettings {
		field := field
		s.debouncers[field] = search.NewDebouncer(settings, func(term string) {
			s.lookup(field, term)
		})
	}
	return s
}

// run renders the initial view and then serves messages and hub events until
// either channel closes or the context ends.
func (s *Session) run(inbound <-chan Inbound, events <-chan model.OpportunityChanged) {
	defer s.stop()
	s.render()
	for {
		select {
		case msg, ok := <-inbound:
			if !ok {
				return
			}
			s.Handle(msg)
		case evt, ok := <-events:
			if !ok {
				return
			}
			s.OnEvent(evt)
		case res := <-s.results:
			s.emit(res)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Session) stop() {
	for _, d := range s.debouncers {
		d.Stop()
	}
}

func (s *Session) Handle(msg Inbound) {
	switch msg.Type {
	case MsgNavigate:
		to, err := viewFor(msg)
		if err != nil {
			s.fail(err, "")
			return
		}
		if err := s.presenter.Navigate(s.ctx, to, msg.Confirmed); err != nil {
			if errors.Is(err, presenter.ErrUnsavedChanges) {
				s.fail(err, CodeUnsavedChanges)
				return
			}
			s.fail(err, "")
			return
		}
		s.render()
	case MsgRefresh:
		s.render()
	case MsgSearch:
		d, ok := s.debouncers[msg.Field]
		if !ok {
			s.fail(fmt.Errorf("unknown search field %q", msg.Field), "")
			return
		}
		d.Input(msg.Term)
	default:
		s.fail(fmt.Errorf("unknown message type %q", msg.Type), "")
	}
}

// OnEvent re-renders when the change touches what is on screen.
func (s *Session) OnEvent(evt model.OpportunityChanged) {
	if s.presenter.Affected(evt) {
		s.render()
	}
}

func (s *Session) render() {
	screen, err := s.presenter.Render(s.ctx)
	if err != nil {
		s.fail(err, "")
		return
	}
	s.emit(Outbound{Type: MsgScreen, Screen: &screen})
}

func (s *Session) fail(err error, code string) {
	s.emit(Outbound{Type: MsgError, Error: err.Error(), Code: code})
}

// lookup runs on a debouncer timer and hands the result back to run.
func (s *Session) lookup(field search.Field, term string) {
	var (
		items interface{}
		err   error
	)
	switch field {
	case search.FieldCompany:
		items, err = s.references.Companies(s.ctx, term)
	case search.FieldProgram:
		items, err = s.references.Programs(s.ctx, term)
	case search.FieldSubject:
		items, err = s.references.Subjects(s.ctx, term)
	}

	out := Outbound{Type: MsgSuggestions, Field: field, Term: term, Items: items}
	if err != nil {
		log.Printf("websocket: %s lookup for %q failed: %v", field, term, err)
		out = Outbound{Type: MsgError, Field: field, Term: term, Error: err.Error()}
	}
	select {
	case s.results <- out:
	case <-s.ctx.Done():
	}
}

func viewFor(msg Inbound) (presenter.View, error) {
	switch msg.View {
	case presenter.KindList:
		v := presenter.ListView{Narrow: msg.Narrow}
		if msg.Query != nil {
			v.Query = *msg.Query
		}
		return v, nil
	case presenter.KindCreate:
		return presenter.CreateView{}, nil
	case presenter.KindEdit:
		return presenter.EditView{OpportunityID: msg.OpportunityID}, nil
	case presenter.KindDetail:
		return presenter.DetailView{OpportunityID: msg.OpportunityID}, nil
	}
	return nil, fmt.Errorf("unknown view %q", msg.View)
}
