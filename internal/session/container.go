package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"portal/internal/model"
)

// Container owns the state of one session and keeps storage in step with it.
// All transitions go through Dispatch.
type Container struct {
	mu        sync.Mutex
	sessionID string
	storage   Storage
	state     State
	listeners []func(State)
}

func NewContainer(sessionID string, storage Storage) *Container {
	return &Container{sessionID: sessionID, storage: storage}
}

func (c *Container) SessionID() string { return c.sessionID }

// Init loads the persisted session. Unreadable storage leaves the session
// unauthenticated; a corrupt or non-object user value clears every key.
func (c *Container) Init(ctx context.Context) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = State{}
	values, err := c.storage.Load(ctx, c.sessionID)
	if err != nil {
		log.Printf("session %s: storage unavailable, starting unauthenticated: %v", c.sessionID, err)
		return c.state
	}

	token := values[model.SessionKeyToken]
	rawUser := values[model.SessionKeyUser]
	if token == "" && rawUser == "" {
		return c.state
	}

	user, err := decodeUser(rawUser)
	if err != nil || token == "" {
		log.Printf("session %s: discarding corrupt session data: %v", c.sessionID, err)
		if clearErr := c.storage.Clear(ctx, c.sessionID); clearErr != nil {
			log.Printf("session %s: failed to clear corrupt session: %v", c.sessionID, clearErr)
		}
		return c.state
	}

	c.state = Reduce(c.state, LoginSuccess{User: user, Token: token, Module: values[model.SessionKeyModule]})
	return c.state
}

func decodeUser(raw string) (model.Profile, error) {
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return model.Profile{}, fmt.Errorf("user value is not a JSON object")
	}
	var user model.Profile
	if err := json.Unmarshal(trimmed, &user); err != nil {
		return model.Profile{}, fmt.Errorf("parse user value: %w", err)
	}
	if user.ID == "" {
		return model.Profile{}, fmt.Errorf("user value has no id")
	}
	return user, nil
}

// State returns a copy of the current state.
func (c *Container) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn to be called after every dispatched transition.
func (c *Container) Subscribe(fn func(State)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Dispatch applies action and persists the result. LoginSuccess writes token,
// user and modulo; Logout clears every key.
func (c *Container) Dispatch(ctx context.Context, action Action) (State, error) {
	c.mu.Lock()
	next := Reduce(c.state, action)

	var err error
	switch action.(type) {
	case LoginSuccess:
		err = c.persist(ctx, next)
	case Logout:
		err = c.storage.Clear(ctx, c.sessionID)
	}
	if err != nil {
		c.mu.Unlock()
		return c.state, err
	}

	c.state = next
	listeners := append([]func(State){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
	return next, nil
}

func (c *Container) persist(ctx context.Context, state State) error {
	user, err := json.Marshal(state.User)
	if err != nil {
		return fmt.Errorf("encode session user: %w", err)
	}
	values := map[string]string{
		model.SessionKeyToken:  state.Token,
		model.SessionKeyUser:   string(user),
		model.SessionKeyModule: state.Module,
	}
	if err := c.storage.Save(ctx, c.sessionID, values); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// Teardown drops listeners and in-memory state; persisted keys are kept.
func (c *Container) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = nil
	c.state = State{}
}
