package session

import "portal/internal/model"

// State is the authentication state of one browser session.
type State struct {
	User    *model.Profile `json:"user"`
	Token   string         `json:"-"`
	Module  string         `json:"module"`
	Loading bool           `json:"loading"`
}

func (s State) Authenticated() bool {
	return s.User != nil && s.Token != ""
}

// Action is the closed set of state transitions: LoginSuccess, Logout, SetLoading.
type Action interface {
	isAction()
}

type LoginSuccess struct {
	User   model.Profile
	Token  string
	Module string
}

type Logout struct{}

type SetLoading struct {
	Loading bool
}

func (LoginSuccess) isAction() {}
func (Logout) isAction()       {}
func (SetLoading) isAction()   {}

// Reduce returns the state that results from applying action to state.
func Reduce(state State, action Action) State {
	switch a := action.(type) {
	case LoginSuccess:
		user := a.User
		module := a.Module
		if module == "" {
			module = user.Module
		}
		return State{User: &user, Token: a.Token, Module: module, Loading: false}
	case Logout:
		return State{}
	case SetLoading:
		state.Loading = a.Loading
		return state
	}
	return state
}
