package login

import "github.com/roach88/cardinal/internal/account"

// State is the login screen state.
type State struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	IsLoading     bool   `json:"is_loading"`
	IsFormCorrect bool   `json:"is_form_correct"`
}

// StateFromAccount prefills the form for a remembered account. Passwords are
// never stored in clear, so the form starts incorrect until one is typed.
func StateFromAccount(a account.Account) State {
	return State{Email: a.Email}
}

// Effect is the closed set of one-shot instructions to the view.
type Effect interface {
	isEffect()
}

// ShowSnack asks the view to show a transient message.
type ShowSnack struct {
	Message string `json:"message"`
}

// Navigate asks the view to leave the login screen for the account.
type Navigate struct {
	Account account.Account `json:"account"`
}

func (ShowSnack) isEffect() {}
func (Navigate) isEffect()  {}
