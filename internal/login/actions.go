package login

import (
	"github.com/roach88/cardinal/internal/account"
	"github.com/roach88/cardinal/internal/flow"
)

// Action tags. Parent tags name groups: TagForm matches both field changes.
const (
	TagForm            flow.Tag = "form"
	TagEmailChanged    flow.Tag = "form/email"
	TagPasswordChanged flow.Tag = "form/password"

	TagFormState     flow.Tag = "formstate"
	TagFormVerified  flow.Tag = "formstate/verified"
	TagFormIncorrect flow.Tag = "formstate/incorrect"

	TagLogin          flow.Tag = "login"
	TagLoginSucceeded flow.Tag = "login/succeeded"
	TagLoginFailed    flow.Tag = "login/failed"

	TagLoginClicked flow.Tag = "clicked"
)

// Action is the closed set of login screen actions.
type Action interface {
	flow.Action
	isAction()
}

// EmailChanged carries the email field's new content.
type EmailChanged struct {
	Email string
}

// PasswordChanged carries the password field's new content.
type PasswordChanged struct {
	Password string
}

// FormVerified reports that the form passed validation.
type FormVerified struct{}

// FormIncorrect reports that the form failed validation.
type FormIncorrect struct{}

// LoginSucceeded carries the account returned by the repository.
type LoginSucceeded struct {
	Account account.Account
}

// LoginFailed carries the user-facing reason of a failed login.
type LoginFailed struct {
	Message string
}

// LoginClicked is the login button press.
type LoginClicked struct{}

func (EmailChanged) Tag() flow.Tag    { return TagEmailChanged }
func (PasswordChanged) Tag() flow.Tag { return TagPasswordChanged }
func (FormVerified) Tag() flow.Tag    { return TagFormVerified }
func (FormIncorrect) Tag() flow.Tag   { return TagFormIncorrect }
func (LoginSucceeded) Tag() flow.Tag  { return TagLoginSucceeded }
func (LoginFailed) Tag() flow.Tag     { return TagLoginFailed }
func (LoginClicked) Tag() flow.Tag    { return TagLoginClicked }

func (EmailChanged) isAction()    {}
func (PasswordChanged) isAction() {}
func (FormVerified) isAction()    {}
func (FormIncorrect) isAction()   {}
func (LoginSucceeded) isAction()  {}
func (LoginFailed) isAction()     {}
func (LoginClicked) isAction()    {}
