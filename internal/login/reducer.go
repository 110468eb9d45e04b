package login

// Reduce is the login screen reducer.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case EmailChanged:
		s.Email = a.Email
	case PasswordChanged:
		s.Password = a.Password
	case FormVerified:
		s.IsFormCorrect = true
	case FormIncorrect:
		s.IsFormCorrect = false
	case LoginClicked:
		s.IsLoading = true
	case LoginSucceeded, LoginFailed:
		s.IsLoading = false
	}
	return s
}

// effectFor maps a login result to the effect shown to the view.
func effectFor(a Action) (Effect, bool) {
	switch a := a.(type) {
	case LoginSucceeded:
		return Navigate{Account: a.Account}, true
	case LoginFailed:
		return ShowSnack{Message: a.Message}, true
	default:
		return nil, false
	}
}
