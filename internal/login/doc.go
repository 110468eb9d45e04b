// Package login is the login screen built on the store runtime: a form with
// live validation and a login button backed by an account repository.
//
// Two pipelines drive the screen:
//
//	form:  EmailChanged|PasswordChanged ─► Reduce ─► validate ─► FormVerified|FormIncorrect ─► Reduce
//	login: LoginClicked ─► DropWhileBusy ─► Reduce(loading) ─► Repository.Login (io) ─► Reduce ─► Navigate|ShowSnack
//
// Clicks that arrive while a login call is in flight are dropped, so the
// repository sees at most one call at a time.
package login
