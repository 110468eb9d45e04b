// Package account is the SQLite-backed account repository used by the login
// screen.
//
// Passwords are stored as bcrypt hashes. Emails are compared after trimming
// and Unicode case folding, so "Ann@Example.com" and "ann@example.com" name
// the same account.
//
// The remembered account is the one with the most recent successful login.
// Login order is tracked with a monotonic sequence column rather than wall
// clock time, which keeps scenario runs reproducible.
package account
