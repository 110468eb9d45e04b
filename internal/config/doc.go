// Package config loads cardinal configuration written in CUE.
//
// A user file is unified with the closed #Config schema embedded in this
// package (schema.cue). Fields the user leaves out take the schema defaults;
// unknown fields and out-of-range values fail with the CUE position of the
// offending value.
//
// Example file:
//
//	database: "accounts.db"
//	log: level: "debug"
//	validator: min_password_length: 8
//	login_timeout: "3s"
package config
