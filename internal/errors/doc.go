// Package errors provides structured, actionable errors for the locsync
// command and its configuration.
//
// Each error has a registered code (e.g. "L101") that maps to a category,
// a short message, a longer explanation and a fix hint. Library packages
// under pkg/ return plain sentinel errors; this package is for errors that
// reach a person at a terminal.
//
// # Usage
//
//	err := errors.New("L101").
//	    WithDetail(`"session.read_timeout": time: invalid duration "soon"`).
//	    Wrap(parseErr)
//
//	errors.PrintError(err)
//	// ERROR L101: Invalid configuration file
//	//
//	//   "session.read_timeout": time: invalid duration "soon"
//	//
//	//   Hint: Durations use Go syntax such as "30s" or "5m".
package errors
