// Package errors provides standardized error handling for the chat relay.
// It includes error classification, standard error variables, and helper
// functions for consistent error wrapping across pipeline processors and
// their collaborators.
package errors
