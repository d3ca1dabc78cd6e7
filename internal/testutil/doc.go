// Package testutil contains helpers shared across package tests to reduce
// boilerplate when assembling pre-populated sessions (profile, scratch,
// history). Not intended for production use.
package testutil
