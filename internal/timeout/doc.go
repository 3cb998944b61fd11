/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

// Package timeout provides a one-shot result handle bound to a fixed deadline.
//
// A Promise settles exactly once: either with the outcome reported by the work it tracks
// or with ErrTimeout when the deadline elapses first. Whichever comes second is ignored.
// The tracked work itself is never cancelled, the caller just stops waiting for it.
package timeout
