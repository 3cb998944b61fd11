/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

// Package userqueue serializes work per user identity.
//
// Every user gets its own FIFO Queue drained by at most one goroutine at a time.
// The drain loop applies a local fixed-window rate limit (the window restarts when more than
// RateWindow has elapsed since it started) and backs off briefly when the limit is reached
// or when the backlog grows. Each unit of work is bound to a deadline (see internal/timeout),
// so the caller is released with timeout.ErrTimeout even if the work never finishes.
//
// Registry maps user identities to queues, creates them lazily
// and removes idle ones when Sweep is called.
package userqueue
