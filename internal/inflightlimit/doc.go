/*
Copyright © 2025 The Wildcard Bot Authors.

Released under MIT license.
*/

// Package inflightlimit provides a process-wide ceiling on the number of requests in flight.
//
// Governor hands out slots without blocking: when all slots are taken a request is rejected
// right away instead of waiting in a backlog. Callers release the slot once the request settles.
// The peak number of simultaneously occupied slots is tracked for observability.
package inflightlimit
