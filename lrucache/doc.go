/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package lrucache provides a bounded in-memory cache with LRU eviction, per-entry TTL and Prometheus metrics.
// The bot uses it to remember chats that recently received an error reply.
package lrucache
