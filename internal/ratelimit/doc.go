// Package ratelimit implements the fixed-window request counter that guards
// the dashboard's entry points.
//
// Each (prefix, client) pair owns one bucket. A bucket admits up to
// MaxRequests checks until its window ends; the request that would exceed
// the limit is rejected and not counted. Once the window has elapsed the
// bucket is discarded and the next check starts a new one at count 1.
//
// The admission rule runs atomically inside a Store, so concurrent checks
// for the same key can never both take the last slot. MemoryStore serves a
// single process; RedisStore shares buckets between replicas.
package ratelimit
