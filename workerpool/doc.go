// Package workerpool runs embedding tasks on a bounded pool of workers
// with a fail-fast submission queue, per-task timeouts, and crash
// isolation: a panicking or hung task fails only its own result.
package workerpool
