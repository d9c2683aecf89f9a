// Package notify delivers per-owner auction events (sales, relists) to a
// Slack webhook. Events pass through an in-memory buffer so snapshot
// processing never blocks on webhook latency.
package notify
