// Package ingest routes queue messages to the snapshot pipeline.
//
// Three message types flow through the queue: sweep fans out one process
// message per configured realm, process fetches and reconciles a realm's
// latest dump, and notify delivers per-owner auction events. Keeping the
// fan-out and the per-realm work as separate messages lets a dropped worker
// lose at most one realm's progress, which the peek-lock queue then
// redelivers.
package ingest
