// Package executor provides a fixed-capacity slot pool for bounding how many
// tasks run concurrently.
//
// The pool deliberately splits admission into two steps: Wait blocks until a
// slot is predicted free without reserving it, and Execute reserves a slot or
// fails immediately. Callers that must not over-dispatch call Wait and then
// Execute back to back; concurrent callers may still race for the same freed
// slot, in which case the loser's Execute fails and it waits again.
package executor
