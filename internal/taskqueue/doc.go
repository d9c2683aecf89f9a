// Package taskqueue implements the queue worker loop: a single receive loop
// that fans incoming messages out to a bounded set of concurrent handlers via
// an executor slot pool.
//
// Failure handling is split in two. Errors thrown by the loop itself (queue
// connectivity, slot accounting) trigger exponential backoff of the whole
// loop. Errors returned by the message handler are retried per message by
// unlocking it for redelivery, until the delivery count reaches the poison
// threshold, at which point the message is deleted and logged.
package taskqueue
