// Package broker queues rendering jobs and hands them to connected workers.
//
// All broker state (worker registry, pending queue, waiters and the result
// cache) is owned by a single event-loop goroutine. Public methods post
// closures to that loop and wait for their reply, so state transitions happen
// in a strict order without locks. A worker runs at most one job at a time:
// it is marked busy when a job is dispatched and free again when it reports.
package broker
