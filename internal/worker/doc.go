// Package worker executes rendering jobs dispatched by the broker.
//
// A Runtime resolves each job name through a compile-time Registry, loading
// the implementation on first use and reusing it afterwards. Jobs run one at a
// time; the Client feeds dispatch frames to the Runtime in arrival order and
// writes back a completed or error frame for each.
package worker
