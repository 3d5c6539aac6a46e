// Package events provides job lifecycle events and an in-process emitter.
//
// The broker publishes an event whenever a job is dispatched, completes, fails
// or is dropped. Handlers observe these without the broker knowing who they
// are, which keeps logging and statistics out of the scheduling code.
//
// The primary components are:
// - JobEvent: a single lifecycle transition of a job
// - EventHandler: interface for components that consume events
// - InMemoryEventEmitter: synchronous fan-out to registered handlers
package events
