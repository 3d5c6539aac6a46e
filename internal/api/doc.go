// Package api exposes the broker to front-end callers over HTTP: submitting
// jobs, awaiting and cancelling them, and inspecting broker state. It maps
// broker errors to status codes and user-safe messages.
package api
