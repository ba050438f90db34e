// Package probe checks service endpoints for readiness.
//
// HTTP wraps a retrying client; a probe that cannot connect reports "not
// ready" rather than an error, leaving the overall deadline to the caller's
// readiness poll.
package probe
