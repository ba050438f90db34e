// Package runctx carries the run-time handles that are threaded through the
// service lifecycle.
//
// A ScenarioContext represents one scenario (test class) run: its generated
// id, the current test method, the failure flag and the scenario log file.
// A ServiceContext represents one registered service inside a scenario: the
// owning service, its working directory and a small side-store that
// extensions use to hand state (clients, namespaces, certificates) to
// resources without a compile-time dependency between them.
package runctx
