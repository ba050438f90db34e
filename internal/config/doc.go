// Package config provides configuration management for conductor.
//
// Configuration is read from a single YAML file (conductor.yaml by default),
// layered on top of built-in defaults and overlaid by environment variables:
//
//	defaults  <  conductor.yaml  <  CONDUCTOR_* environment variables
//
// The YAML document is validated against an embedded JSON schema before it is
// decoded, so typos in keys and malformed durations are reported with the file
// path instead of silently ignored.
//
// # Deployment Target
//
// Target selects where services run: bare-metal (local processes and
// containers on this host), kubernetes or openshift.
//
// # Per-Service Configuration
//
// The services section configures individual services by name:
//
//	services:
//	  greetings:
//	    autoStart: true
//	    startupTimeout: 2m
//	    startupCheckPollInterval: 1s
//	    properties:
//	      greeting.message: hello
//
// BaseService.Register looks the service name up in this map and applies the
// settings before the service is built.
package config
