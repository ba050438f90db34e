// Package local runs services as processes on the host.
//
// A local app declares the command to run and optionally a build command
// producing an artifact, which replaces {artifact} in the command. Service
// properties reach the process as environment variables (log.level becomes
// LOG_LEVEL) and optionally as a properties file in the service folder.
//
// Output is captured in out.log below the service folder and followed by a
// LogTailer, so started and fatal markers drive readiness and every line is
// forwarded to the scenario log.
package local
