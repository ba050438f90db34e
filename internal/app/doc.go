// Package app provides application bootstrap for conductor.
//
// It loads the configuration, sets up logging and creates the services every
// scenario of a run shares:
//
//   - the binding registry with the local, container, kubernetes and
//     openshift backends, in that resolution order
//   - the namespace and project extensions of the cluster targets
//   - the container runtime, detected once per run, and the Linux container
//     probe over it
//
// # Execution
//
// Run executes scenarios one after another, each with its own orchestrator,
// and stops starting new ones once interrupted. CheckEnvironment reports what
// the host offers without starting anything.
//
// Example:
//
//	application, err := app.NewApplication(app.NewConfig(false, "conductor.yaml"))
//	if err != nil {
//	    return err
//	}
//	classes, err := scenario.LoadClasses("scenarios")
//	if err != nil {
//	    return err
//	}
//	results, err := application.Run(ctx, classes)
package app
