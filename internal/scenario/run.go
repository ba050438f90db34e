package scenario

import (
	"context"
	"fmt"
	"testing"
	"time"

	"conductor/internal/services"
)

// Test is one test method of a scenario driven by Run.
type Test struct {
	Name string
	// Disabled skips the test with this reason when non-empty.
	Disabled string
	Fn       func(t *testing.T)
}

// Run drives a scenario from a Go test: the environment check, BeforeAll,
// every test as a subtest wrapped in BeforeEach/AfterEach, and AfterAll as a
// cleanup that runs even when setup fails.
func Run(t *testing.T, o *Orchestrator, class *Class, tests ...Test) {
	t.Helper()
	ctx := context.Background()

	if reason := o.CheckEnvironment(class); reason != "" {
		t.Skip(reason)
	}

	t.Cleanup(func() {
		if err := o.AfterAll(ctx); err != nil {
			t.Errorf("scenario teardown: %v", err)
		}
	})
	if err := o.BeforeAll(ctx, class); err != nil {
		t.Fatalf("scenario setup: %v", err)
	}

	for _, tc := range tests {
		t.Run(tc.Name, func(t *testing.T) {
			if tc.Disabled != "" {
				o.TestDisabled(ctx, tc.Name, tc.Disabled)
				t.Skip(tc.Disabled)
			}
			if err := o.BeforeEach(ctx, tc.Name); err != nil {
				t.Fatalf("before %s: %v", tc.Name, err)
			}
			defer func() {
				if err := o.AfterEach(ctx); err != nil {
					t.Errorf("after %s: %v", tc.Name, err)
				}
				if t.Failed() {
					o.TestFailed(ctx, tc.Name, nil)
				} else {
					o.TestSuccessful(ctx, tc.Name)
				}
			}()
			tc.Fn(t)
		})
	}
}

// Step is one check of a scenario driven by Execute.
type Step struct {
	Name string
	Fn   func(ctx context.Context, o *Orchestrator) error
}

// ServiceResult summarizes a service at the end of the last step.
type ServiceResult struct {
	Name    string
	Display string
	State   services.ServiceState
}

// Result is the outcome of Execute.
type Result struct {
	Scenario string
	ID       string
	Passed   bool
	Skipped  string
	Duration time.Duration
	Err      error
	Services []ServiceResult
}

// Execute runs a scenario outside of go test, with steps in place of test
// methods. Without steps a single "smoke" step checks that every auto-start
// service is running.
func Execute(ctx context.Context, o *Orchestrator, class *Class, steps ...Step) Result {
	began := time.Now()
	res := Result{Scenario: class.Name}

	if reason := o.CheckEnvironment(class); reason != "" {
		res.Skipped = reason
		res.Passed = true
		return res
	}
	if len(steps) == 0 {
		steps = []Step{{Name: "smoke", Fn: SmokeCheck}}
	}

	err := o.BeforeAll(ctx, class)
	if o.Scenario() != nil {
		res.ID = o.Scenario().ID()
	}
	if err == nil {
		for _, step := range steps {
			if err = o.BeforeEach(ctx, step.Name); err != nil {
				break
			}
			stepErr := step.Fn(ctx, o)
			afterErr := o.AfterEach(ctx)
			if stepErr != nil {
				o.TestFailed(ctx, step.Name, stepErr)
				err = stepErr
				break
			}
			if afterErr != nil {
				err = afterErr
				break
			}
			o.TestSuccessful(ctx, step.Name)
		}
	}

	for _, svc := range o.Services() {
		res.Services = append(res.Services, ServiceResult{
			Name:    svc.GetName(),
			Display: svc.GetDisplayName(),
			State:   svc.GetState(),
		})
	}

	teardownErr := o.AfterAll(ctx)
	if err == nil {
		err = teardownErr
	}
	res.Err = err
	res.Passed = err == nil && (o.Scenario() == nil || !o.Scenario().IsFailed())
	res.Duration = time.Since(began)
	return res
}

// SmokeCheck fails when an auto-start service is not running.
func SmokeCheck(ctx context.Context, o *Orchestrator) error {
	for _, svc := range o.Services() {
		if svc.IsAutoStart() && !svc.IsRunning(ctx) {
			return fmt.Errorf("service %s is not running", svc.GetName())
		}
	}
	return nil
}
