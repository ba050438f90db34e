package services

import (
	"context"

	"conductor/internal/config"
	"conductor/internal/properties"
	"conductor/internal/resource"
	"conductor/internal/runctx"
)

// ServiceState represents the lifecycle state of a service
type ServiceState string

const (
	StateUnknown  ServiceState = "Unknown"
	StateStarting ServiceState = "Starting"
	StateRunning  ServiceState = "Running"
	StateStopping ServiceState = "Stopping"
	StateStopped  ServiceState = "Stopped"
	StateFailed   ServiceState = "Failed"
)

// Service is the orchestration-facing handle of one declared service.
// BaseService implements it; custom service types embed *BaseService.
type Service interface {
	// Lifecycle management
	Register(name string, scenario *runctx.ScenarioContext, cfg config.ConductorConfig) error
	Init(ctx context.Context, builder resource.Builder) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error
	Close(ctx context.Context) error

	// State management
	GetState() ServiceState
	GetLastError() error
	IsRunning(ctx context.Context) bool
	IsAutoStart() bool

	// Service metadata
	GetName() string
	GetDisplayName() string
	GetContext() *runctx.ServiceContext
	GetProperties() properties.Reader
	GetLogs() []string
	URI(protocol resource.Protocol) (resource.URILike, error)

	// State change notifications
	SetStateChangeCallback(callback StateChangeCallback)
}

// StateChangeCallback is called when a service's state changes
type StateChangeCallback func(name string, oldState, newState ServiceState, err error)

// Hook runs before or after a service start.
type Hook func(ctx context.Context, s Service) error
