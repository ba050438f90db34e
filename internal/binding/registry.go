package binding

import (
	"errors"
	"fmt"
	"sync"

	"conductor/internal/resource"
)

// Binding claims declared fields and creates their builders.
type Binding interface {
	// IsFor reports whether this binding handles the field.
	IsFor(f Field) bool
	// Builder creates the resource builder for a claimed field.
	Builder(f Field) (resource.Builder, error)
	// RequiresLinuxContainersOnBareMetal reports whether the resource still
	// needs Linux containers when the target is bare-metal.
	RequiresLinuxContainersOnBareMetal() bool
}

// NotFoundError reports a field that no binding claims.
type NotFoundError struct {
	// Field is the name of the unclaimed field
	Field string

	// Kind is the declaration kind of the field, empty if none was declared
	Kind Kind
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("no binding found for field %s", e.Field)
	}
	return fmt.Sprintf("no binding found for field %s of kind %s", e.Field, e.Kind)
}

// IsNotFound checks if an error is or wraps a NotFoundError.
//
// Args:
//   - err: The error to check
//
// Returns:
//   - bool: true if the error is or wraps a NotFoundError, false otherwise
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

// Registry is an ordered list of bindings. Resolution walks the list in
// registration order and the first binding claiming a field wins.
type Registry struct {
	mu       sync.RWMutex
	bindings []Binding
}

// NewRegistry creates a registry holding bindings in the given order.
func NewRegistry(bindings ...Binding) *Registry {
	r := &Registry{}
	for _, b := range bindings {
		r.Register(b)
	}
	return r
}

// Register appends b after all previously registered bindings.
func (r *Registry) Register(b Binding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings = append(r.bindings, b)
}

// All returns the bindings in resolution order.
func (r *Registry) All() []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Binding, len(r.bindings))
	copy(out, r.bindings)
	return out
}

// Resolve returns the first binding claiming f.
func (r *Registry) Resolve(f Field) (Binding, error) {
	for _, b := range r.All() {
		if b.IsFor(f) {
			return b, nil
		}
	}
	nf := &NotFoundError{Field: f.Name}
	if f.Declaration != nil {
		nf.Kind = f.Declaration.Kind()
	}
	return nil, nf
}

// BuilderFor resolves f and creates its builder.
func (r *Registry) BuilderFor(f Field) (resource.Builder, error) {
	b, err := r.Resolve(f)
	if err != nil {
		return nil, err
	}
	builder, err := b.Builder(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create builder for field %s: %w", f.Name, err)
	}
	return builder, nil
}

// KindBinding claims every field whose declaration has a given kind.
type KindBinding struct {
	For           Kind
	RequiresLinux bool
	NewBuilder    func(f Field) (resource.Builder, error)
}

// IsFor reports whether f declares the bound kind.
func (b KindBinding) IsFor(f Field) bool {
	return f.Declaration != nil && f.Declaration.Kind() == b.For
}

// Builder validates the declaration and delegates to NewBuilder.
func (b KindBinding) Builder(f Field) (resource.Builder, error) {
	if err := Validate(f.Declaration); err != nil {
		return nil, fmt.Errorf("invalid %s declaration for %s: %w", b.For, f.Name, err)
	}
	return b.NewBuilder(f)
}

// RequiresLinuxContainersOnBareMetal returns RequiresLinux.
func (b KindBinding) RequiresLinuxContainersOnBareMetal() bool {
	return b.RequiresLinux
}
