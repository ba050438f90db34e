package scenario

import (
	"fmt"
	"reflect"
	"slices"

	"conductor/internal/binding"
	"conductor/internal/services"
)

// FieldKind tells the orchestrator how to treat a declared field.
type FieldKind int

const (
	// FieldService registers a new service.
	FieldService FieldKind = iota
	// FieldLookup aliases a service registered earlier under the same name.
	FieldLookup
	// FieldInject is filled from the first extension providing its type.
	FieldInject
)

func (k FieldKind) String() string {
	switch k {
	case FieldService:
		return "service"
	case FieldLookup:
		return "lookup"
	case FieldInject:
		return "inject"
	default:
		return "unknown"
	}
}

// Field is one declaration of a Class.
type Field struct {
	Name        string
	Kind        FieldKind
	Service     services.Service
	Declaration binding.Declaration
	// Target is the pointer filled by lookups and injections.
	Target any
}

// Class is the declarative description of a scenario: an ordered list of
// fields, optionally extending a parent whose fields come first.
type Class struct {
	Name   string
	parent *Class
	fields []Field
}

// NewClass creates an empty scenario class.
func NewClass(name string) *Class {
	return &Class{Name: name}
}

// Extends makes c inherit the fields of parent.
func (c *Class) Extends(parent *Class) *Class {
	c.parent = parent
	return c
}

// Parent returns the extended class, if any.
func (c *Class) Parent() *Class {
	return c.parent
}

// Service declares a service backed by the resource selected for decl.
func (c *Class) Service(name string, svc services.Service, decl binding.Declaration) *Class {
	c.fields = append(c.fields, Field{Name: name, Kind: FieldService, Service: svc, Declaration: decl})
	return c
}

// Lookup declares an alias of the already registered service name. target
// must be a pointer to a variable the service is assignable to.
func (c *Class) Lookup(name string, target any) *Class {
	c.fields = append(c.fields, Field{Name: name, Kind: FieldLookup, Target: target})
	return c
}

// Inject declares a value provided by an extension. target must be a
// pointer; the pointed-to type selects the provider.
func (c *Class) Inject(name string, target any) *Class {
	c.fields = append(c.fields, Field{Name: name, Kind: FieldInject, Target: target})
	return c
}

// Fields returns inherited fields first, then the class's own, each in
// declaration order.
func (c *Class) Fields() []Field {
	var chain []*Class
	for cur := c; cur != nil; cur = cur.parent {
		if slices.Contains(chain, cur) {
			break
		}
		chain = append(chain, cur)
	}

	var fields []Field
	for i := len(chain) - 1; i >= 0; i-- {
		fields = append(fields, chain[i].fields...)
	}
	return fields
}

// assign stores value into the variable target points to.
func assign(target any, value any) error {
	ptr := reflect.ValueOf(target)
	if ptr.Kind() != reflect.Pointer || ptr.IsNil() {
		return fmt.Errorf("target %T is not a non-nil pointer", target)
	}
	elem := ptr.Elem()
	v := reflect.ValueOf(value)
	if !v.IsValid() || !v.Type().AssignableTo(elem.Type()) {
		return fmt.Errorf("value of type %T cannot be assigned to %s", value, elem.Type())
	}
	elem.Set(v)
	return nil
}

// targetType returns the type a pointer target points to.
func targetType(target any) (reflect.Type, error) {
	t := reflect.TypeOf(target)
	if t == nil || t.Kind() != reflect.Pointer || reflect.ValueOf(target).IsNil() {
		return nil, fmt.Errorf("target %T is not a non-nil pointer", target)
	}
	return t.Elem(), nil
}
