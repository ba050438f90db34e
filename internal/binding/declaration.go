package binding

import (
	"errors"
	"fmt"
)

// Kind identifies a Declaration variant.
type Kind string

const (
	KindLocal      Kind = "local"
	KindContainer  Kind = "container"
	KindKubernetes Kind = "kubernetes"
	KindOpenShift  Kind = "openshift"
)

// Declaration is the typed metadata of a declared service. The variants are
// LocalApp, Container, Kubernetes and OpenShift.
type Declaration interface {
	Kind() Kind
	declaration()
}

// Markers configure log-based readiness.
type Markers struct {
	Started []string `yaml:"startedMarkers,omitempty"`
	Fatal   []string `yaml:"fatalMarkers,omitempty"`
}

// LocalApp runs a command on the local host.
type LocalApp struct {
	Command        []string          `yaml:"command"`
	BuildCommand   []string          `yaml:"buildCommand,omitempty"`
	Artifact       string            `yaml:"artifact,omitempty"` // path produced by BuildCommand
	Dir            string            `yaml:"dir,omitempty"`
	Env            map[string]string `yaml:"env,omitempty"`
	Port           int               `yaml:"port,omitempty"`
	HealthPath     string            `yaml:"healthPath,omitempty"`
	SSL            bool              `yaml:"ssl,omitempty"`
	Classes        []string          `yaml:"classes,omitempty"` // restricts the build, always rebuilds
	PropertiesFile string            `yaml:"propertiesFile,omitempty"`
	Markers        `yaml:",inline"`
}

// Container runs an image with the configured container runtime.
type Container struct {
	Image   string            `yaml:"image"`
	Port    int               `yaml:"port,omitempty"`
	Command []string          `yaml:"command,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
	Markers `yaml:",inline"`
}

// Kubernetes deploys an image into the scenario namespace.
type Kubernetes struct {
	Image    string            `yaml:"image"`
	Port     int               `yaml:"port,omitempty"`
	Replicas int32             `yaml:"replicas,omitempty"`
	Command  []string          `yaml:"command,omitempty"`
	Template string            `yaml:"template,omitempty"` // manifest template file, defaults to the built-in one
	Env      map[string]string `yaml:"env,omitempty"`
	Markers  `yaml:",inline"`
}

// OpenShift deploys an image into the scenario project and exposes it.
type OpenShift struct {
	Kubernetes `yaml:",inline"`
	Route      bool   `yaml:"route,omitempty"`
	RoutePath  string `yaml:"routePath,omitempty"` // probed over the route before reporting ready
}

func (LocalApp) Kind() Kind   { return KindLocal }
func (Container) Kind() Kind  { return KindContainer }
func (Kubernetes) Kind() Kind { return KindKubernetes }
func (OpenShift) Kind() Kind  { return KindOpenShift }

func (LocalApp) declaration()   {}
func (Container) declaration()  {}
func (Kubernetes) declaration() {}
func (OpenShift) declaration()  {}

// Validate checks the declaration fields required by its kind.
func Validate(d Declaration) error {
	switch v := d.(type) {
	case nil:
		return errors.New("declaration is missing")
	case LocalApp:
		if len(v.Command) == 0 {
			return errors.New("local app declares no command")
		}
		if len(v.BuildCommand) > 0 && v.Artifact == "" {
			return errors.New("local app with a build command must name its artifact")
		}
	case Container:
		if v.Image == "" {
			return errors.New("container declares no image")
		}
	case Kubernetes:
		if v.Image == "" && v.Template == "" {
			return errors.New("kubernetes deployment needs an image or a template")
		}
	case OpenShift:
		if v.Image == "" && v.Template == "" {
			return errors.New("openshift deployment needs an image or a template")
		}
	default:
		return fmt.Errorf("unsupported declaration %T", d)
	}
	return nil
}

// Describe returns a short human readable form of a declaration.
func Describe(d Declaration) string {
	switch v := d.(type) {
	case LocalApp:
		if len(v.Command) == 0 {
			return "local"
		}
		return fmt.Sprintf("local %s", v.Command[0])
	case Container:
		return fmt.Sprintf("container %s", v.Image)
	case Kubernetes:
		return fmt.Sprintf("kubernetes %s", v.Image)
	case OpenShift:
		return fmt.Sprintf("openshift %s", v.Image)
	default:
		return "unknown"
	}
}

// Field is one declared service of a scenario.
type Field struct {
	Name        string
	Declaration Declaration
}
