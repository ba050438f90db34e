package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"gopkg.in/yaml.v3"

	"conductor/internal/binding"
	"conductor/internal/resource"
	"conductor/internal/services"
	"conductor/pkg/logging"
)

// File is the YAML form of a scenario class.
type File struct {
	Name     string        `yaml:"name"`
	Extends  string        `yaml:"extends,omitempty"` // path relative to this file
	Services []ServiceSpec `yaml:"services"`
}

// ServiceSpec declares one service. Exactly one backend section is set.
type ServiceSpec struct {
	Name       string              `yaml:"name"`
	AutoStart  *bool               `yaml:"autoStart,omitempty"`
	Properties map[string]string   `yaml:"properties,omitempty"`
	Local      *binding.LocalApp   `yaml:"local,omitempty"`
	Container  *binding.Container  `yaml:"container,omitempty"`
	Kubernetes *binding.Kubernetes `yaml:"kubernetes,omitempty"`
	OpenShift  *binding.OpenShift  `yaml:"openshift,omitempty"`
}

// Declaration returns the single backend declaration of the service.
func (s ServiceSpec) Declaration() (binding.Declaration, error) {
	var decls []binding.Declaration
	if s.Local != nil {
		decls = append(decls, *s.Local)
	}
	if s.Container != nil {
		decls = append(decls, *s.Container)
	}
	if s.Kubernetes != nil {
		decls = append(decls, *s.Kubernetes)
	}
	if s.OpenShift != nil {
		decls = append(decls, *s.OpenShift)
	}
	switch len(decls) {
	case 0:
		return nil, fmt.Errorf("service %s declares no backend (local, container, kubernetes or openshift)", s.Name)
	case 1:
		return decls[0], nil
	default:
		return nil, fmt.Errorf("service %s declares %d backends, expected one", s.Name, len(decls))
	}
}

// LoadClasses loads scenario classes from a YAML file or from every YAML
// file below a directory.
func LoadClasses(path string) ([]*Class, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("scenario path does not exist: %s", path)
		}
		return nil, fmt.Errorf("failed to stat scenario path: %w", err)
	}

	if !info.IsDir() {
		class, err := loadClassFile(path, map[string]bool{})
		if err != nil {
			return nil, err
		}
		return []*Class{class}, nil
	}

	var classes []*Class
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isYAMLFile(p) {
			return nil
		}
		logging.Debug("ScenarioLoader", "Loading scenario file %s", p)
		class, err := loadClassFile(p, map[string]bool{})
		if err != nil {
			return err
		}
		classes = append(classes, class)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %s: %w", path, err)
	}
	return classes, nil
}

func loadClassFile(path string, visiting map[string]bool) (*Class, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if visiting[abs] {
		return nil, fmt.Errorf("scenario %s extends itself", path)
	}
	visiting[abs] = true

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	file, err := ParseFile(content)
	if err != nil {
		return nil, fmt.Errorf("invalid scenario in %s: %w", path, err)
	}
	class, err := file.Class()
	if err != nil {
		return nil, fmt.Errorf("invalid scenario in %s: %w", path, err)
	}

	if file.Extends != "" {
		parentPath := file.Extends
		if !filepath.IsAbs(parentPath) {
			parentPath = filepath.Join(filepath.Dir(path), parentPath)
		}
		parent, err := loadClassFile(parentPath, visiting)
		if err != nil {
			return nil, fmt.Errorf("parent of %s: %w", path, err)
		}
		class.Extends(parent)
	}
	return class, nil
}

// ParseFile decodes and validates a scenario document.
func ParseFile(content []byte) (File, error) {
	var file File
	if err := yaml.Unmarshal(content, &file); err != nil {
		return file, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if file.Name == "" {
		return file, fmt.Errorf("scenario name is required")
	}
	seen := map[string]bool{}
	for i, spec := range file.Services {
		if spec.Name == "" {
			return file, fmt.Errorf("service %d: name is required", i+1)
		}
		if seen[spec.Name] {
			return file, fmt.Errorf("service %s declared twice", spec.Name)
		}
		seen[spec.Name] = true
		if _, err := spec.Declaration(); err != nil {
			return file, err
		}
	}
	return file, nil
}

// Class turns the file into a scenario class of BaseService fields.
// Property values containing "{{" are Go templates rendered right before the
// service starts; besides the sprig functions they can call
//
//	uri "<service>" "<protocol>"       the URI of a service declared earlier
//	property "<service>" "<key>"       a property of a service declared earlier
func (f File) Class() (*Class, error) {
	class := NewClass(f.Name)
	declared := map[string]*services.BaseService{}
	funcs := templateFuncs(declared)

	for _, spec := range f.Services {
		decl, err := spec.Declaration()
		if err != nil {
			return nil, err
		}
		svc := services.NewBaseService()
		if spec.AutoStart != nil {
			svc.WithAutoStart(*spec.AutoStart)
		}
		for key, value := range spec.Properties {
			if !strings.Contains(value, "{{") {
				svc.WithProperty(key, value)
				continue
			}
			tmpl, err := template.New(spec.Name + "/" + key).Funcs(funcs).Option("missingkey=error").Parse(value)
			if err != nil {
				return nil, fmt.Errorf("service %s property %s: %w", spec.Name, key, err)
			}
			svc.WithFutureProperty(key, func() (string, error) {
				var buf bytes.Buffer
				if err := tmpl.Execute(&buf, nil); err != nil {
					return "", err
				}
				return buf.String(), nil
			})
		}
		declared[spec.Name] = svc
		class.Service(spec.Name, svc, decl)
	}
	return class, nil
}

func templateFuncs(declared map[string]*services.BaseService) template.FuncMap {
	funcs := sprig.TxtFuncMap()
	funcs["uri"] = func(name, protocol string) (string, error) {
		svc, ok := declared[name]
		if !ok {
			return "", fmt.Errorf("unknown service %s", name)
		}
		uri, err := svc.URI(resource.Protocol(protocol))
		if err != nil {
			return "", err
		}
		return uri.String(), nil
	}
	funcs["property"] = func(name, key string) (string, error) {
		svc, ok := declared[name]
		if !ok {
			return "", fmt.Errorf("unknown service %s", name)
		}
		v, ok := svc.GetProperties().Get(key)
		if !ok {
			return "", fmt.Errorf("service %s has no property %s", name, key)
		}
		return v, nil
	}
	return funcs
}

// isYAMLFile checks if a file has a YAML extension
func isYAMLFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
