package kubernetes

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/util/validation"
	"sigs.k8s.io/yaml"
)

// Labels put on every deployed object.
const (
	LabelName      = "app.kubernetes.io/name"
	LabelManagedBy = "app.kubernetes.io/managed-by"
	LabelScenario  = "conductor.io/scenario"
	ManagedBy      = "conductor"
)

//go:embed manifests/deployment.yaml.tmpl
var defaultTemplate string

// ManifestData is the input of a manifest template.
type ManifestData struct {
	Name        string
	Namespace   string
	Image       string
	Port        int
	Replicas    int32
	Command     []string
	Env         map[string]string
	Labels      map[string]string
	SelectorKey string
}

var documentSeparator = regexp.MustCompile(`(?m)^---\s*$`)

// RenderManifests executes the manifest template, the built-in one when
// text is empty, and decodes every YAML document it produces.
func RenderManifests(text string, data ManifestData) ([]*unstructured.Unstructured, error) {
	if text == "" {
		text = defaultTemplate
	}
	if data.SelectorKey == "" {
		data.SelectorKey = LabelName
	}

	tmpl, err := template.New("manifest").Funcs(sprig.TxtFuncMap()).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render manifest template: %w", err)
	}

	var objs []*unstructured.Unstructured
	for i, doc := range documentSeparator.Split(buf.String(), -1) {
		if strings.TrimSpace(doc) == "" {
			continue
		}
		raw, err := yaml.YAMLToJSON([]byte(doc))
		if err != nil {
			return nil, fmt.Errorf("failed to decode manifest document %d: %w", i, err)
		}
		if string(raw) == "null" {
			continue
		}
		obj := &unstructured.Unstructured{}
		if err := obj.UnmarshalJSON(raw); err != nil {
			return nil, fmt.Errorf("invalid manifest document %d: %w", i, err)
		}
		objs = append(objs, obj)
	}
	if len(objs) == 0 {
		return nil, fmt.Errorf("manifest template rendered no objects")
	}
	return objs, nil
}

// LoadTemplate reads a manifest template file.
func LoadTemplate(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read manifest template %s: %w", path, err)
	}
	return string(data), nil
}

var (
	invalidNameChars  = regexp.MustCompile(`[^a-z0-9-]+`)
	invalidLabelChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// ResourceName turns a service name into a DNS-1123 label.
func ResourceName(serviceName string) (string, error) {
	name := strings.ToLower(serviceName)
	if i := strings.LastIndex(name, ":"); i >= 0 && i < len(name)-1 {
		name = name[i+1:]
	}
	name = invalidNameChars.ReplaceAllString(name, "-")
	if len(name) > validation.DNS1123LabelMaxLength {
		name = name[:validation.DNS1123LabelMaxLength]
	}
	name = strings.Trim(name, "-")
	if errs := validation.IsDNS1123Label(name); len(errs) > 0 {
		return "", fmt.Errorf("service name %q cannot be used as a resource name: %s", serviceName, strings.Join(errs, "; "))
	}
	return name, nil
}

// LabelValue makes s usable as a label value.
func LabelValue(s string) string {
	v := invalidLabelChars.ReplaceAllString(s, "-")
	if len(v) > validation.LabelValueMaxLength {
		v = v[:validation.LabelValueMaxLength]
	}
	return strings.Trim(v, "-_.")
}
