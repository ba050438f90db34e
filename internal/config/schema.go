package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"sigs.k8s.io/yaml"
)

//go:embed schema.json
var schemaDocument string

const schemaURL = "conductor://config/schema.json"

var (
	compiledSchema     *jsonschema.Schema
	compiledSchemaErr  error
	compiledSchemaOnce sync.Once
)

func configSchema() (*jsonschema.Schema, error) {
	compiledSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, strings.NewReader(schemaDocument)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, compiledSchemaErr = compiler.Compile(schemaURL)
	})
	return compiledSchema, compiledSchemaErr
}

// ValidateDocument checks a raw YAML configuration document against the
// embedded schema.
func ValidateDocument(raw []byte) error {
	schema, err := configSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	jsonData, err := yaml.YAMLToJSON(raw)
	if err != nil {
		return fmt.Errorf("convert YAML to JSON: %w", err)
	}

	var payload any
	if err := json.Unmarshal(jsonData, &payload); err != nil {
		return err
	}
	if payload == nil {
		// empty document
		return nil
	}
	return schema.Validate(payload)
}
