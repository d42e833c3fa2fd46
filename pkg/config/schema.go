package config

import (
	"bytes"
	_ "embed"
	stdjson "encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema.json
var schemaJSON string

const schemaURL = "asaclean.schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func schema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaJSON))
		if err != nil {
			schemaErr = fmt.Errorf("parse embedded schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("add embedded schema: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}

// SchemaError reports a config file that does not match the schema.
type SchemaError struct {
	Path string
	Err  error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s does not match the config schema: %v", e.Path, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// ValidateFile parses path with the parser for its extension and checks the
// raw document against the embedded schema. Unknown keys and wrongly typed
// values are rejected here, before defaults are merged in.
func ValidateFile(path string) error {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return validateRaw(path, k.Raw())
}

func validateRaw(path string, raw map[string]interface{}) error {
	sch, err := schema()
	if err != nil {
		return err
	}

	// Round-trip through JSON so every parser's number types look alike.
	data, err := stdjson.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to normalize %s: %w", path, err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to normalize %s: %w", path, err)
	}

	if err := sch.Validate(inst); err != nil {
		return &SchemaError{Path: path, Err: err}
	}
	return nil
}
