// Package schemas provides JSON Schema validation for stage payloads at the
// artifact-read boundary. Payloads loaded from disk are checked here before
// anything downstream trusts their shape.
package schemas

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed *.schema.json
var schemaFiles embed.FS

var (
	compiled   = make(map[string]*gojsonschema.Schema)
	compiledMu sync.Mutex
)

// ValidationError reports schema violations with field paths.
type ValidationError struct {
	Schema string
	Errors []FieldError
}

// FieldError is a single violation at a specific field.
type FieldError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return fmt.Sprintf("payload failed %s schema validation: %s", e.Schema, strings.Join(msgs, "; "))
}

// Validate checks a JSON payload against the named schema (e.g.
// "jd_analysis"). Stages without a registered schema validate trivially,
// extra keys are always permitted.
func Validate(name string, payload []byte) error {
	schema, ok, err := load(name)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return fmt.Errorf("failed to validate payload against %s schema: %w", name, err)
	}
	if result.Valid() {
		return nil
	}

	verr := &ValidationError{Schema: name}
	for _, re := range result.Errors() {
		verr.Errors = append(verr.Errors, FieldError{
			Field:   re.Field(),
			Message: re.Description(),
		})
	}
	return verr
}

// load compiles and caches the schema for a name. The second return is false
// when no schema file exists for the name.
func load(name string) (*gojsonschema.Schema, bool, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()

	if schema, ok := compiled[name]; ok {
		return schema, true, nil
	}

	data, err := schemaFiles.ReadFile(name + ".schema.json")
	if err != nil {
		return nil, false, nil
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, false, fmt.Errorf("failed to compile %s schema: %w", name, err)
	}
	compiled[name] = schema
	return schema, true, nil
}
