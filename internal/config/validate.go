package config

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON string

var settingsSchema = gojsonschema.NewStringLoader(schemaJSON)

// ErrInvalidConfig is wrapped by ValidateSettings when the settings break the schema.
var ErrInvalidConfig = errors.New("invalid researchloop config")

// ValidateSettings checks raw settings read from source (a file path, or
// "defaults") against the embedded schema. Each violation is reported as
// "<key>: <reason>" in key order.
func ValidateSettings(source string, settings map[string]any) error {
	result, err := gojsonschema.Validate(settingsSchema, gojsonschema.NewGoLoader(settings))
	if err != nil {
		return fmt.Errorf("validate %s: %w", source, err)
	}
	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, schemaErr := range result.Errors() {
		violations = append(violations, schemaErr.Field()+": "+schemaErr.Description())
	}
	sort.Strings(violations)

	return fmt.Errorf("%w %s: %s", ErrInvalidConfig, source, strings.Join(violations, "; "))
}
