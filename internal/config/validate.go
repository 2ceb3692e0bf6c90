package config

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON string

var loadSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
})

// ValidateSettings validates raw config settings, as returned by
// viper.AllSettings, against the embedded JSON schema.
func ValidateSettings(settings map[string]any) error {
	schema, err := loadSchema()
	if err != nil {
		return fmt.Errorf("load config schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(settings))
	if err != nil {
		return fmt.Errorf("validate config schema: %w", err)
	}
	if result.Valid() {
		return nil
	}

	errs := make([]string, 0, len(result.Errors()))
	for _, schemaErr := range result.Errors() {
		errs = append(errs, schemaErr.String())
	}
	slices.Sort(errs)

	return fmt.Errorf("config schema validation failed: %s", strings.Join(errs, "; "))
}
