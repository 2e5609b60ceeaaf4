package contracts

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"homefind-backend/internal/pkg/validation"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Payload schema names.
const (
	ListingCreate = "listing-create"
	ListingUpdate = "listing-update"
)

const schemaBase = "https://homefind.app/schemas/"

//go:embed schemas/*.json
var schemaFS embed.FS

var compiled = mustCompile()

func mustCompile() map[string]*jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7

	files, err := fs.Glob(schemaFS, "schemas/*.json")
	if err != nil {
		panic(err)
	}
	// Register everything first so schemas can $ref each other.
	for _, f := range files {
		file, err := schemaFS.Open(f)
		if err != nil {
			panic(err)
		}
		if err := compiler.AddResource(schemaBase+path.Base(f), file); err != nil {
			panic(fmt.Sprintf("add schema %s: %v", f, err))
		}
		file.Close()
	}

	out := make(map[string]*jsonschema.Schema, len(files))
	for _, f := range files {
		name := strings.TrimSuffix(path.Base(f), ".json")
		s, err := compiler.Compile(schemaBase + path.Base(f))
		if err != nil {
			panic(fmt.Sprintf("compile schema %s: %v", f, err))
		}
		out[name] = s
	}
	return out
}

// Validate checks a raw JSON body against the named schema. Schema violations
// wrap validation.ErrInvalid and name the offending field.
func Validate(name string, body []byte) error {
	schema, ok := compiled[name]
	if !ok {
		return fmt.Errorf("schema %q not found", name)
	}
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return validation.Failf("Request body is not valid JSON")
	}
	if err := schema.Validate(v); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return validation.Failf("%s", describe(ve))
		}
		return fmt.Errorf("validate %s: %w", name, err)
	}
	return nil
}

// describe reports the deepest cause, e.g. "price: must be > 0 but found 0".
func describe(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	field := strings.TrimPrefix(ve.InstanceLocation, "/")
	field = strings.ReplaceAll(field, "/", ".")
	if field == "" {
		return ve.Message
	}
	return field + ": " + ve.Message
}
