package store

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed course.schema.json
var courseSchemaJSON []byte

var courseSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(courseSchemaJSON))
})

// SchemaError lists every way a document breaks the course schema.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return "schema violation: " + strings.Join(e.Problems, "; ")
}

func (e *SchemaError) Unwrap() error {
	return ErrSchemaViolation
}

// Validate checks a raw course document against the persisted schema.
// Absent required fields are reported even when every sequence is empty.
func Validate(doc []byte) error {
	schema, err := courseSchema()
	if err != nil {
		return fmt.Errorf("compile course schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return &SchemaError{Problems: []string{fmt.Sprintf("invalid document: %v", err)}}
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		problems = append(problems, re.String())
	}
	return &SchemaError{Problems: problems}
}
