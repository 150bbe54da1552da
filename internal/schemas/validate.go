// Package schemas validates model output at the trust boundary before it becomes typed data.
package schemas

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"resumeforensics/internal/types"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed analysis_result.schema.json
var analysisResultSchema string

//go:embed prep_deck.schema.json
var prepDeckSchema string

// PrepDeckSize is the number of questions a prep deck must contain.
const PrepDeckSize = 15

var (
	schemaOnce     sync.Once
	analysisLoader *gojsonschema.Schema
	prepDeckLoader *gojsonschema.Schema
	schemaLoadErr  error

	validate = newStructValidator()
)

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// HasField reports whether any error points at field.
func (ve *ValidationError) HasField(field string) bool {
	for _, e := range ve.Errors {
		if e.Field == field || strings.HasPrefix(e.Field, field+".") {
			return true
		}
	}
	return false
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Name    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Name, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Name, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

func loadSchemas() error {
	schemaOnce.Do(func() {
		var err error
		analysisLoader, err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(analysisResultSchema))
		if err != nil {
			schemaLoadErr = &SchemaLoadError{Name: "analysis_result", Message: "invalid schema", Cause: err}
			return
		}
		prepDeckLoader, err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(prepDeckSchema))
		if err != nil {
			schemaLoadErr = &SchemaLoadError{Name: "prep_deck", Message: "invalid schema", Cause: err}
		}
	})
	return schemaLoadErr
}

// validateJSONString validates JSON string content against schema string content
func validateJSONString(schemaContent, jsonContent string) error {
	schemaLoader := gojsonschema.NewStringLoader(schemaContent)
	documentLoader := gojsonschema.NewStringLoader(jsonContent)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &SchemaLoadError{
			Name:    "(string schema)",
			Message: "schema validation failed during load",
			Cause:   err,
		}
	}
	return resultToError(result)
}

func resultToError(result *gojsonschema.Result) error {
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if desc.Type() == "required" {
			if prop, ok := desc.Details()["property"].(string); ok {
				if field == "" || field == "(root)" {
					field = prop
				} else {
					field = field + "." + prop
				}
			}
		}
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}

func validateAgainst(schema *gojsonschema.Schema, raw []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		// The document is not JSON at all.
		return &ValidationError{Errors: []FieldError{{Field: "(root)", Message: err.Error()}}}
	}
	return resultToError(result)
}

// ParseAnalysisResult validates raw model output and decodes it into an AnalysisResult.
// Any missing required field, unknown enum value or out-of-range score rejects the
// whole document; nothing is partially accepted.
func ParseAnalysisResult(raw []byte) (*types.AnalysisResult, error) {
	if err := loadSchemas(); err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, &ValidationError{Errors: []FieldError{{Field: "(root)", Message: "empty response"}}}
	}

	if err := validateAgainst(analysisLoader, raw); err != nil {
		return nil, err
	}

	var result types.AnalysisResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &ValidationError{Errors: []FieldError{{Field: "(root)", Message: err.Error()}}}
	}

	if err := ValidateStruct(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ParsePrepDeck validates and decodes a prep deck of exactly PrepDeckSize questions.
func ParsePrepDeck(raw []byte) ([]types.InterviewQuestion, error) {
	if err := loadSchemas(); err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if err := validateAgainst(prepDeckLoader, raw); err != nil {
		return nil, err
	}

	var deck types.PrepDeck
	if err := json.Unmarshal(raw, &deck.Questions); err != nil {
		return nil, &ValidationError{Errors: []FieldError{{Field: "(root)", Message: err.Error()}}}
	}
	if err := ValidateStruct(&deck); err != nil {
		return nil, err
	}
	return deck.Questions, nil
}

// ValidateStruct runs struct-tag validation and converts failures to a ValidationError.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	validationErr := &ValidationError{Errors: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   trimRootNamespace(fe.Namespace()),
			Message: fmt.Sprintf("failed '%s' check (value: %v)", fe.Tag(), fe.Value()),
		})
	}
	return validationErr
}

func trimRootNamespace(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

var bulletRisks = map[types.BulletRisk]bool{
	types.BulletRiskSafe:          true,
	types.BulletRiskNeedsEvidence: true,
	types.BulletRiskHigh:          true,
}

func newStructValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("bulletrisk", func(fl validator.FieldLevel) bool {
		return bulletRisks[types.BulletRisk(fl.Field().String())]
	})
	return v
}
