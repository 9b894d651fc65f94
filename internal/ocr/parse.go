package ocr

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pdfscan/pdfscan/internal/document"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const replySchemaJSON = `{
  "type": "object",
  "properties": {
    "patientName": {"type": ["string", "null"]},
    "dateOfBirth": {"type": ["string", "null"]},
    "allText": {"type": "string"}
  },
  "required": ["patientName", "dateOfBirth", "allText"]
}`

var (
	schemaOnce  sync.Once
	replySchema *jsonschema.Schema
	schemaErr   error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("reply.json", strings.NewReader(replySchemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		replySchema, schemaErr = compiler.Compile("reply.json")
	})
	return replySchema, schemaErr
}

type reply struct {
	PatientName *string `json:"patientName"`
	DateOfBirth *string `json:"dateOfBirth"`
	AllText     string  `json:"allText"`
}

// ParseReply converts the model's text reply into a Result. A reply that is
// not JSON of the expected shape still yields a Result: the raw text becomes
// the extracted text and both structured fields are nil.
func ParseReply(raw string) *Result {
	trimmed := strings.TrimSpace(raw)
	r, err := decodeReply(stripFences(trimmed))
	if err != nil {
		return &Result{Text: trimmed, Patient: document.PatientData{}}
	}
	text := strings.TrimSpace(r.AllText)
	if text == "" {
		text = trimmed
	}
	return &Result{
		Text: text,
		Patient: document.PatientData{
			Name:        cleanName(r.PatientName),
			DateOfBirth: NormalizeDate(r.DateOfBirth),
		},
		Structured: true,
	}
}

func decodeReply(s string) (*reply, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	schema, err := compiledSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("reply does not match schema: %w", err)
	}
	var r reply
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// stripFences removes a surrounding ```json ... ``` block.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func cleanName(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.Join(strings.Fields(*p), " ")
	if s == "" || isNullWord(s) {
		return nil
	}
	return &s
}

func isNullWord(s string) bool {
	switch strings.ToLower(s) {
	case "null", "none", "n/a", "unknown", "not found":
		return true
	}
	return false
}
