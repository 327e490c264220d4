package forms

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/parisxmas/sangha/internal/models"
)

// AnswerSchema builds a JSON Schema describing the shape of a submission's
// answer map. It checks JSON types only; required-ness is handled by
// ValidatePage so that errors come back per page.
func AnswerSchema(tmpl *models.FormTemplate) map[string]any {
	props := map[string]any{}
	for _, q := range tmpl.Questions {
		if !q.QuestionType.CollectsAnswer() {
			continue
		}
		switch q.QuestionType {
		case models.QuestionNumber:
			props[q.ID] = map[string]any{"type": []string{"number", "string", "null"}}
		case models.QuestionCheckbox:
			props[q.ID] = map[string]any{
				"type":  []string{"array", "boolean", "string", "null"},
				"items": map[string]any{"type": "string"},
			}
		case models.QuestionRadio, models.QuestionDropdown:
			enum := make([]any, 0, len(q.Options)+2)
			for _, o := range q.Options {
				enum = append(enum, o)
			}
			enum = append(enum, "", nil)
			props[q.ID] = map[string]any{"enum": enum}
		default:
			props[q.ID] = map[string]any{"type": []string{"string", "null"}}
		}
	}
	return map[string]any{
		"$schema":    "https://json-schema.org/draft/2020-12/schema",
		"type":       "object",
		"properties": props,
	}
}

// CheckAnswerTypes validates answers against AnswerSchema.
func CheckAnswerTypes(tmpl *models.FormTemplate, answers map[string]any) error {
	raw, err := json.Marshal(AnswerSchema(tmpl))
	if err != nil {
		return fmt.Errorf("answer schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := "https://sangha.local/forms/" + tmpl.ID + ".schema.json"
	if err := c.AddResource(url, strings.NewReader(string(raw))); err != nil {
		return fmt.Errorf("answer schema load: %w", err)
	}
	schema, err := c.Compile(url)
	if err != nil {
		return fmt.Errorf("answer schema compile: %w", err)
	}

	// The validator only understands decoded JSON values.
	data, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("answers: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("answers: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return schema.Validate(doc)
}
