package generation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Response schemas for the structured calls. The same maps are sent to the
// provider and used to validate the reply.
var (
	analysisSchema = map[string]any{
		"type": "object",
		"properties": map[string]any{
			"isCorrect":   map[string]any{"type": "boolean"},
			"output":      map[string]any{"type": "string"},
			"explanation": map[string]any{"type": "string"},
			"suggestion":  map[string]any{"type": "string"},
		},
		"required": []any{"isCorrect", "output", "explanation", "suggestion"},
	}

	exerciseSchema = map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":       map[string]any{"type": "string", "minLength": 1},
			"description": map[string]any{"type": "string", "minLength": 1},
			"difficulty":  map[string]any{"type": "string", "enum": []any{"Easy", "Medium", "Hard"}},
			"initialCode": map[string]any{"type": "string"},
			"hint":        map[string]any{"type": "string"},
		},
		"required": []any{"title", "description", "difficulty", "initialCode", "hint"},
	}

	quizSchema = map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question": map[string]any{"type": "string", "minLength": 1},
			"options": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"minItems": 4,
				"maxItems": 4,
			},
			"correctAnswerIndex": map[string]any{"type": "integer", "minimum": 0, "maximum": 3},
			"explanation":        map[string]any{"type": "string"},
		},
		"required": []any{"question", "options", "correctAnswerIndex", "explanation"},
	}
)

// validator checks model replies against one response schema
type validator struct {
	name   string
	raw    map[string]any
	schema *gojsonschema.Schema
}

func mustValidator(name string, raw map[string]any) *validator {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("compile %s schema: %v", name, err))
	}
	return &validator{name: name, raw: raw, schema: schema}
}

var (
	analysisValidator = mustValidator("analysis", analysisSchema)
	exerciseValidator = mustValidator("exercise", exerciseSchema)
	quizValidator     = mustValidator("quiz", quizSchema)
)

// decode extracts the JSON object from a reply, validates it against the
// schema and unmarshals it into out.
func (v *validator) decode(reply string, out any) error {
	doc := extractJSON(reply)
	if doc == "" {
		return fmt.Errorf("%w: %s reply has no JSON object", ErrMalformedResponse, v.name)
	}

	result, err := v.schema.Validate(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %s reply: %v", ErrMalformedResponse, v.name, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s reply: %s", ErrSchemaViolation, v.name, strings.Join(msgs, "; "))
	}

	if err := json.Unmarshal([]byte(doc), out); err != nil {
		return fmt.Errorf("%w: %s reply: %v", ErrMalformedResponse, v.name, err)
	}
	return nil
}

// extractJSON returns the outermost JSON object in s, tolerating markdown
// fences and prose around it.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}
