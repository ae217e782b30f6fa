package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// decisionSchema is the strict JSON Schema every Decision Document must
// satisfy. The stop-placement invariant is checked separately in Go because
// it relates elements to each other, which JSON Schema expresses poorly.
const decisionSchema = `{
	"type": "object",
	"required": ["mode", "actions"],
	"additionalProperties": false,
	"properties": {
		"mode": {"type": "string", "enum": ["parallel", "sequential"]},
		"actions": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["tool", "args"],
				"additionalProperties": false,
				"properties": {
					"tool": {"type": "string", "minLength": 1},
					"args": {"type": "object"}
				}
			}
		},
		"reasoning": {"type": "string"}
	}
}`

var compiledDecisionSchema *gojsonschema.Schema

func init() {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(decisionSchema))
	if err != nil {
		panic(fmt.Sprintf("agent: invalid embedded decision schema: %v", err))
	}
	compiledDecisionSchema = schema
}

// ValidationError reports why a model response failed to validate as a
// Decision Document. It is recovered locally by the retry sub-loop.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "invalid decision document: " + strings.Join(e.Violations, "; ")
}

// CorrectionMessage formats the corrective message appended to the
// conversation before the retry model call. It names the exact violated
// rules and restates the expected format.
func (e *ValidationError) CorrectionMessage() string {
	var sb strings.Builder
	sb.WriteString("Your previous response was not a valid decision document. Problems:\n")
	for _, v := range e.Violations {
		sb.WriteString("- ")
		sb.WriteString(v)
		sb.WriteString("\n")
	}
	sb.WriteString("\nRespond with ONLY a JSON object of this shape:\n")
	sb.WriteString(`{"mode": "parallel" | "sequential", "actions": [{"tool": "<name>", "args": {...}}], "reasoning": "<optional text>"}`)
	sb.WriteString("\nRules: \"stop\" may only appear in sequential mode, and must be the only action or the last one. An empty actions array means you are done.")
	return sb.String()
}

// ExtractJSON strips Markdown code fences and surrounding prose from a raw
// model response, returning the JSON object text.
func ExtractJSON(raw string) (string, error) {
	text := strings.TrimSpace(raw)

	// Strip a wrapping code fence (``` or ```json).
	if strings.HasPrefix(text, "```") {
		if idx := strings.Index(text, "\n"); idx >= 0 {
			text = text[idx+1:]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object found in response")
	}
	return text[start : end+1], nil
}

// ValidateDecision parses and validates a raw model response into a
// DecisionDocument. Any failure returns a *ValidationError naming the
// violated rules.
func ValidateDecision(raw string) (*DecisionDocument, error) {
	text, err := ExtractJSON(raw)
	if err != nil {
		return nil, &ValidationError{Violations: []string{"the response must contain a JSON object"}}
	}

	result, err := compiledDecisionSchema.Validate(gojsonschema.NewStringLoader(text))
	if err != nil {
		// Loader-level failure means the text is not valid JSON at all.
		return nil, &ValidationError{Violations: []string{"the response is not valid JSON: " + err.Error()}}
	}
	if !result.Valid() {
		violations := make([]string, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			violations = append(violations, re.String())
		}
		return nil, &ValidationError{Violations: violations}
	}

	var doc DecisionDocument
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, &ValidationError{Violations: []string{"the response is not valid JSON: " + err.Error()}}
	}

	if violations := checkStopPlacement(&doc); len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	return &doc, nil
}

// checkStopPlacement enforces the stop invariant: a stop sentinel is
// sequential-only and must be the only action or the last one. A stop mixed
// into a parallel batch is a hard error, not silently dropped.
func checkStopPlacement(doc *DecisionDocument) []string {
	var violations []string
	for i, a := range doc.Actions {
		if !a.IsStop() {
			continue
		}
		if doc.Mode == ModeParallel {
			violations = append(violations, `"stop" cannot be combined with parallel mode; use sequential`)
		}
		if i != len(doc.Actions)-1 {
			violations = append(violations, `"stop" must be the only action or the last one`)
		}
	}
	return violations
}
