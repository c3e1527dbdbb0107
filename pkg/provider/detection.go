package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kaptinlin/jsonrepair"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func detectionSchemaValidator() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(detectionSchema))
		if err != nil {
			schemaErr = fmt.Errorf("invalid detection schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("detection.json", doc); err != nil {
			schemaErr = fmt.Errorf("invalid detection schema: %w", err)
			return
		}
		schema, schemaErr = c.Compile("detection.json")
	})
	return schema, schemaErr
}

// decodeDetection is the second decode stage: content is the string the
// model produced, which must itself be a JSON detection document. A
// surrounding code fence is stripped. A document that still fails a strict
// parse gets one jsonrepair pass, but only when it is structurally complete;
// a document cut off mid-generation is rejected rather than closed.
func decodeDetection(content string) (*DetectionResult, error) {
	doc := strings.TrimSpace(content)
	if doc == "" {
		return nil, malformed("", StageContent, nil, "detection document is empty")
	}

	doc, repaired := stripCodeFence(doc)
	v, err := jsonschema.UnmarshalJSON(strings.NewReader(doc))
	if err != nil {
		if !structurallyComplete(doc) {
			return nil, malformed("", StageContent, err, "detection document is not valid JSON")
		}
		fixed, repairErr := jsonrepair.JSONRepair(doc)
		if repairErr != nil {
			return nil, malformed("", StageContent, err, "detection document is not valid JSON")
		}
		v, err = jsonschema.UnmarshalJSON(strings.NewReader(fixed))
		if err != nil {
			return nil, malformed("", StageContent, err, "detection document is not valid JSON")
		}
		doc = fixed
		repaired = true
	}

	sch, err := detectionSchemaValidator()
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(v); err != nil {
		return nil, malformed("", StageContent, err, "unexpected detection structure: %s", oneLine(err.Error()))
	}

	var res DetectionResult
	if err := json.Unmarshal([]byte(doc), &res); err != nil {
		return nil, malformed("", StageContent, err, "%s", describeDecodeError(err))
	}
	res.Repaired = repaired
	return &res, nil
}

// describeDecodeError turns encoding/json errors into a short message naming
// the offending field.
func describeDecodeError(err error) string {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &syntaxErr):
		return fmt.Sprintf("invalid JSON at offset %d", syntaxErr.Offset)
	case errors.As(err, &typeErr):
		if typeErr.Field == "" {
			return fmt.Sprintf("expected a JSON object, got %s", typeErr.Value)
		}
		return fmt.Sprintf("field %s has type %s, want %s", typeErr.Field, typeErr.Value, typeErr.Type)
	}
	return "invalid JSON"
}

// stripCodeFence removes a markdown code fence wrapping the whole document.
// An opening fence without a closing one is left in place.
func stripCodeFence(doc string) (string, bool) {
	if !strings.HasPrefix(doc, "```") || !strings.HasSuffix(doc, "```") || len(doc) < 6 {
		return doc, false
	}
	body := strings.TrimSuffix(doc, "```")
	nl := strings.IndexByte(body, '\n')
	if nl < 0 {
		return doc, false
	}
	return strings.TrimSpace(body[nl+1:]), true
}

// structurallyComplete reports whether doc is a single object whose strings
// are all terminated and whose containers are all closed in order, with only
// double-quoted strings. Trailing commas and similar slips pass; truncation
// and single quotes do not.
func structurallyComplete(doc string) bool {
	if !strings.HasPrefix(doc, "{") {
		return false
	}
	var (
		stack    []byte
		inString bool
		escaped  bool
	)
	for i := 0; i < len(doc); i++ {
		c := doc[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '\'':
			return false
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 && strings.TrimSpace(doc[i+1:]) != "" {
				return false
			}
		}
	}
	return len(stack) == 0 && !inString
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
