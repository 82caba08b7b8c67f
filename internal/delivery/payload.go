package delivery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/roach88/deliver/internal/ir"
)

// responseSchemaJSON describes a response submission: each response
// identifier maps to a list of strings or to an uploaded file.
const responseSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "propertyNames": {"pattern": "^[A-Za-z_][A-Za-z0-9_.-]*$"},
  "additionalProperties": {
    "oneOf": [
      {"type": "array", "items": {"type": "string"}},
      {
        "type": "object",
        "required": ["file"],
        "properties": {
          "file": {"type": "string", "minLength": 1},
          "contentType": {"type": "string"}
        },
        "additionalProperties": false
      }
    ]
  }
}`

var responseSchema = mustCompileSchema(responseSchemaJSON, "response.schema.json")

func mustCompileSchema(raw, name string) *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(raw)))
	if err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}
	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

type filePayload struct {
	File        string `json:"file"`
	ContentType string `json:"contentType"`
}

// ParseResponsePayload parses a JSON response submission such as
//
//	{"RESPONSE": ["B"], "ESSAY": {"file": "/tmp/up.pdf", "contentType": "application/pdf"}}
//
// File submissions get a fresh id. A payload that does not match the
// response schema fails with KindBadPayload.
func ParseResponsePayload(data []byte) (map[string]ir.ResponseData, error) {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, badPayload("response payload is not JSON: %v", err)
	}
	if err := responseSchema.Validate(inst); err != nil {
		return nil, badPayload("response payload: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, badPayload("response payload: %v", err)
	}
	out := make(map[string]ir.ResponseData, len(raw))
	for id, msg := range raw {
		msg = bytes.TrimSpace(msg)
		if len(msg) > 0 && msg[0] == '[' {
			var values []string
			if err := json.Unmarshal(msg, &values); err != nil {
				return nil, badPayload("response %q: %v", id, err)
			}
			out[id] = ir.StringResponse(values...)
			continue
		}
		var fp filePayload
		if err := json.Unmarshal(msg, &fp); err != nil {
			return nil, badPayload("response %q: %v", id, err)
		}
		out[id] = ir.ResponseData{
			Type: ir.ResponseFile,
			File: &ir.FileSubmission{ID: uuid.NewString(), Path: fp.File, ContentType: fp.ContentType},
		}
	}
	return out, nil
}

// checkResponses rejects response data that no binding could make sense of.
func checkResponses(responses map[string]ir.ResponseData) error {
	ids := make([]string, 0, len(responses))
	for id := range responses {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if id == "" {
			return badPayload("empty response identifier")
		}
		data := responses[id]
		switch data.Type {
		case ir.ResponseString:
			if data.File != nil {
				return badPayload("response %q: string response carries a file", id)
			}
		case ir.ResponseFile:
			if data.File == nil || data.File.Path == "" {
				return badPayload("response %q: file response without a file", id)
			}
		default:
			return badPayload("response %q: unknown data type %q", id, data.Type)
		}
	}
	return nil
}
