package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"

	gjsonschema "github.com/google/jsonschema-go/jsonschema"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/wilhg/adformats/pkg/adformat"
)

// eventsRequest is the body of PUT /api/ad-formats/{id}/events.
type eventsRequest struct {
	Events []adformat.EventLabel `json:"events" jsonschema:"replacement event labels for the ad format"`
}

const eventsSchemaURL = "mem://adformats/events-request.json"

// compileSchema derives a JSON schema from T and compiles it for validation.
func compileSchema[T any](url string) (*jsonschema.Schema, error) {
	gen, err := gjsonschema.For[T](nil)
	if err != nil {
		return nil, fmt.Errorf("derive schema: %w", err)
	}
	raw, err := json.Marshal(gen)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, err
	}
	return c.Compile(url)
}

// decodeValidated checks body against sch before decoding it into dst.
func decodeValidated(sch *jsonschema.Schema, body []byte, dst any) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("malformed JSON: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		return err
	}
	return json.Unmarshal(body, dst)
}
