package restcall

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/boat-builder/opspod"
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type Location int

const (
	InQuery Location = iota
	InPath
)

// Param is one tool argument.
type Param struct {
	// Name is the argument name seen by the model.
	Name string
	// Key is the query key sent upstream; defaults to Name.
	Key         string
	Description string
	// Type is a JSON schema type; defaults to "string".
	Type     string
	Required bool
	In       Location
	Enum     []any
}

func (p Param) queryKey() string {
	if p.Key != "" {
		return p.Key
	}
	return p.Name
}

func (p Param) schemaType() string {
	if p.Type != "" {
		return p.Type
	}
	return "string"
}

// BodyArg is the argument carrying the JSON request body.
const BodyArg = "body"

// Endpoint describes one REST endpoint exposed as a tool.
type Endpoint struct {
	Name          string
	Description   string
	StatusMessage string
	Method        string
	// Path may contain {placeholders}, each bound to an InPath param.
	Path   string
	Params []Param
	// Body, when non-empty, describes the JSON object passed as the body argument.
	Body         string
	BodyRequired bool
}

var placeholderPattern = regexp.MustCompile(`\{([^}]+)\}`)

// BuildRequest turns model arguments into a Request. Query parameters contain
// exactly the supplied arguments; absent and null arguments are left out.
func (e Endpoint) BuildRequest(args Args) (Request, error) {
	req := Request{
		Method: e.method(),
		Path:   e.Path,
		Query:  url.Values{},
	}

	for _, p := range e.Params {
		value, ok := args.Lookup(p.Name)
		if !ok {
			if p.Required {
				return Request{}, opspod.NewRetryableError("missing required argument %q", p.Name)
			}
			continue
		}
		switch p.In {
		case InPath:
			s := FormatValue(value)
			if s == "" {
				return Request{}, opspod.NewRetryableError("argument %q must not be empty", p.Name)
			}
			req.Path = strings.ReplaceAll(req.Path, "{"+p.Name+"}", url.PathEscape(s))
		default:
			for _, s := range FormatValues(value) {
				req.Query.Add(p.queryKey(), s)
			}
		}
	}

	if missing := placeholderPattern.FindString(req.Path); missing != "" {
		return Request{}, opspod.NewRetryableError("missing path argument %s", missing)
	}

	if e.Body != "" {
		body, ok := args.Lookup(BodyArg)
		switch {
		case ok:
			raw, err := asJSON(body)
			if err != nil {
				return Request{}, opspod.NewRetryableError("argument %q: %v", BodyArg, err)
			}
			req.Body = raw
		case e.BodyRequired:
			return Request{}, opspod.NewRetryableError("missing required argument %q", BodyArg)
		}
	}
	return req, nil
}

func (e Endpoint) method() string {
	if e.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(e.Method)
}

// Schema returns the JSON schema of the endpoint arguments.
func (e Endpoint) Schema() map[string]any {
	return ParamsSchema(e.Params, e.Body, e.BodyRequired)
}

// ParamsSchema builds an object schema from a parameter list. A non-empty
// body description adds an object typed body argument.
func ParamsSchema(params []Param, body string, bodyRequired bool) map[string]any {
	props := orderedmap.New[string, *jsonschema.Schema]()
	required := []string{}
	for _, p := range params {
		s := &jsonschema.Schema{Type: p.schemaType(), Description: p.Description, Enum: p.Enum}
		if s.Type == "array" {
			s.Items = &jsonschema.Schema{Type: "string"}
		}
		props.Set(p.Name, s)
		if p.Required || p.In == InPath {
			required = append(required, p.Name)
		}
	}
	if body != "" {
		props.Set(BodyArg, &jsonschema.Schema{Type: "object", Description: body})
		if bodyRequired {
			required = append(required, BodyArg)
		}
	}
	return opspod.SchemaMap(&jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	})
}

func describe(e Endpoint) string {
	if e.Description != "" {
		return e.Description
	}
	return fmt.Sprintf("%s %s", e.method(), e.Path)
}

// DefaultStatus returns a copy of endpoints where every endpoint without its own
// status message reports status.
func DefaultStatus(endpoints []Endpoint, status string) []Endpoint {
	out := make([]Endpoint, len(endpoints))
	for i, e := range endpoints {
		if e.StatusMessage == "" {
			e.StatusMessage = status
		}
		out[i] = e
	}
	return out
}
