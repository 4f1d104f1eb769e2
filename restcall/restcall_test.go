package restcall

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/boat-builder/opspod"
	"github.com/tidwall/gjson"
)

var listApplications = Endpoint{
	Name:   "ApplicationService_List",
	Method: http.MethodGet,
	Path:   "/api/v1/applications",
	Params: []Param{
		{Name: "name"},
		{Name: "refresh"},
		{Name: "projects", Type: "array"},
		{Name: "selector"},
	},
}

var getApplication = Endpoint{
	Name:   "ApplicationService_Get",
	Method: http.MethodGet,
	Path:   "/api/v1/applications/{name}",
	Params: []Param{
		{Name: "name", In: InPath, Required: true},
		{Name: "appNamespace"},
	},
}

type recorded struct {
	method string
	path   string
	query  url.Values
	body   string
	auth   string
}

func newUpstream(t *testing.T, status int, response string) (*httptest.Server, *[]recorded) {
	t.Helper()
	calls := &[]recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		*calls = append(*calls, recorded{
			method: r.Method,
			path:   r.URL.EscapedPath(),
			query:  r.URL.Query(),
			body:   string(b),
			auth:   r.Header.Get("Authorization"),
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv, calls
}

func keys(v url.Values) []string {
	out := []string{}
	for k := range v {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestQueryContainsExactlySuppliedKeys(t *testing.T) {
	names := []string{"name", "refresh", "projects", "selector"}
	// every subset of the optional parameters
	for mask := 0; mask < 1<<len(names); mask++ {
		args := Args{}
		want := []string{}
		for i, n := range names {
			if mask&(1<<i) != 0 {
				args[n] = "v"
				want = append(want, n)
			} else if i%2 == 0 {
				args[n] = nil
			}
		}
		req, err := listApplications.BuildRequest(args)
		if err != nil {
			t.Fatalf("BuildRequest(%v): %v", args, err)
		}
		sort.Strings(want)
		if got := keys(req.Query); !reflect.DeepEqual(got, want) {
			t.Fatalf("args %v: expected query keys %v, got %v", args, want, got)
		}
	}
}

func TestQueryKeyMappingAndValues(t *testing.T) {
	e := Endpoint{
		Name: "ApplicationService_GetManifestsWithFiles",
		Path: "/x",
		Params: []Param{
			{Name: "id_type", Key: "id.type"},
			{Name: "limit", Type: "integer"},
			{Name: "dryRun", Type: "boolean"},
			{Name: "projects", Type: "array"},
		},
	}
	req, err := e.BuildRequest(Args{
		"id_type":  "git",
		"limit":    float64(25),
		"dryRun":   true,
		"projects": []any{"a", "b"},
	})
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}
	want := url.Values{
		"id.type":  {"git"},
		"limit":    {"25"},
		"dryRun":   {"true"},
		"projects": {"a", "b"},
	}
	if !reflect.DeepEqual(req.Query, want) {
		t.Fatalf("expected %v, got %v", want, req.Query)
	}
}

func TestPathArguments(t *testing.T) {
	req, err := getApplication.BuildRequest(Args{"name": "guest book/1"})
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}
	if req.Path != "/api/v1/applications/guest%20book%2F1" {
		t.Fatalf("unexpected path %q", req.Path)
	}
	if len(req.Query) != 0 {
		t.Fatalf("path params must not appear in the query: %v", req.Query)
	}

	_, err = getApplication.BuildRequest(Args{})
	var retErr *opspod.RetryableError
	if !errors.As(err, &retErr) {
		t.Fatalf("expected a retryable error for the missing name, got %v", err)
	}
}

func TestBodyArgument(t *testing.T) {
	e := Endpoint{Name: "create", Method: http.MethodPost, Path: "/api/v1/projects", Body: "project definition", BodyRequired: true}

	req, err := e.BuildRequest(Args{"body": map[string]any{"project": map[string]any{"metadata": map[string]any{"name": "p"}}}})
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}
	if gjson.GetBytes(req.Body.(json.RawMessage), "project.metadata.name").String() != "p" {
		t.Fatalf("unexpected body %s", req.Body)
	}

	req, err = e.BuildRequest(Args{"body": `{"upsert":true}`})
	if err != nil {
		t.Fatalf("BuildRequest with string body: %v", err)
	}
	if string(req.Body.(json.RawMessage)) != `{"upsert":true}` {
		t.Fatalf("unexpected body %s", req.Body)
	}

	req, err = e.BuildRequest(Args{"body": "{\n  // create or update\n  \"upsert\": true,\n}"})
	if err != nil {
		t.Fatalf("BuildRequest with commented body: %v", err)
	}
	if !gjson.GetBytes(req.Body.(json.RawMessage), "upsert").Bool() || !json.Valid(req.Body.(json.RawMessage)) {
		t.Fatalf("unexpected body %s", req.Body)
	}

	if _, err := e.BuildRequest(Args{"body": "{broken"}); err == nil {
		t.Fatalf("expected an error for an invalid body")
	}
	if _, err := e.BuildRequest(Args{}); err == nil {
		t.Fatalf("expected an error for a missing body")
	}
}

func TestEndpointToolSuccess(t *testing.T) {
	srv, calls := newUpstream(t, http.StatusOK, `{"items":[{"metadata":{"name":"guestbook"}}]}`)
	tool := NewEndpointTool(NewClient(srv.URL, "secret"), listApplications)

	out, err := tool.Execute(context.Background(), map[string]any{"selector": "team=a"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if gjson.Get(out, "items.0.metadata.name").String() != "guestbook" {
		t.Fatalf("unexpected output %s", out)
	}
	call := (*calls)[0]
	if call.method != http.MethodGet || call.path != "/api/v1/applications" {
		t.Fatalf("unexpected call %+v", call)
	}
	if call.auth != "Bearer secret" {
		t.Fatalf("expected bearer token, got %q", call.auth)
	}
	if !reflect.DeepEqual(call.query, url.Values{"selector": {"team=a"}}) {
		t.Fatalf("unexpected query %v", call.query)
	}
}

func TestEndpointToolFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "NotFound", status: http.StatusNotFound, body: `{"error":"application not found","code":5}`, want: "HTTP 404: application not found"},
		{name: "ServerError", status: http.StatusInternalServerError, body: ``, want: "HTTP 500: 500 Internal Server Error"},
		{name: "Unauthorized", status: http.StatusUnauthorized, body: `{"message":"invalid session"}`, want: "HTTP 401: invalid session"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newUpstream(t, tt.status, tt.body)
			out, err := NewEndpointTool(NewClient(srv.URL, "t"), listApplications).Execute(context.Background(), nil)
			if err != nil {
				t.Fatalf("upstream failures must not surface as Go errors: %v", err)
			}
			if got := gjson.Get(out, "error").String(); got != tt.want {
				t.Fatalf("expected error %q, got %s", tt.want, out)
			}
		})
	}
}

func TestTransportFailure(t *testing.T) {
	srv, _ := newUpstream(t, http.StatusOK, `{}`)
	srv.Close()
	out, err := NewEndpointTool(NewClient(srv.URL, "t"), listApplications).Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !gjson.Get(out, "error").Exists() {
		t.Fatalf("expected an error document, got %s", out)
	}
}

func TestEmptyAndNonJSONBodies(t *testing.T) {
	srv, _ := newUpstream(t, http.StatusOK, "")
	if out := NewClient(srv.URL, "").Do(context.Background(), Request{Path: "/x"}).JSON(); out != "{}" {
		t.Fatalf("expected {}, got %s", out)
	}

	srv, _ = newUpstream(t, http.StatusOK, "plain text")
	if out := NewClient(srv.URL, "").Do(context.Background(), Request{Path: "/x"}).JSON(); out != `"plain text"` {
		t.Fatalf("expected a JSON string, got %s", out)
	}
}

func TestOversizedResponseIsAFailure(t *testing.T) {
	big := `{"items":["` + strings.Repeat("a", maxResponseBytes) + `"]}`
	srv, _ := newUpstream(t, http.StatusOK, big)

	res := NewClient(srv.URL, "").Do(context.Background(), Request{Path: "/api/v1/applications"})
	if res.Success {
		t.Fatalf("expected a failure for an oversized body, got %d bytes of data", len(res.Data))
	}
	if !strings.Contains(res.Error, "response exceeds") {
		t.Fatalf("unexpected error %q", res.Error)
	}
	if !gjson.Get(res.JSON(), "error").Exists() {
		t.Fatalf("expected an error document, got %.100s", res.JSON())
	}
}

func TestTimeoutOption(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = io.WriteString(w, `{}`)
	}))
	t.Cleanup(srv.Close)

	res := NewClient(srv.URL, "", WithTimeout(20*time.Millisecond)).Do(context.Background(), Request{Path: "/slow"})
	if res.Success {
		t.Fatalf("expected the call to time out")
	}
	if res = NewClient(srv.URL, "", WithTimeout(0)).Do(context.Background(), Request{Path: "/slow"}); !res.Success {
		t.Fatalf("zero timeout should keep the default: %+v", res)
	}
}

func TestDefaultStatus(t *testing.T) {
	own := getApplication
	own.StatusMessage = "Fetching application..."
	out := DefaultStatus([]Endpoint{listApplications, own}, "Looking up Argo CD...")
	if out[0].StatusMessage != "Looking up Argo CD..." || out[1].StatusMessage != "Fetching application..." {
		t.Fatalf("unexpected status messages %q, %q", out[0].StatusMessage, out[1].StatusMessage)
	}
	if listApplications.StatusMessage != "" {
		t.Fatalf("input endpoints must not be modified")
	}
}

func TestReadOnlyBlocksWrites(t *testing.T) {
	srv, calls := newUpstream(t, http.StatusOK, `{}`)
	client := NewClient(srv.URL, "t", WithReadOnly(true))

	res := client.Do(context.Background(), Request{Method: http.MethodPost, Path: "/rest/api/2/issue", Body: map[string]any{}})
	if res.Success || len(*calls) != 0 {
		t.Fatalf("expected the write to be blocked, got %+v with %d calls", res, len(*calls))
	}
	if res = client.Do(context.Background(), Request{Path: "/rest/api/2/myself"}); !res.Success {
		t.Fatalf("reads must still work: %+v", res)
	}
}

func TestSchema(t *testing.T) {
	schema := getApplication.Schema()
	if schema["type"] != "object" {
		t.Fatalf("unexpected schema %v", schema)
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok || props["name"] == nil || props["appNamespace"] == nil {
		t.Fatalf("unexpected properties %v", schema["properties"])
	}
	required, _ := schema["required"].([]any)
	if len(required) != 1 || required[0] != "name" {
		t.Fatalf("unexpected required %v", schema["required"])
	}
	if _, ok := schema["$schema"]; ok {
		t.Fatalf("document keywords must be stripped")
	}
}
