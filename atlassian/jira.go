package atlassian

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/boat-builder/opspod"
	"github.com/boat-builder/opspod/restcall"
	"github.com/tidwall/gjson"
)

// DefaultSearchFields are returned by jira_search unless fields is given.
var DefaultSearchFields = []string{"summary", "status", "assignee", "priority"}

var issueKey = restcall.Param{Name: "issue_key", In: restcall.InPath, Required: true, Description: "Jira issue key (e.g., 'PROJ-123')"}

var (
	startAtParam = restcall.Param{Name: "start_at", Key: "startAt", Type: "integer", Description: "Starting index for pagination (0-based)"}
	limitParam   = restcall.Param{Name: "limit", Key: "maxResults", Type: "integer", Description: "Maximum number of results (1-50)"}
)

// jiraEndpoints are the Jira tools that map one to one onto a REST call.
var jiraEndpoints = []restcall.Endpoint{
	{
		Name:        "jira_get_current_user",
		Description: "Get the Jira profile of the authenticated user.",
		Method:      http.MethodGet,
		Path:        "/rest/api/2/myself",
	},
	{
		Name:        "jira_get_user",
		Description: "Get a Jira user by username or key.",
		Method:      http.MethodGet,
		Path:        "/rest/api/2/user",
		Params: []restcall.Param{
			{Name: "username", Description: "The username of the user"},
			{Name: "key", Description: "The user key of the user"},
		},
	},
	{
		Name:        "jira_get_issue",
		Description: "Get the details of a Jira issue.",
		Method:      http.MethodGet,
		Path:        "/rest/api/2/issue/{issue_key}",
		Params: []restcall.Param{
			issueKey,
			{Name: "fields", Description: "Comma-separated fields to return, '*all' for every field"},
			{Name: "expand", Description: "Comma-separated entities to expand, e.g. 'renderedFields,changelog'"},
			{Name: "properties", Description: "Comma-separated issue properties to return"},
		},
	},
	{
		Name:        "jira_get_board_issues",
		Description: "Get the issues of an agile board, optionally filtered with JQL.",
		Method:      http.MethodGet,
		Path:        "/rest/agile/1.0/board/{board_id}/issue",
		Params: []restcall.Param{
			{Name: "board_id", In: restcall.InPath, Required: true, Description: "The id of the board (e.g., '1000')"},
			{Name: "jql", Description: "JQL filter applied to the board issues"},
			{Name: "fields", Description: "Comma-separated fields to return"},
			{Name: "expand"},
			startAtParam,
			limitParam,
		},
	},
	{
		Name:        "jira_remove_issue_link",
		Description: "Remove an issue link by its id.",
		Method:      http.MethodDelete,
		Path:        "/rest/api/2/issueLink/{link_id}",
		Params:      []restcall.Param{{Name: "link_id", In: restcall.InPath, Required: true}},
	},
	{
		Name:        "jira_get_transitions",
		Description: "Get the status transitions available for a Jira issue.",
		Method:      http.MethodGet,
		Path:        "/rest/api/2/issue/{issue_key}/transitions",
		Params:      []restcall.Param{issueKey},
	},
	{
		Name:        "jira_get_worklog",
		Description: "Get the worklogs of a Jira issue.",
		Method:      http.MethodGet,
		Path:        "/rest/api/2/issue/{issue_key}/worklog",
		Params:      []restcall.Param{issueKey},
	},
}

var agileEndpoints = []restcall.Endpoint{
	{
		Name:        "jira_get_agile_boards",
		Description: "Get Jira agile boards by name, project key or type.",
		Method:      http.MethodGet,
		Path:        "/rest/agile/1.0/board",
		Params: []restcall.Param{
			{Name: "board_name", Key: "name", Description: "The name of the board, supports fuzzy search"},
			{Name: "project_key", Key: "projectKeyOrId", Description: "Jira project key (e.g., 'PROJ')"},
			{Name: "board_type", Key: "type", Enum: []any{"scrum", "kanban"}},
			startAtParam,
			limitParam,
		},
	},
	{
		Name:        "jira_get_sprints_from_board",
		Description: "Get the sprints of a board, optionally by state.",
		Method:      http.MethodGet,
		Path:        "/rest/agile/1.0/board/{board_id}/sprint",
		Params: []restcall.Param{
			{Name: "board_id", In: restcall.InPath, Required: true, Description: "The id of the board (e.g., '1000')"},
			{Name: "state", Description: "Sprint state: active, future or closed"},
			startAtParam,
			limitParam,
		},
	},
}

// Jira builds the Jira tools that need custom request or response handling.
type Jira struct {
	client         *restcall.Client
	projectsFilter string
}

func NewJira(client *restcall.Client, projectsFilter string) *Jira {
	return &Jira{client: client, projectsFilter: projectsFilter}
}

func (j *Jira) IssueTools() []opspod.Tool {
	tools := restcall.Tools(j.client, restcall.DefaultStatus(jiraEndpoints, statusJira))
	return append(tools,
		restcall.NewFuncTool("jira_search",
			"Search Jira issues using JQL (Jira Query Language).",
			statusJira,
			schema(
				restcall.Param{Name: "jql", Required: true, Description: "JQL query string, e.g. 'project = PROJ AND status = \"In Progress\"'"},
				restcall.Param{Name: "fields", Description: "Comma-separated fields to return, '*all' for every field. Defaults to summary,status,assignee,priority"},
				restcall.Param{Name: "limit", Type: "integer", Description: "Maximum number of results (1-50, default 10)"},
				restcall.Param{Name: "start_at", Type: "integer", Description: "Starting index for pagination"},
				restcall.Param{Name: "projects_filter", Description: "Comma-separated project keys to restrict the search to"},
				restcall.Param{Name: "expand", Description: "Optional entities to expand"},
			),
			j.search),
		restcall.NewFuncTool("jira_get_project_issues",
			"Get the issues of a Jira project.",
			statusJira,
			schema(
				restcall.Param{Name: "project_key", Required: true, Description: "Jira project key (e.g., 'PROJ')"},
				restcall.Param{Name: "limit", Type: "integer", Description: "Maximum number of results (1-50, default 10)"},
				restcall.Param{Name: "start_at", Type: "integer"},
			),
			j.projectIssues),
		restcall.NewFuncTool("jira_get_issue_attachments",
			"List the attachments of a Jira issue (metadata and download links).",
			statusJira,
			schema(restcall.Param{Name: "issue_key", Required: true, Description: issueKey.Description}),
			j.issueAttachments),
		restcall.NewFuncTool("jira_search_fields",
			"Search Jira field definitions by keyword.",
			statusJira,
			schema(
				restcall.Param{Name: "keyword", Description: "Keyword matched against field names and ids"},
				restcall.Param{Name: "limit", Type: "integer"},
			),
			j.searchFields),
		restcall.NewFuncTool("jira_create_issue",
			"Create a new Jira issue.",
			statusJira,
			schema(
				restcall.Param{Name: "project_key", Required: true},
				restcall.Param{Name: "summary", Required: true},
				restcall.Param{Name: "issue_type", Required: true, Description: "Issue type name, e.g. 'Task', 'Bug', 'Story'"},
				restcall.Param{Name: "assignee", Description: "Username of the assignee"},
				restcall.Param{Name: "description"},
				restcall.Param{Name: "components", Description: "Comma-separated component names"},
				restcall.Param{Name: "additional_fields", Type: "object", Description: "Extra fields, e.g. {\"priority\": {\"name\": \"High\"}, \"labels\": [\"ops\"]}"},
			),
			j.createIssue),
		restcall.NewFuncTool("jira_create_issue_link",
			"Create a link between two Jira issues.",
			statusJira,
			schema(
				restcall.Param{Name: "link_type", Required: true, Description: "Link type name, e.g. 'Blocks' (see jira_get_link_types)"},
				restcall.Param{Name: "inward_issue_key", Required: true},
				restcall.Param{Name: "outward_issue_key", Required: true},
				restcall.Param{Name: "comment"},
			),
			j.createIssueLink),
		restcall.NewFuncTool("jira_get_link_types",
			"Get all available issue link types.",
			statusJira,
			schema(),
			j.linkTypes),
		restcall.NewFuncTool("jira_transition_issue",
			"Transition a Jira issue to a new status.",
			statusJira,
			schema(
				restcall.Param{Name: "issue_key", Required: true, Description: issueKey.Description},
				restcall.Param{Name: "transition_id", Required: true, Description: "ID of the transition, from jira_get_transitions. Example values: '11', '21', '31'"},
				restcall.Param{Name: "fields", Type: "object", Description: "Fields to update during the transition, e.g. {\"resolution\": {\"name\": \"Fixed\"}}"},
				restcall.Param{Name: "comment", Description: "Comment added during the transition"},
			),
			j.transitionIssue),
		restcall.NewFuncTool("jira_add_worklog",
			"Add a worklog to a Jira issue.",
			statusJira,
			schema(
				restcall.Param{Name: "issue_key", Required: true, Description: issueKey.Description},
				restcall.Param{Name: "time_spent", Required: true, Description: "Time spent in Jira format (e.g., '3h 30m')"},
				restcall.Param{Name: "comment"},
				restcall.Param{Name: "started", Description: "Start time, e.g. '2024-01-31T09:00:00.000+0000'"},
				restcall.Param{Name: "remaining_estimate", Description: "New remaining estimate (e.g., '2h')"},
			),
			j.addWorklog),
	)
}

func (j *Jira) AgileTools() []opspod.Tool {
	tools := restcall.Tools(j.client, restcall.DefaultStatus(agileEndpoints, statusAgile))
	return append(tools,
		restcall.NewFuncTool("jira_create_sprint",
			"Create a sprint for a board.",
			statusAgile,
			schema(
				restcall.Param{Name: "board_id", Required: true},
				restcall.Param{Name: "sprint_name", Required: true},
				restcall.Param{Name: "start_date", Required: true, Description: "Start time (ISO 8601)"},
				restcall.Param{Name: "end_date", Required: true, Description: "End time (ISO 8601)"},
				restcall.Param{Name: "goal"},
			),
			j.createSprint),
		restcall.NewFuncTool("jira_update_sprint",
			"Update a sprint. Only the supplied fields change.",
			statusAgile,
			schema(
				restcall.Param{Name: "sprint_id", Required: true},
				restcall.Param{Name: "sprint_name"},
				restcall.Param{Name: "state", Enum: []any{"future", "active", "closed"}},
				restcall.Param{Name: "start_date"},
				restcall.Param{Name: "end_date"},
				restcall.Param{Name: "goal"},
			),
			j.updateSprint),
		restcall.NewFuncTool("jira_link_to_epic",
			"Link an existing issue to an epic.",
			statusAgile,
			schema(
				restcall.Param{Name: "issue_key", Required: true, Description: "The key of the issue to link"},
				restcall.Param{Name: "epic_key", Required: true, Description: "The key of the epic to link to"},
			),
			j.linkToEpic),
	)
}

type searchOutput struct {
	Total      int64             `json:"total"`
	StartAt    int64             `json:"start_at"`
	MaxResults int64             `json:"max_results"`
	Issues     []json.RawMessage `json:"issues"`
}

func (j *Jira) runSearch(ctx context.Context, jql, fields string, limit, start int, projects, expand string) string {
	q := url.Values{}
	q.Set("jql", withProjectsFilter(jql, projects))
	if fields == "" {
		fields = strings.Join(DefaultSearchFields, ",")
	}
	if fields != "*all" {
		parts := splitList(fields)
		fields = strings.Join(parts, ",")
	}
	q.Set("fields", fields)
	q.Set("maxResults", strconv.Itoa(limit))
	q.Set("startAt", strconv.Itoa(start))
	if expand != "" {
		q.Set("expand", expand)
	}

	res := j.client.Do(ctx, restcall.Request{Method: http.MethodGet, Path: "/rest/api/2/search", Query: q})
	if !res.Success {
		return res.JSON()
	}
	out := searchOutput{
		Total:      res.Get("total").Int(),
		StartAt:    res.Get("startAt").Int(),
		MaxResults: res.Get("maxResults").Int(),
		Issues:     []json.RawMessage{},
	}
	res.Get("issues").ForEach(func(_, issue gjson.Result) bool {
		out.Issues = append(out.Issues, json.RawMessage(issue.Raw))
		return true
	})
	return toJSON(out)
}

func (j *Jira) search(ctx context.Context, args restcall.Args) (string, error) {
	jql, err := requireString(args, "jql")
	if err != nil {
		return "", err
	}
	limit, err := limitArg(args, 10)
	if err != nil {
		return "", err
	}
	start, err := optionalInt(args, "start_at", 0)
	if err != nil {
		return "", err
	}
	projects := args.StringOr("projects_filter", j.projectsFilter)
	return j.runSearch(ctx, jql, args.StringOr("fields", ""), limit, start, projects, args.StringOr("expand", "")), nil
}

func (j *Jira) projectIssues(ctx context.Context, args restcall.Args) (string, error) {
	project, err := requireString(args, "project_key")
	if err != nil {
		return "", err
	}
	limit, err := limitArg(args, 10)
	if err != nil {
		return "", err
	}
	start, err := optionalInt(args, "start_at", 0)
	if err != nil {
		return "", err
	}
	return j.runSearch(ctx, "project = "+quote(project), "", limit, start, "", ""), nil
}

func (j *Jira) issueAttachments(ctx context.Context, args restcall.Args) (string, error) {
	key, err := requireString(args, "issue_key")
	if err != nil {
		return "", err
	}
	res := j.client.Do(ctx, restcall.Request{
		Method: http.MethodGet,
		Path:   "/rest/api/2/issue/" + url.PathEscape(key),
		Query:  url.Values{"fields": {"attachment"}},
	})
	if !res.Success {
		return res.JSON(), nil
	}
	type attachment struct {
		ID       string `json:"id"`
		Filename string `json:"filename"`
		Size     int64  `json:"size"`
		MimeType string `json:"mime_type"`
		Created  string `json:"created"`
		URL      string `json:"url"`
	}
	out := []attachment{}
	res.Get("fields.attachment").ForEach(func(_, a gjson.Result) bool {
		out = append(out, attachment{
			ID:       a.Get("id").String(),
			Filename: a.Get("filename").String(),
			Size:     a.Get("size").Int(),
			MimeType: a.Get("mimeType").String(),
			Created:  a.Get("created").String(),
			URL:      a.Get("content").String(),
		})
		return true
	})
	return toJSON(map[string]any{"issue_key": key, "count": len(out), "attachments": out}), nil
}

func (j *Jira) searchFields(ctx context.Context, args restcall.Args) (string, error) {
	keyword := strings.ToLower(args.StringOr("keyword", ""))
	limit, err := optionalInt(args, "limit", 10)
	if err != nil {
		return "", err
	}
	res := j.client.Do(ctx, restcall.Request{Method: http.MethodGet, Path: "/rest/api/2/field"})
	if !res.Success {
		return res.JSON(), nil
	}
	matches := []json.RawMessage{}
	gjson.ParseBytes(res.Data).ForEach(func(_, field gjson.Result) bool {
		if limit > 0 && len(matches) >= limit {
			return false
		}
		name := strings.ToLower(field.Get("name").String())
		id := strings.ToLower(field.Get("id").String())
		if keyword == "" || strings.Contains(name, keyword) || strings.Contains(id, keyword) {
			matches = append(matches, json.RawMessage(field.Raw))
		}
		return true
	})
	return toJSON(matches), nil
}

func (j *Jira) createIssue(ctx context.Context, args restcall.Args) (string, error) {
	fields := map[string]any{}
	extra, _, err := args.Object("additional_fields")
	if err != nil {
		return "", &opspod.RetryableError{Err: err}
	}
	for k, v := range extra {
		fields[k] = v
	}
	for _, required := range []struct{ arg, field, key string }{
		{"project_key", "project", "key"},
		{"issue_type", "issuetype", "name"},
	} {
		v, err := requireString(args, required.arg)
		if err != nil {
			return "", err
		}
		fields[required.field] = map[string]any{required.key: v}
	}
	summary, err := requireString(args, "summary")
	if err != nil {
		return "", err
	}
	fields["summary"] = summary
	if v := args.StringOr("description", ""); v != "" {
		fields["description"] = v
	}
	if v := args.StringOr("assignee", ""); v != "" {
		fields["assignee"] = map[string]any{"name": v}
	}
	if names := splitList(args.StringOr("components", "")); len(names) > 0 {
		components := make([]map[string]string, 0, len(names))
		for _, n := range names {
			components = append(components, map[string]string{"name": n})
		}
		fields["components"] = components
	}
	res := j.client.Do(ctx, restcall.Request{
		Method: http.MethodPost,
		Path:   "/rest/api/2/issue",
		Body:   map[string]any{"fields": fields},
	})
	return res.JSON(), nil
}

func (j *Jira) createIssueLink(ctx context.Context, args restcall.Args) (string, error) {
	values := map[string]string{}
	for _, name := range []string{"link_type", "inward_issue_key", "outward_issue_key"} {
		v, err := requireString(args, name)
		if err != nil {
			return "", err
		}
		values[name] = v
	}
	body := map[string]any{
		"type":         map[string]string{"name": values["link_type"]},
		"inwardIssue":  map[string]string{"key": values["inward_issue_key"]},
		"outwardIssue": map[string]string{"key": values["outward_issue_key"]},
	}
	if comment := args.StringOr("comment", ""); comment != "" {
		body["comment"] = map[string]string{"body": comment}
	}
	res := j.client.Do(ctx, restcall.Request{Method: http.MethodPost, Path: "/rest/api/2/issueLink", Body: body})
	if !res.Success {
		return res.JSON(), nil
	}
	return toJSON(map[string]any{
		"success": true,
		"message": fmt.Sprintf("Link %s created between %s and %s", values["link_type"], values["inward_issue_key"], values["outward_issue_key"]),
	}), nil
}

func (j *Jira) linkTypes(ctx context.Context, _ restcall.Args) (string, error) {
	res := j.client.Do(ctx, restcall.Request{Method: http.MethodGet, Path: "/rest/api/2/issueLinkType"})
	if !res.Success {
		return res.JSON(), nil
	}
	if types := res.Get("issueLinkTypes"); types.Exists() {
		return types.Raw, nil
	}
	return "[]", nil
}

func (j *Jira) transitionIssue(ctx context.Context, args restcall.Args) (string, error) {
	key, err := requireString(args, "issue_key")
	if err != nil {
		return "", err
	}
	transition, err := requireString(args, "transition_id")
	if err != nil {
		return "", err
	}
	fields, _, err := args.Object("fields")
	if err != nil {
		return "", &opspod.RetryableError{Err: err}
	}
	if fields == nil {
		fields = map[string]any{}
	}
	body := map[string]any{
		"transition": map[string]string{"id": transition},
		"fields":     fields,
	}
	if comment := args.StringOr("comment", ""); comment != "" {
		body["update"] = map[string]any{
			"comment": []any{map[string]any{"add": map[string]string{"body": comment}}},
		}
	}
	res := j.client.Do(ctx, restcall.Request{
		Method: http.MethodPost,
		Path:   "/rest/api/2/issue/" + url.PathEscape(key) + "/transitions",
		Body:   body,
	})
	if !res.Success {
		return res.JSON(), nil
	}
	return toJSON(map[string]any{
		"success": true,
		"message": fmt.Sprintf("Issue %s transitioned with transition %s", key, transition),
	}), nil
}

func (j *Jira) addWorklog(ctx context.Context, args restcall.Args) (string, error) {
	key, err := requireString(args, "issue_key")
	if err != nil {
		return "", err
	}
	spent, err := requireString(args, "time_spent")
	if err != nil {
		return "", err
	}
	body := map[string]any{"timeSpent": spent}
	if v := args.StringOr("comment", ""); v != "" {
		body["comment"] = v
	}
	if v := args.StringOr("started", ""); v != "" {
		body["started"] = v
	}
	q := url.Values{}
	if v := args.StringOr("remaining_estimate", ""); v != "" {
		q.Set("adjustEstimate", "new")
		q.Set("newEstimate", v)
	}
	res := j.client.Do(ctx, restcall.Request{
		Method: http.MethodPost,
		Path:   "/rest/api/2/issue/" + url.PathEscape(key) + "/worklog",
		Query:  q,
		Body:   body,
	})
	return res.JSON(), nil
}

func (j *Jira) createSprint(ctx context.Context, args restcall.Args) (string, error) {
	values := map[string]string{}
	for _, name := range []string{"board_id", "sprint_name", "start_date", "end_date"} {
		v, err := requireString(args, name)
		if err != nil {
			return "", err
		}
		values[name] = v
	}
	boardID, err := strconv.Atoi(values["board_id"])
	if err != nil {
		return "", opspod.NewRetryableError("board_id must be numeric, got %q", values["board_id"])
	}
	body := map[string]any{
		"name":          values["sprint_name"],
		"startDate":     values["start_date"],
		"endDate":       values["end_date"],
		"originBoardId": boardID,
	}
	if goal := args.StringOr("goal", ""); goal != "" {
		body["goal"] = goal
	}
	res := j.client.Do(ctx, restcall.Request{Method: http.MethodPost, Path: "/rest/agile/1.0/sprint", Body: body})
	return res.JSON(), nil
}

func (j *Jira) updateSprint(ctx context.Context, args restcall.Args) (string, error) {
	sprintID, err := requireString(args, "sprint_id")
	if err != nil {
		return "", err
	}
	body := map[string]any{}
	for arg, field := range map[string]string{
		"sprint_name": "name",
		"state":       "state",
		"start_date":  "startDate",
		"end_date":    "endDate",
		"goal":        "goal",
	} {
		if v := args.StringOr(arg, ""); v != "" {
			body[field] = v
		}
	}
	if len(body) == 0 {
		return "", opspod.NewRetryableError("at least one of sprint_name, state, start_date, end_date or goal is required")
	}
	res := j.client.Do(ctx, restcall.Request{
		Method: http.MethodPost,
		Path:   "/rest/agile/1.0/sprint/" + url.PathEscape(sprintID),
		Body:   body,
	})
	return res.JSON(), nil
}

func (j *Jira) linkToEpic(ctx context.Context, args restcall.Args) (string, error) {
	issue, err := requireString(args, "issue_key")
	if err != nil {
		return "", err
	}
	epic, err := requireString(args, "epic_key")
	if err != nil {
		return "", err
	}
	res := j.client.Do(ctx, restcall.Request{
		Method: http.MethodPost,
		Path:   "/rest/agile/1.0/epic/" + url.PathEscape(epic) + "/issue",
		Body:   map[string]any{"issues": []string{issue}},
	})
	if !res.Success {
		return res.JSON(), nil
	}
	return toJSON(map[string]any{
		"message":  fmt.Sprintf("Issue %s has been linked to epic %s.", issue, epic),
		"response": res.Data,
	}), nil
}
