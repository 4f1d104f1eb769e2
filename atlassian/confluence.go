package atlassian

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/boat-builder/opspod"
	"github.com/boat-builder/opspod/restcall"
	"github.com/tidwall/gjson"
)

const contentPath = confluencePrefix + "/rest/api/content"

// Confluence builds the Confluence tools.
type Confluence struct {
	client       *restcall.Client
	spacesFilter string
}

func NewConfluence(client *restcall.Client, spacesFilter string) *Confluence {
	return &Confluence{client: client, spacesFilter: spacesFilter}
}

func pagePath(id string, sub ...string) string {
	p := contentPath + "/" + url.PathEscape(id)
	for _, s := range sub {
		p += "/" + s
	}
	return p
}

var pageID = restcall.Param{Name: "page_id", Required: true, Description: "Confluence page ID (numeric, e.g. '123456789')"}

var confluenceEndpoints = []restcall.Endpoint{
	{
		Name:        "confluence_delete_page",
		Description: "Delete an existing Confluence page.",
		Method:      http.MethodDelete,
		Path:        contentPath + "/{page_id}",
		Params:      []restcall.Param{{Name: pageID.Name, In: restcall.InPath, Description: pageID.Description}},
	},
	{
		Name:        "confluence_get_labels",
		Description: "Get the labels of a Confluence page.",
		Method:      http.MethodGet,
		Path:        contentPath + "/{page_id}/label",
		Params:      []restcall.Param{{Name: pageID.Name, In: restcall.InPath, Description: pageID.Description}},
	},
}

func (c *Confluence) Tools() []opspod.Tool {
	tools := restcall.Tools(c.client, restcall.DefaultStatus(confluenceEndpoints, statusConfluence))
	return append(tools,
		restcall.NewFuncTool("confluence_search",
			"Search Confluence content with simple text or CQL (Confluence Query Language). "+
				"Simple text uses siteSearch, e.g. 'project documentation'. "+
				"CQL examples: 'type=page AND space=DEV', 'title~\"Meeting Notes\"', 'label=documentation'.",
			statusConfluence,
			schema(
				restcall.Param{Name: "query", Required: true, Description: "Search text or CQL query"},
				restcall.Param{Name: "limit", Type: "integer", Description: "Maximum number of results (1-50, default 10)"},
				restcall.Param{Name: "spaces_filter", Description: "Comma-separated space keys to restrict the search to"},
			),
			c.search),
		restcall.NewFuncTool("confluence_get_page",
			"Get a Confluence page by id, or by title and space key.",
			statusConfluence,
			schema(
				restcall.Param{Name: "page_id", Description: pageID.Description},
				restcall.Param{Name: "title", Description: "The exact page title, used with space_key"},
				restcall.Param{Name: "space_key", Description: "The space key, used with title"},
				restcall.Param{Name: "include_metadata", Type: "boolean", Description: "Include version, space and ancestors (default true)"},
			),
			c.getPage),
		restcall.NewFuncTool("confluence_get_page_children",
			"Get the child pages of a Confluence page.",
			statusConfluence,
			schema(
				restcall.Param{Name: "parent_id", Required: true, Description: "The id of the parent page"},
				restcall.Param{Name: "expand", Description: "Fields to expand (default 'version')"},
				restcall.Param{Name: "limit", Type: "integer", Description: "Maximum number of children (1-50, default 25)"},
				restcall.Param{Name: "start", Type: "integer", Description: "Starting index for pagination"},
				restcall.Param{Name: "include_content", Type: "boolean", Description: "Include the page bodies"},
			),
			c.pageChildren),
		restcall.NewFuncTool("confluence_create_page",
			"Create a Confluence page.",
			statusConfluence,
			schema(
				restcall.Param{Name: "space_key", Required: true, Description: "The key of the space, e.g. 'DEV'"},
				restcall.Param{Name: "title", Required: true},
				restcall.Param{Name: "content", Required: true, Description: "The page body in Markdown, or storage format"},
				contentFormat,
				restcall.Param{Name: "parent_id", Description: "Optional parent page id"},
			),
			c.createPage),
		restcall.NewFuncTool("confluence_update_page",
			"Update a Confluence page. The version number is incremented automatically.",
			statusConfluence,
			schema(
				restcall.Param{Name: "page_id", Required: true, Description: pageID.Description},
				restcall.Param{Name: "title", Required: true},
				restcall.Param{Name: "content", Required: true, Description: "The new page body in Markdown, or storage format"},
				contentFormat,
				restcall.Param{Name: "is_minor_edit", Type: "boolean"},
				restcall.Param{Name: "version_comment"},
				restcall.Param{Name: "parent_id", Description: "Moves the page under this parent"},
			),
			c.updatePage),
		restcall.NewFuncTool("confluence_get_comments",
			"Get the comments of a Confluence page.",
			statusConfluence,
			schema(restcall.Param{Name: "page_id", Required: true, Description: pageID.Description}),
			c.comments),
		restcall.NewFuncTool("confluence_add_comment",
			"Add a comment to a Confluence page.",
			statusConfluence,
			schema(
				restcall.Param{Name: "page_id", Required: true, Description: pageID.Description},
				restcall.Param{Name: "content", Required: true, Description: "The comment in Markdown, or storage format"},
				contentFormat,
			),
			c.addComment),
		restcall.NewFuncTool("confluence_add_label",
			"Add a label to a Confluence page.",
			statusConfluence,
			schema(
				restcall.Param{Name: "page_id", Required: true, Description: pageID.Description},
				restcall.Param{Name: "name", Required: true, Description: "The label name"},
			),
			c.addLabel),
	)
}

type searchHit struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type,omitempty"`
	URL   string `json:"url"`
}

func (c *Confluence) runCQL(ctx context.Context, cql string, limit int) restcall.Result {
	return c.client.Do(ctx, restcall.Request{
		Method: http.MethodGet,
		Path:   contentPath + "/search",
		Query:  url.Values{"cql": {cql}, "limit": {strconv.Itoa(limit)}},
	})
}

func (c *Confluence) search(ctx context.Context, args restcall.Args) (string, error) {
	query, err := requireString(args, "query")
	if err != nil {
		return "", err
	}
	limit, err := limitArg(args, 10)
	if err != nil {
		return "", err
	}
	spaces := args.StringOr("spaces_filter", c.spacesFilter)

	var res restcall.Result
	if isSimpleQuery(query) {
		res = c.runCQL(ctx, withSpacesFilter("siteSearch ~ "+quote(query), spaces), limit)
		if !res.Success {
			res = c.runCQL(ctx, withSpacesFilter("text ~ "+quote(query), spaces), limit)
		}
	} else {
		res = c.runCQL(ctx, withSpacesFilter(query, spaces), limit)
	}
	if !res.Success {
		return res.JSON(), nil
	}

	base := c.client.BaseURL() + confluencePrefix
	hits := []searchHit{}
	res.Get("results").ForEach(func(_, r gjson.Result) bool {
		hit := searchHit{
			ID:    r.Get("id").String(),
			Title: r.Get("title").String(),
			Type:  r.Get("type").String(),
		}
		if webui := r.Get("_links.webui").String(); webui != "" {
			hit.URL = base + webui
		}
		hits = append(hits, hit)
		return true
	})
	return toJSON(hits), nil
}

func (c *Confluence) getPage(ctx context.Context, args restcall.Args) (string, error) {
	metadata, err := optionalBool(args, "include_metadata", true)
	if err != nil {
		return "", err
	}
	expand := "body.storage"
	if metadata {
		expand += ",version,space,ancestors"
	}

	if id := args.StringOr("page_id", ""); id != "" {
		res := c.client.Do(ctx, restcall.Request{
			Method: http.MethodGet,
			Path:   pagePath(id),
			Query:  url.Values{"expand": {expand}},
		})
		return res.JSON(), nil
	}

	title, space := args.StringOr("title", ""), args.StringOr("space_key", "")
	if title == "" || space == "" {
		return "", opspod.NewRetryableError("either page_id or both title and space_key are required")
	}
	res := c.client.Do(ctx, restcall.Request{
		Method: http.MethodGet,
		Path:   contentPath,
		Query:  url.Values{"title": {title}, "spaceKey": {space}, "expand": {expand}},
	})
	if !res.Success {
		return res.JSON(), nil
	}
	page := res.Get("results.0")
	if !page.Exists() {
		return restcall.ErrorJSON(fmt.Sprintf("Page '%s' not found in space '%s'", title, space)), nil
	}
	return page.Raw, nil
}

func (c *Confluence) pageChildren(ctx context.Context, args restcall.Args) (string, error) {
	parent, err := requireString(args, "parent_id")
	if err != nil {
		return "", err
	}
	limit, err := limitArg(args, 25)
	if err != nil {
		return "", err
	}
	start, err := optionalInt(args, "start", 0)
	if err != nil {
		return "", err
	}
	content, err := optionalBool(args, "include_content", false)
	if err != nil {
		return "", err
	}
	expand := args.StringOr("expand", "version")
	if content {
		expand += ",body.storage"
	}
	res := c.client.Do(ctx, restcall.Request{
		Method: http.MethodGet,
		Path:   pagePath(parent, "child", "page"),
		Query:  url.Values{"expand": {expand}, "limit": {strconv.Itoa(limit)}, "start": {strconv.Itoa(start)}},
	})
	if !res.Success {
		return res.JSON(), nil
	}
	results := res.Get("results")
	raw := "[]"
	if results.IsArray() {
		raw = results.Raw
	}
	return toJSON(map[string]any{
		"parent_id": parent,
		"count":     len(results.Array()),
		"limit":     limit,
		"start":     start,
		"results":   json.RawMessage(raw),
	}), nil
}

func storageBody(content string) map[string]any {
	return map[string]any{"storage": map[string]string{"value": content, "representation": "storage"}}
}

func (c *Confluence) createPage(ctx context.Context, args restcall.Args) (string, error) {
	content, err := storageContent(args, "content")
	if err != nil {
		return "", err
	}
	values := map[string]string{}
	for _, name := range []string{"space_key", "title"} {
		v, err := requireString(args, name)
		if err != nil {
			return "", err
		}
		values[name] = v
	}
	body := map[string]any{
		"type":  "page",
		"title": values["title"],
		"space": map[string]string{"key": values["space_key"]},
		"body":  storageBody(content),
	}
	if parent := args.StringOr("parent_id", ""); parent != "" {
		body["ancestors"] = []map[string]string{{"id": parent}}
	}
	res := c.client.Do(ctx, restcall.Request{Method: http.MethodPost, Path: contentPath, Body: body})
	return res.JSON(), nil
}

func (c *Confluence) updatePage(ctx context.Context, args restcall.Args) (string, error) {
	content, err := storageContent(args, "content")
	if err != nil {
		return "", err
	}
	values := map[string]string{}
	for _, name := range []string{"page_id", "title"} {
		v, err := requireString(args, name)
		if err != nil {
			return "", err
		}
		values[name] = v
	}
	minor, err := optionalBool(args, "is_minor_edit", false)
	if err != nil {
		return "", err
	}

	current := c.client.Do(ctx, restcall.Request{
		Method: http.MethodGet,
		Path:   pagePath(values["page_id"]),
		Query:  url.Values{"expand": {"version"}},
	})
	if !current.Success {
		return current.JSON(), nil
	}

	version := map[string]any{
		"number":    current.Get("version.number").Int() + 1,
		"minorEdit": minor,
	}
	if comment := args.StringOr("version_comment", ""); comment != "" {
		version["message"] = comment
	}
	body := map[string]any{
		"id":      values["page_id"],
		"type":    "page",
		"title":   values["title"],
		"body":    storageBody(content),
		"version": version,
	}
	if parent := args.StringOr("parent_id", ""); parent != "" {
		body["ancestors"] = []map[string]string{{"id": parent}}
	}
	res := c.client.Do(ctx, restcall.Request{Method: http.MethodPut, Path: pagePath(values["page_id"]), Body: body})
	return res.JSON(), nil
}

func (c *Confluence) comments(ctx context.Context, args restcall.Args) (string, error) {
	id, err := requireString(args, "page_id")
	if err != nil {
		return "", err
	}
	res := c.client.Do(ctx, restcall.Request{
		Method: http.MethodGet,
		Path:   pagePath(id, "child", "comment"),
		Query:  url.Values{"expand": {"body.view.value,version"}, "depth": {"all"}},
	})
	if !res.Success {
		return res.JSON(), nil
	}
	type comment struct {
		ID      string `json:"id"`
		Author  string `json:"author,omitempty"`
		Created string `json:"created,omitempty"`
		Body    string `json:"body"`
	}
	out := []comment{}
	res.Get("results").ForEach(func(_, r gjson.Result) bool {
		out = append(out, comment{
			ID:      r.Get("id").String(),
			Author:  r.Get("version.by.displayName").String(),
			Created: r.Get("version.when").String(),
			Body:    r.Get("body.view.value").String(),
		})
		return true
	})
	return toJSON(out), nil
}

func (c *Confluence) addComment(ctx context.Context, args restcall.Args) (string, error) {
	id, err := requireString(args, "page_id")
	if err != nil {
		return "", err
	}
	content, err := storageContent(args, "content")
	if err != nil {
		return "", err
	}
	res := c.client.Do(ctx, restcall.Request{
		Method: http.MethodPost,
		Path:   contentPath,
		Body: map[string]any{
			"type":      "comment",
			"container": map[string]string{"id": id, "type": "page"},
			"body":      storageBody(content),
		},
	})
	return res.JSON(), nil
}

func (c *Confluence) addLabel(ctx context.Context, args restcall.Args) (string, error) {
	id, err := requireString(args, "page_id")
	if err != nil {
		return "", err
	}
	name, err := requireString(args, "name")
	if err != nil {
		return "", err
	}
	res := c.client.Do(ctx, restcall.Request{
		Method: http.MethodPost,
		Path:   pagePath(id, "label"),
		Body:   []map[string]string{{"prefix": "global", "name": name}},
	})
	return res.JSON(), nil
}
