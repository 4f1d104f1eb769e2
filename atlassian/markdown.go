package atlassian

import (
	"bytes"
	"strings"

	"github.com/boat-builder/opspod"
	"github.com/boat-builder/opspod/restcall"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

const (
	formatMarkdown = "markdown"
	formatStorage  = "storage"
)

var contentFormat = restcall.Param{
	Name:        "content_format",
	Description: "Format of content: 'markdown' (default) is converted to storage format, 'storage' is sent as is",
	Enum:        []any{formatMarkdown, formatStorage},
}

// storageMarkdown renders Markdown as XHTML, which Confluence accepts as
// storage format. Raw HTML in the source is dropped.
var storageMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithXHTML()),
)

func markdownToStorage(source string) (string, error) {
	var buf bytes.Buffer
	if err := storageMarkdown.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// storageContent reads the named content argument and returns it in storage
// format according to content_format.
func storageContent(args restcall.Args, name string) (string, error) {
	content, err := requireString(args, name)
	if err != nil {
		return "", err
	}
	switch format := args.StringOr(contentFormat.Name, formatMarkdown); format {
	case formatStorage:
		return content, nil
	case formatMarkdown:
		converted, err := markdownToStorage(content)
		if err != nil {
			return "", opspod.NewRetryableError("converting markdown: %v", err)
		}
		return converted, nil
	default:
		return "", opspod.NewRetryableError("content_format must be %q or %q, got %q", formatMarkdown, formatStorage, format)
	}
}
