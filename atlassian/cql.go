package atlassian

import (
	"regexp"
	"strings"
)

// reservedCQLWords must be quoted when used as identifiers.
var reservedCQLWords = map[string]bool{
	"after": true, "and": true, "as": true, "avg": true, "before": true, "begin": true,
	"by": true, "commit": true, "contains": true, "count": true, "distinct": true, "else": true,
	"empty": true, "end": true, "explain": true, "from": true, "having": true, "if": true,
	"in": true, "inner": true, "insert": true, "into": true, "is": true, "isnull": true,
	"left": true, "like": true, "limit": true, "max": true, "min": true, "not": true,
	"null": true, "or": true, "order": true, "outer": true, "right": true, "select": true,
	"sum": true, "then": true, "was": true, "where": true, "update": true,
}

var (
	plainIdentifier = regexp.MustCompile(`^[a-zA-Z0-9_\-]+$`)
	digitsOnly      = regexp.MustCompile(`^[0-9]+$`)
)

// QuoteCQLIdentifier quotes personal space keys (~user), reserved words,
// numeric ids and identifiers with special characters.
func QuoteCQLIdentifier(identifier string) string {
	needsQuoting := strings.HasPrefix(identifier, "~") ||
		reservedCQLWords[strings.ToLower(identifier)] ||
		digitsOnly.MatchString(identifier) ||
		!plainIdentifier.MatchString(identifier)
	if !needsQuoting {
		return identifier
	}
	return quote(identifier)
}

func quote(s string) string {
	escaped := strings.ReplaceAll(s, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return `"` + escaped + `"`
}

// isSimpleQuery reports whether query is plain search text rather than CQL.
func isSimpleQuery(query string) bool {
	if query == "" {
		return false
	}
	for _, marker := range []string{"=", "~", ">", "<", " AND ", " OR ", "currentUser()"} {
		if strings.Contains(query, marker) {
			return false
		}
	}
	return true
}

func splitList(list string) []string {
	out := []string{}
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// withSpacesFilter restricts a CQL query to the given spaces unless the query
// already names a space.
func withSpacesFilter(cql, spaces string) string {
	keys := splitList(spaces)
	if len(keys) == 0 {
		return cql
	}
	clauses := make([]string, 0, len(keys))
	for _, key := range keys {
		clauses = append(clauses, "space = "+QuoteCQLIdentifier(key))
	}
	spaceQuery := strings.Join(clauses, " OR ")
	switch {
	case strings.TrimSpace(cql) == "":
		return spaceQuery
	case strings.Contains(cql, "space = "):
		return cql
	default:
		return "(" + cql + ") AND (" + spaceQuery + ")"
	}
}

// withProjectsFilter restricts a JQL query to the given projects unless the
// query already names a project.
func withProjectsFilter(jql, projects string) string {
	keys := splitList(projects)
	if len(keys) == 0 {
		return jql
	}
	clauses := make([]string, 0, len(keys))
	for _, key := range keys {
		clauses = append(clauses, "project = "+quote(key))
	}
	projectQuery := strings.Join(clauses, " OR ")
	switch {
	case strings.TrimSpace(jql) == "":
		return projectQuery
	case strings.Contains(strings.ToLower(jql), "project ="), strings.Contains(strings.ToLower(jql), "project in"):
		return jql
	default:
		return "(" + jql + ") AND (" + projectQuery + ")"
	}
}
