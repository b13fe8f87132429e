package analyst

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// forbiddenWords are keywords and table functions that must not appear
// outside string literals and quoted identifiers in a generated query.
var forbiddenWords = map[string]bool{
	"insert": true, "update": true, "delete": true, "merge": true,
	"create": true, "drop": true, "alter": true, "truncate": true,
	"attach": true, "detach": true, "copy": true, "export": true,
	"import": true, "install": true, "load": true, "pragma": true,
	"set": true, "reset": true, "call": true, "checkpoint": true,
	"vacuum": true, "begin": true, "commit": true, "rollback": true,
	"read_csv": true, "read_csv_auto": true, "read_parquet": true,
	"read_json": true, "read_json_auto": true, "read_text": true,
	"read_blob": true, "glob": true, "parquet_scan": true,
}

// quoted matches single-quoted strings and double-quoted identifiers, with
// doubled-quote escapes. An identifier match includes a following "(" so
// quoted names in call position can be told apart.
var quoted = regexp.MustCompile(`'(?:[^']|'')*'|"(?:[^"]|"")*"\s*\(?`)

// stripQuoted blanks literals and identifiers so only SQL words remain. A
// quoted name followed by "(" is a function call and is kept unquoted, so
// "read_csv"(...) is checked like read_csv(...).
func stripQuoted(q string) string {
	return quoted.ReplaceAllStringFunc(q, func(m string) string {
		if m[0] == '\'' {
			return "''"
		}
		end := strings.LastIndexByte(m, '"')
		if strings.HasSuffix(m, "(") {
			return " " + m[1:end] + "("
		}
		return `""` + m[end+1:]
	})
}

// ValidateQuery checks that query is a single SELECT (or WITH ... SELECT)
// statement and returns it without a trailing semicolon.
func ValidateQuery(query string) (string, error) {
	q := strings.TrimSpace(query)
	q = strings.TrimSpace(strings.TrimRight(q, "; \t\r\n"))
	if q == "" {
		return "", fmt.Errorf("%w: empty statement", ErrReadOnly)
	}
	if strings.Contains(q, "--") || strings.Contains(q, "/*") {
		return "", fmt.Errorf("%w: comments are not allowed", ErrReadOnly)
	}

	bare := stripQuoted(q)
	if strings.Contains(bare, ";") {
		return "", fmt.Errorf("%w: multiple statements", ErrReadOnly)
	}

	words := strings.FieldsFunc(strings.ToLower(bare), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
	if len(words) == 0 || (words[0] != "select" && words[0] != "with") {
		return "", fmt.Errorf("%w: statement must start with SELECT or WITH", ErrReadOnly)
	}
	for _, w := range words {
		if forbiddenWords[w] {
			return "", fmt.Errorf("%w: %q is not allowed", ErrReadOnly, w)
		}
	}
	return q, nil
}

// fencedBlock matches a ``` fenced block with an optional language tag.
var fencedBlock = regexp.MustCompile("(?s)```([A-Za-z]*)\\s*\\n?(.*?)```")

// ExtractSQL pulls a query out of a model reply. It prefers a ```sql block,
// then any fenced block, then a reply that is itself a query. ok is false
// when the reply contains no query, which means the model answered directly.
func ExtractSQL(reply string) (query string, ok bool) {
	matches := fencedBlock.FindAllStringSubmatch(reply, -1)
	for _, m := range matches {
		if strings.EqualFold(m[1], "sql") {
			if q := strings.TrimSpace(m[2]); q != "" {
				return q, true
			}
		}
	}
	for _, m := range matches {
		if q := strings.TrimSpace(m[2]); looksLikeQuery(q) {
			return q, true
		}
	}
	if q := strings.TrimSpace(reply); looksLikeQuery(q) {
		return q, true
	}
	return "", false
}

func looksLikeQuery(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "select ") || strings.HasPrefix(lower, "select\n") ||
		strings.HasPrefix(lower, "with ")
}
