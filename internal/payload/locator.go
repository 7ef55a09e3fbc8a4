package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/titanous/json5"
)

// DefaultVariable is the JavaScript variable TeamTemp assigns the table to.
const DefaultVariable = "historical_data"

var (
	// ErrNotFound means no DataTable assignment was found in the page.
	ErrNotFound = errors.New("payload not found")

	// ErrUndecodable means the assignment was found but its literal could not be decoded.
	ErrUndecodable = errors.New("payload not decodable")
)

// IsNotFound reports whether err means the page yielded no usable payload.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrUndecodable)
}

// tail matches what may follow the object literal: optional extra
// constructor arguments, the closing parenthesis and the terminator.
var tail = regexp.MustCompile(`^\s*(?:,\s*[^)]*)?\)\s*;`)

// Locator finds a DataTable literal assigned to a fixed variable name.
type Locator struct {
	variable string
	prefix   *regexp.Regexp
}

// NewLocator creates a Locator for the given variable name.
// An empty name selects DefaultVariable.
func NewLocator(variable string) *Locator {
	if strings.TrimSpace(variable) == "" {
		variable = DefaultVariable
	}
	prefix := regexp.MustCompile(
		`(?is)var\s+` + regexp.QuoteMeta(variable) +
			`\s*=\s*new\s+google\.visualization\.DataTable\(\s*`,
	)
	return &Locator{variable: variable, prefix: prefix}
}

var defaultLocator = NewLocator(DefaultVariable)

// Locate finds and decodes the default historical_data table in html.
func Locate(html string) (*Table, error) {
	return defaultLocator.Locate(html)
}

// Variable returns the variable name the locator searches for.
func (l *Locator) Variable() string {
	return l.variable
}

// Locate scans html for the DataTable assignment and decodes its literal.
// The raw text is searched first; if that fails, only the text of <script>
// elements is searched.
func (l *Locator) Locate(html string) (*Table, error) {
	literal, ok := l.find(html)
	if !ok {
		literal, ok = l.find(scriptText(html))
	}
	if !ok {
		return nil, fmt.Errorf("%w: var %s", ErrNotFound, l.variable)
	}

	table, err := decode(literal)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	return table, nil
}

// find returns the first object literal passed to a matching DataTable
// constructor call that is closed and terminated with a semicolon.
func (l *Locator) find(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	for _, loc := range l.prefix.FindAllStringIndex(text, -1) {
		rest := text[loc[1]:]
		end := objectEnd(rest)
		if end < 0 {
			continue
		}
		if tail.MatchString(rest[end:]) {
			return rest[:end], true
		}
	}
	return "", false
}

// objectEnd returns the index just past the brace that closes the object
// literal at the start of s, or -1. Braces inside quoted strings are ignored.
func objectEnd(s string) int {
	if !strings.HasPrefix(s, "{") {
		return -1
	}

	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}

		switch c {
		case '"', '\'':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

// scriptText concatenates the text content of every <script> element.
func scriptText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	var parts []string
	doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
		parts = append(parts, sel.Text())
	})
	return strings.Join(parts, "\n")
}

// decode tries strict JSON, then JSON with single quotes swapped, then JSON5
// on both forms. The first successful decode wins.
func decode(literal string) (*Table, error) {
	swapped := strings.ReplaceAll(literal, "'", `"`)

	attempts := []struct {
		name   string
		text   string
		decode func([]byte, any) error
	}{
		{"json", literal, json.Unmarshal},
		{"json (quotes swapped)", swapped, json.Unmarshal},
		{"json5", literal, json5.Unmarshal},
		{"json5 (quotes swapped)", swapped, json5.Unmarshal},
	}

	var errs []error
	for _, a := range attempts {
		var v any
		if err := safeDecode(a.decode, []byte(a.text), &v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.name, err))
			continue
		}
		table, err := tableFrom(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.name, err))
			continue
		}
		return table, nil
	}
	return nil, errors.Join(errs...)
}

// safeDecode turns a decoder panic into an error; page content is untrusted.
func safeDecode(fn func([]byte, any) error, data []byte, v any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decoder panic: %v", r)
		}
	}()
	return fn(data, v)
}
