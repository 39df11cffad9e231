// internal/locator/candidate.go
package locator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/cdp"
)

// Strategy tags how a Candidate's expression is interpreted.
type Strategy string

const (
	// ByIdentifier matches the element whose id attribute equals the expression.
	ByIdentifier Strategy = "id"
	// ByText matches a button-like element whose normalized text contains the expression.
	ByText Strategy = "text"
	// ByAttribute matches "name=value" exactly or "name*=value" as a substring.
	ByAttribute Strategy = "attribute"
	// ByStyleClass matches an element carrying the expression as one of its classes.
	ByStyleClass Strategy = "class"
	// ByXPath passes the expression through as a raw XPath.
	ByXPath Strategy = "xpath"
	// ByCSS passes the expression through as a raw CSS selector.
	ByCSS Strategy = "css"
)

// Dialect is the selector language a compiled Candidate is expressed in.
type Dialect int

const (
	XPath Dialect = iota
	CSS
)

var (
	ErrUnknownStrategy   = errors.New("unknown locator strategy")
	ErrEmptyExpression   = errors.New("locator expression must not be empty")
	ErrBadAttributeMatch = errors.New(`attribute expression must look like "name=value" or "name*=value"`)
)

// Candidate is one declarative description of how to find a page element.
type Candidate struct {
	Strategy   Strategy `mapstructure:"strategy" yaml:"strategy" json:"strategy"`
	Expression string   `mapstructure:"expression" yaml:"expression" json:"expression"`
}

// String renders the candidate for logs and error messages.
func (c Candidate) String() string {
	return fmt.Sprintf("%s:%s", c.Strategy, c.Expression)
}

// Validate reports whether the candidate can be compiled.
func (c Candidate) Validate() error {
	_, _, err := c.Selector()
	return err
}

// Selector compiles the candidate into a selector string and the dialect it is written in.
func (c Candidate) Selector() (string, Dialect, error) {
	expr := strings.TrimSpace(c.Expression)
	if expr == "" {
		return "", XPath, fmt.Errorf("%s: %w", c.Strategy, ErrEmptyExpression)
	}

	switch c.Strategy {
	case ByIdentifier:
		return fmt.Sprintf("//*[@id=%s]", xpathLiteral(expr)), XPath, nil
	case ByText:
		return fmt.Sprintf(
			`//*[self::button or self::a or @role="button" or (self::input and (@type="submit" or @type="button"))][contains(normalize-space(.), %[1]s) or contains(@value, %[1]s)]`,
			xpathLiteral(expr)), XPath, nil
	case ByAttribute:
		return attributeXPath(expr)
	case ByStyleClass:
		return fmt.Sprintf(`//*[contains(concat(" ", normalize-space(@class), " "), %s)]`,
			xpathLiteral(" "+expr+" ")), XPath, nil
	case ByXPath:
		return expr, XPath, nil
	case ByCSS:
		return expr, CSS, nil
	default:
		return "", XPath, fmt.Errorf("%q: %w", c.Strategy, ErrUnknownStrategy)
	}
}

func attributeXPath(expr string) (string, Dialect, error) {
	contains := false
	name, value, ok := strings.Cut(expr, "*=")
	if ok {
		contains = true
	} else {
		name, value, ok = strings.Cut(expr, "=")
	}
	name = strings.TrimSpace(name)
	if !ok || name == "" || !isXMLName(name) {
		return "", XPath, fmt.Errorf("%q: %w", expr, ErrBadAttributeMatch)
	}
	value = strings.Trim(strings.TrimSpace(value), `"'`)
	if contains {
		return fmt.Sprintf("//*[contains(@%s, %s)]", name, xpathLiteral(value)), XPath, nil
	}
	return fmt.Sprintf("//*[@%s=%s]", name, xpathLiteral(value)), XPath, nil
}

// xpathLiteral quotes s as an XPath 1.0 string literal. XPath has no escape
// sequences, so a value holding both quote kinds is assembled with concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	var b strings.Builder
	b.WriteString("concat(")
	for i, p := range parts {
		if i > 0 {
			b.WriteString(`, '"', `)
		}
		b.WriteString(`"` + p + `"`)
	}
	b.WriteString(")")
	return b.String()
}

func isXMLName(s string) bool {
	for i, r := range s {
		switch {
		case r == '_' || r == ':' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case i > 0 && (r == '-' || r == '.' || (r >= '0' && r <= '9')):
		default:
			return false
		}
	}
	return s != ""
}

// Element is a resolved page element together with the candidate that found it.
type Element struct {
	Locator Candidate
	Node    *cdp.Node
}
