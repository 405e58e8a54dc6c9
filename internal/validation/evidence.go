// Package validation implements the check-validation engine: evidence
// extraction over generated files and live pages, free-text check matching,
// the static and live validators, and the advisory orchestrator.
package validation

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"pagefoundry.io/foundry/internal/domain"
)

// Evidence extractors are pure functions over a FileSet or a parsed page.
// They never touch the network and have no ordering dependency.

// cdnHosts are recognized CDN host fragments for FindCdnLink.
var cdnHosts = []string{
	"cdn.jsdelivr.net",
	"cdnjs.cloudflare.com",
	"unpkg.com",
	"stackpath.bootstrapcdn.com",
	"maxcdn.bootstrapcdn.com",
}

// FindRequiredFile returns the content of an exact, case-sensitive filename.
func FindRequiredFile(fs domain.FileSet, name string) (string, bool) {
	content, ok := fs[name]
	return content, ok
}

// IsEmpty reports whether content is empty after trimming whitespace.
func IsEmpty(content string) bool {
	return strings.TrimSpace(content) == ""
}

// LicenseIsMit reports whether the license text mentions MIT anywhere,
// case-insensitively.
func LicenseIsMit(content string) bool {
	return strings.Contains(strings.ToLower(content), "mit")
}

// ReadmeMetrics holds the structural measurements of a README.
type ReadmeMetrics struct {
	Length      int
	HasHeadings bool
	HasSections bool
}

var headingPattern = regexp.MustCompile(`(?m)^#+\s`)

// MeasureReadme computes README structural metrics. HasSections means at
// least two distinct heading markers, signaling multi-section structure.
func MeasureReadme(content string) ReadmeMetrics {
	headings := headingPattern.FindAllString(content, -1)
	return ReadmeMetrics{
		Length:      len(content),
		HasHeadings: len(headings) > 0,
		HasSections: len(headings) >= 2,
	}
}

// MeetsQualityFloor is the minimum bar a README must clear: more than 200
// characters and at least one markdown heading.
func (m ReadmeMetrics) MeetsQualityFloor() bool {
	return m.Length > 200 && m.HasHeadings
}

// ParseHTML builds a navigable element tree from content. The underlying
// parser is tolerant: malformed or partial HTML yields a best-effort tree
// rather than an error, so one broken artifact cannot fail the pipeline.
func ParseHTML(content string) (*html.Node, error) {
	return html.Parse(strings.NewReader(content))
}

// ElementHit is the outcome of an element-by-id search.
type ElementHit struct {
	Found   bool
	TagName string
}

// FindElementByID walks the tree looking for any element whose id attribute
// equals id exactly.
func FindElementByID(tree *html.Node, id string) ElementHit {
	var hit ElementHit
	walk(tree, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		for _, attr := range n.Attr {
			if attr.Key == "id" && attr.Val == id {
				hit = ElementHit{Found: true, TagName: n.Data}
				return false
			}
		}
		return true
	})
	return hit
}

// CdnHit is the outcome of a CDN link search.
type CdnHit struct {
	Found          bool
	MatchedVersion string
}

// FindCdnLink scans <script src=…> and <link href=…> values for a CDN host
// and the library name. When version is non-empty the version substring must
// also appear in the URL (either "lib@5" or "/5." form).
func FindCdnLink(tree *html.Node, library, version string) CdnHit {
	library = strings.ToLower(library)
	var hit CdnHit
	walk(tree, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		var url string
		switch n.Data {
		case "script":
			url = attrValue(n, "src")
		case "link":
			url = attrValue(n, "href")
		default:
			return true
		}
		lower := strings.ToLower(url)
		if lower == "" || !strings.Contains(lower, library) {
			return true
		}
		if !fromCdn(lower) {
			return true
		}
		if version != "" && !versionInURL(lower, library, version) {
			// Library found but not at the requested version; keep walking in
			// case another tag carries the right one.
			hit = CdnHit{Found: false, MatchedVersion: extractVersion(lower, library)}
			return true
		}
		hit = CdnHit{Found: true, MatchedVersion: extractVersion(lower, library)}
		return false
	})
	return hit
}

// ScanResourceURLs returns every script src and link href in the tree,
// in document order.
func ScanResourceURLs(tree *html.Node) []string {
	var urls []string
	walk(tree, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		switch n.Data {
		case "script":
			if v := attrValue(n, "src"); v != "" {
				urls = append(urls, v)
			}
		case "link":
			if v := attrValue(n, "href"); v != "" {
				urls = append(urls, v)
			}
		}
		return true
	})
	return urls
}

// PageText returns the concatenated text content of the tree, lowercased,
// for heuristic error-banner scans.
func PageText(tree *html.Node) string {
	var b strings.Builder
	walk(tree, func(n *html.Node) bool {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		return true
	})
	return strings.ToLower(b.String())
}

var (
	functionDeclPattern = regexp.MustCompile(`\bfunction\s+\w*\s*\(`)
	constFuncPattern    = regexp.MustCompile(`\bconst\s+\w+\s*=\s*\(`)
	operatorPattern     = regexp.MustCompile(`[\w)\]]\s*(\+|-|\*|/)\s*[\w(]|\+=|-=|\*=|/=`)
)

// DetectArithmeticCode reports whether content contains at least one
// function-like definition and at least one arithmetic operator outside of
// comments and string literals. Best-effort signal, not a parser.
func DetectArithmeticCode(content string) bool {
	code := stripCommentsAndStrings(content)

	hasFunction := functionDeclPattern.MatchString(code) ||
		strings.Contains(code, "=>") ||
		constFuncPattern.MatchString(code)
	if !hasFunction {
		return false
	}
	return operatorPattern.MatchString(code)
}

// stripCommentsAndStrings removes //-comments, /* */ blocks and quoted
// string literals so operator detection is not fooled by prose or URLs.
func stripCommentsAndStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	const (
		code = iota
		lineComment
		blockComment
		strSingle
		strDouble
		strBacktick
	)
	state := code
	for i := 0; i < len(s); i++ {
		c := s[i]
		next := byte(0)
		if i+1 < len(s) {
			next = s[i+1]
		}
		switch state {
		case code:
			switch {
			case c == '/' && next == '/':
				state = lineComment
				i++
			case c == '/' && next == '*':
				state = blockComment
				i++
			case c == '\'':
				state = strSingle
			case c == '"':
				state = strDouble
			case c == '`':
				state = strBacktick
			default:
				b.WriteByte(c)
			}
		case lineComment:
			if c == '\n' {
				state = code
				b.WriteByte(c)
			}
		case blockComment:
			if c == '*' && next == '/' {
				state = code
				i++
			}
		case strSingle:
			if c == '\\' {
				i++
			} else if c == '\'' || c == '\n' {
				state = code
			}
		case strDouble:
			if c == '\\' {
				i++
			} else if c == '"' || c == '\n' {
				state = code
			}
		case strBacktick:
			if c == '`' {
				state = code
			}
		}
	}
	return b.String()
}

// walk traverses the tree depth-first; fn returning false stops the walk.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func fromCdn(url string) bool {
	for _, host := range cdnHosts {
		if strings.Contains(url, host) {
			return true
		}
	}
	// Generic fallback: a host segment that mentions cdn at all.
	return strings.Contains(url, "cdn")
}

func versionInURL(url, library, version string) bool {
	return strings.Contains(url, library+"@"+version) ||
		strings.Contains(url, "/"+version+".")
}

var versionAtPattern = regexp.MustCompile(`@([0-9]+(?:\.[0-9]+)*)`)

func extractVersion(url, library string) string {
	if idx := strings.Index(url, library+"@"); idx >= 0 {
		if m := versionAtPattern.FindStringSubmatch(url[idx+len(library):]); m != nil {
			return m[1]
		}
	}
	return ""
}
