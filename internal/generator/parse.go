package generator

import (
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"pagefoundry.io/foundry/internal/domain"
	"pagefoundry.io/foundry/internal/pkg/logger"
)

var (
	htmlBlockPattern = regexp.MustCompile("(?s)```html\\s*\\n(.*?)```")
	cssBlockPattern  = regexp.MustCompile("(?s)```css\\s*\\n(.*?)```")
	jsBlockPattern   = regexp.MustCompile("(?s)```(?:javascript|js)\\s*\\n(.*?)```")
	htmlDocPattern   = regexp.MustCompile(`(?is)<!DOCTYPE html>.*?</html>`)
)

func unmarshalBody(body string, v interface{}) error {
	return json.Unmarshal([]byte(body), v)
}

// parseFiles extracts a {filename: content} map from a model completion.
// Preferred shape is a JSON object with a "files" key; a bare object of
// filenames also works. When no JSON can be recovered, fenced code blocks and
// finally a raw HTML document serve as fallbacks.
func parseFiles(completion string) domain.FileSet {
	if files := parseJSONFiles(completion); len(files) > 0 {
		return files
	}
	logger.Warn("completion carried no parseable JSON, falling back to code blocks")
	return extractCodeBlocks(completion)
}

func parseJSONFiles(completion string) domain.FileSet {
	start := strings.Index(completion, "{")
	end := strings.LastIndex(completion, "}")
	if start < 0 || end <= start {
		return nil
	}

	raw := completion[start : end+1]

	var wrapped struct {
		Files map[string]string `json:"files"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err == nil && len(wrapped.Files) > 0 {
		return fixEscapes(wrapped.Files)
	}

	var bare map[string]string
	if err := json.Unmarshal([]byte(raw), &bare); err == nil && len(bare) > 0 {
		return fixEscapes(bare)
	}
	return nil
}

// fixEscapes repairs content where the model emitted literal escape sequences
// as raw text instead of proper JSON escapes. Detection: source-like files
// whose content carries backslash-n sequences but no actual newlines.
func fixEscapes(files map[string]string) domain.FileSet {
	fs := make(domain.FileSet, len(files))
	for name, content := range files {
		if isSourceFile(name) && strings.Contains(content, `\n`) && !strings.Contains(content, "\n") {
			logger.Warn("repairing literal escape sequences", zap.String("file", name))
			content = unescapeLiterals(content)
		}
		fs[name] = content
	}
	return fs
}

func isSourceFile(name string) bool {
	for _, suffix := range []string{".html", ".htm", ".js", ".css", ".json"} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func unescapeLiterals(s string) string {
	r := strings.NewReplacer(
		`\n`, "\n",
		`\t`, "\t",
		`\r`, "\r",
		`\"`, `"`,
	)
	return r.Replace(s)
}

// extractCodeBlocks recovers files from fenced markdown blocks, and as a last
// resort lifts a raw HTML document out of the surrounding prose.
func extractCodeBlocks(text string) domain.FileSet {
	fs := domain.FileSet{}

	if m := htmlBlockPattern.FindStringSubmatch(text); m != nil {
		fs["index.html"] = strings.TrimSpace(m[1])
	}
	if m := cssBlockPattern.FindStringSubmatch(text); m != nil {
		fs["style.css"] = strings.TrimSpace(m[1])
	}
	if m := jsBlockPattern.FindStringSubmatch(text); m != nil {
		fs["script.js"] = strings.TrimSpace(m[1])
	}

	if len(fs) == 0 {
		if m := htmlDocPattern.FindString(text); m != "" {
			fs["index.html"] = m
		}
	}
	return fs
}

// stripFences removes a single wrapping markdown code fence from a plain-text
// completion (README or HTML fix responses).
func stripFences(s string) string {
	s = strings.TrimSpace(s)

	if m := htmlBlockPattern.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	if !strings.HasPrefix(s, "```") {
		return s
	}

	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return s
	}
	lines = lines[1:]
	if strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
