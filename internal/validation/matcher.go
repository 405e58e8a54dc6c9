package validation

import (
	"fmt"
	"regexp"
	"strings"

	"pagefoundry.io/foundry/internal/domain"
)

// The check matcher turns one free-text requirement into a deterministic
// verdict. Classification is an ordered decision list: the first matching
// rule wins, and rule order is load-bearing because rules overlap (a check
// mentioning both "license" and "readme" is a license check). Generic is the
// always-defined fallback, which keeps classification total.

var (
	quotedIDPattern = regexp.MustCompile(`(?i)id\s*=\s*['"]([^'"]+)['"]`)
	bareIDPattern   = regexp.MustCompile(`(?i)id\s*=\s*([A-Za-z][\w-]*)`)
	spacedIDPattern = regexp.MustCompile(`(?i)id\s+'([^']+)'`)

	versionTokenPattern = regexp.MustCompile(`\b(\d+)\b`)
	keywordPattern      = regexp.MustCompile(`\b[a-zA-Z]{4,}\b`)
)

// genericStopwords are dropped before keyword fallback matching.
var genericStopwords = map[string]struct{}{
	"page": {}, "element": {}, "have": {}, "must": {},
	"should": {}, "repo": {}, "file": {}, "with": {},
	"that": {}, "this": {}, "from": {},
}

// Classify assigns a category to one raw check text.
func Classify(raw string) domain.CheckCategory {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "mit") && strings.Contains(lower, "license"):
		return domain.CategoryMitLicense
	case strings.Contains(lower, "readme") && containsAny(lower, "professional", "complete", "quality"):
		return domain.CategoryReadmeQuality
	case extractElementID(raw) != "":
		return domain.CategoryHtmlElementById
	case strings.Contains(lower, "bootstrap") && containsAny(lower, "cdn", "load"):
		return domain.CategoryCdnScriptPresence
	case containsAny(lower, "arithmetic", "calculat", "operation"):
		return domain.CategoryArithmeticOperations
	default:
		return domain.CategoryGeneric
	}
}

// MatchCheck classifies and evaluates one check against the generated files.
// It is total: evaluator panics are recovered and converted into a fail
// verdict, so one malformed check can never abort the remaining checks.
func MatchCheck(fs domain.FileSet, raw string) (result domain.CheckResult) {
	spec := domain.CheckSpec{RawText: raw}
	category := Classify(raw)

	defer func() {
		if r := recover(); r != nil {
			result = domain.CheckResult{
				Spec:     spec,
				Category: category,
				Passed:   false,
				Detail:   fmt.Sprintf("internal evaluator fault: %v", r),
			}
		}
	}()

	var passed bool
	var detail string
	switch category {
	case domain.CategoryMitLicense:
		passed, detail = evalMitLicense(fs)
	case domain.CategoryReadmeQuality:
		passed, detail = evalReadmeQuality(fs)
	case domain.CategoryHtmlElementById:
		passed, detail = evalElementByID(fs, extractElementID(raw))
	case domain.CategoryCdnScriptPresence:
		passed, detail = evalCdnPresence(fs, "bootstrap", extractVersionToken(raw))
	case domain.CategoryArithmeticOperations:
		passed, detail = evalArithmetic(fs)
	default:
		passed, detail = evalGeneric(fs, raw)
	}

	return domain.CheckResult{
		Spec:     spec,
		Category: category,
		Passed:   passed,
		Detail:   detail,
	}
}

// ValidateChecks evaluates the caller's check list in order. Duplicate check
// text collapses to one entry; every surviving check appears exactly once.
func ValidateChecks(fs domain.FileSet, checks []string) domain.ChecksResult {
	seen := make(map[string]struct{}, len(checks))
	results := make([]domain.CheckResult, 0, len(checks))
	passed := 0

	for _, raw := range checks {
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}

		r := MatchCheck(fs, raw)
		if r.Passed {
			passed++
		}
		results = append(results, r)
	}

	return domain.ChecksResult{
		Results:     results,
		PassedCount: passed,
		TotalCount:  len(results),
	}
}

// --- Category evaluators ---
// Absence of evidence (missing file, no parse) is a normal fail with a
// descriptive detail, never an error.

func evalMitLicense(fs domain.FileSet) (bool, string) {
	content, ok := FindRequiredFile(fs, "LICENSE")
	if !ok {
		return false, "LICENSE file missing"
	}
	if LicenseIsMit(content) {
		return true, "MIT license text found in LICENSE"
	}
	return false, "LICENSE exists but does not appear to be MIT"
}

func evalReadmeQuality(fs domain.FileSet) (bool, string) {
	content, ok := FindRequiredFile(fs, "README.md")
	if !ok {
		return false, "README.md missing"
	}
	m := MeasureReadme(content)
	if m.MeetsQualityFloor() {
		return true, fmt.Sprintf("README looks professional (%d chars, has headings)", m.Length)
	}
	var issues []string
	if m.Length <= 200 {
		issues = append(issues, fmt.Sprintf("too short (%d chars)", m.Length))
	}
	if !m.HasHeadings {
		issues = append(issues, "missing headings")
	}
	if !m.HasSections {
		issues = append(issues, "no section structure")
	}
	return false, "README quality issues: " + strings.Join(issues, ", ")
}

func evalElementByID(fs domain.FileSet, id string) (bool, string) {
	content, ok := FindRequiredFile(fs, "index.html")
	if !ok {
		return false, "index.html missing, cannot check for element"
	}
	tree, err := ParseHTML(content)
	if err != nil {
		return false, fmt.Sprintf("index.html could not be parsed: %v", err)
	}
	hit := FindElementByID(tree, id)
	if hit.Found {
		return true, fmt.Sprintf("element with id=%q found (<%s> tag)", id, hit.TagName)
	}
	return false, fmt.Sprintf("element with id=%q not found in index.html", id)
}

func evalCdnPresence(fs domain.FileSet, library, version string) (bool, string) {
	content, ok := FindRequiredFile(fs, "index.html")
	if !ok {
		return false, "index.html missing, cannot check for CDN links"
	}
	tree, err := ParseHTML(content)
	if err != nil {
		return false, fmt.Sprintf("index.html could not be parsed: %v", err)
	}
	hit := FindCdnLink(tree, library, version)
	if hit.Found {
		if hit.MatchedVersion != "" {
			return true, fmt.Sprintf("%s CDN link found (version %s)", library, hit.MatchedVersion)
		}
		return true, fmt.Sprintf("%s CDN link found", library)
	}
	if version != "" && hit.MatchedVersion != "" {
		return false, fmt.Sprintf("%s found on CDN but version %s does not match requested %s", library, hit.MatchedVersion, version)
	}
	if version != "" {
		return false, fmt.Sprintf("no %s version %s CDN link found in index.html", library, version)
	}
	return false, fmt.Sprintf("no %s CDN link found in index.html", library)
}

func evalArithmetic(fs domain.FileSet) (bool, string) {
	code := fs.ScriptContent()
	if strings.TrimSpace(code) == "" {
		return false, "no script content found to inspect"
	}
	if DetectArithmeticCode(code) {
		return true, "script content defines functions and uses arithmetic operators"
	}
	return false, "script content lacks function definitions or arithmetic operators"
}

func evalGeneric(fs domain.FileSet, raw string) (bool, string) {
	keywords := extractKeywords(raw)
	if len(keywords) == 0 {
		return false, "low-confidence generic check: no usable keywords to search for"
	}

	haystack := strings.ToLower(fs.Concatenated())
	var found []string
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			found = append(found, kw)
		}
	}
	if len(found) > 0 {
		return true, fmt.Sprintf("low-confidence keyword match: found %s in generated content", strings.Join(found, ", "))
	}
	return false, fmt.Sprintf("low-confidence generic check: none of %s found in generated content", strings.Join(keywords, ", "))
}

// --- Text extraction helpers ---

// extractElementID pulls the target id out of a check text. Quoted forms win
// over bare ones so id="result" is not truncated by the bare pattern.
func extractElementID(raw string) string {
	if m := quotedIDPattern.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	if m := spacedIDPattern.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	if m := bareIDPattern.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return ""
}

// extractVersionToken returns the first standalone integer in the check text,
// e.g. "5" from "Page loads Bootstrap 5 from CDN". Empty when no version was
// requested.
func extractVersionToken(raw string) string {
	if m := versionTokenPattern.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return ""
}

func extractKeywords(raw string) []string {
	words := keywordPattern.FindAllString(strings.ToLower(raw), -1)
	seen := make(map[string]struct{}, len(words))
	var keywords []string
	for _, w := range words {
		if _, stop := genericStopwords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		keywords = append(keywords, w)
	}
	return keywords
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
