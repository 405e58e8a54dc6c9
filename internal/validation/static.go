package validation

import (
	"fmt"
	"strings"

	"pagefoundry.io/foundry/internal/domain"
)

// requiredFiles must exist and be non-empty in every generated artifact.
var requiredFiles = []string{"index.html", "LICENSE", "README.md"}

// ValidateStatic runs the fixed structural battery over generated files,
// independent of the caller's check list. The battery accumulates every
// failing assertion instead of short-circuiting so a caller sees all defects
// at once.
func ValidateStatic(fs domain.FileSet) domain.StaticResult {
	var errs []string
	var warnings []string

	for _, name := range requiredFiles {
		content, ok := FindRequiredFile(fs, name)
		if !ok {
			errs = append(errs, fmt.Sprintf("missing required file: %s", name))
			continue
		}
		if IsEmpty(content) {
			errs = append(errs, fmt.Sprintf("%s is empty or whitespace only", name))
		}
	}

	if license, ok := FindRequiredFile(fs, "LICENSE"); ok && !IsEmpty(license) {
		if !LicenseIsMit(license) {
			errs = append(errs, "LICENSE file does not appear to be MIT license")
		}
	}

	if readme, ok := FindRequiredFile(fs, "README.md"); ok && !IsEmpty(readme) {
		m := MeasureReadme(readme)
		if m.Length <= 200 {
			errs = append(errs, fmt.Sprintf("README.md is too short (%d chars)", m.Length))
		}
		if !m.HasHeadings {
			errs = append(errs, "README.md lacks markdown headings")
		}
		if !m.HasSections {
			warnings = append(warnings, "README.md lacks section structure (only one heading)")
		}
	}

	if page, ok := FindRequiredFile(fs, "index.html"); ok && !IsEmpty(page) {
		lower := strings.ToLower(page)
		if !strings.Contains(lower, "<!doctype") {
			errs = append(errs, "index.html missing DOCTYPE declaration")
		}
		if !strings.Contains(lower, "<html") {
			errs = append(errs, "index.html missing <html> tag")
		}
		if !strings.Contains(lower, "<body") {
			errs = append(errs, "index.html missing <body> tag")
		}
		if !strings.Contains(lower, "<head") {
			warnings = append(warnings, "index.html missing <head> tag")
		}
		if !strings.Contains(lower, "<title") {
			warnings = append(warnings, "index.html missing <title> tag")
		}
	}

	return domain.StaticResult{
		Passed:   len(errs) == 0,
		Errors:   errs,
		Warnings: warnings,
	}
}
