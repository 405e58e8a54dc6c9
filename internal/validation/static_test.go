package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagefoundry.io/foundry/internal/domain"
)

func TestValidateStatic_WellFormedArtifact(t *testing.T) {
	res := ValidateStatic(calculatorFiles())
	assert.True(t, res.Passed, "errors: %v", res.Errors)
	assert.Empty(t, res.Errors)
}

func TestValidateStatic_MissingLicense(t *testing.T) {
	fs := calculatorFiles()
	delete(fs, "LICENSE")

	res := ValidateStatic(fs)
	require.False(t, res.Passed)
	assert.Contains(t, res.Errors, "missing required file: LICENSE")
}

func TestValidateStatic_ShortReadmeDoesNotAffectChecks(t *testing.T) {
	fs := calculatorFiles()
	fs["README.md"] = "# Calculator\n\nShort app, fifty chars or so of content."

	res := ValidateStatic(fs)
	require.False(t, res.Passed)

	var hasShortError bool
	for _, e := range res.Errors {
		if containsAny(e, "too short") {
			hasShortError = true
		}
	}
	assert.True(t, hasShortError, "errors: %v", res.Errors)

	// Unrelated checks keep passing against the same FileSet.
	assert.True(t, MatchCheck(fs, "Repo has MIT license").Passed)
	assert.True(t, MatchCheck(fs, "Page has element with id='result'").Passed)
}

func TestValidateStatic_AccumulatesAllDefects(t *testing.T) {
	fs := domain.FileSet{
		"index.html": "plain text, no markup",
		"LICENSE":    "Apache License 2.0",
		"README.md":  "no headings here",
	}

	res := ValidateStatic(fs)
	require.False(t, res.Passed)

	// One pass reports every defect rather than stopping at the first.
	joined := ""
	for _, e := range res.Errors {
		joined += e + "\n"
	}
	assert.Contains(t, joined, "MIT")
	assert.Contains(t, joined, "DOCTYPE")
	assert.Contains(t, joined, "<html>")
	assert.Contains(t, joined, "<body>")
	assert.Contains(t, joined, "README.md")
}

func TestValidateStatic_EmptyFiles(t *testing.T) {
	fs := domain.FileSet{
		"index.html": "   \n ",
		"LICENSE":    "",
		"README.md":  "# ok\n\n## s\n" + makeFiller(250),
	}

	res := ValidateStatic(fs)
	require.False(t, res.Passed)
	assert.Contains(t, res.Errors, "index.html is empty or whitespace only")
	assert.Contains(t, res.Errors, "LICENSE is empty or whitespace only")
}

func TestValidateStatic_NoFilesAtAll(t *testing.T) {
	res := ValidateStatic(domain.FileSet{})
	require.False(t, res.Passed)
	assert.Len(t, res.Errors, 3)
}
