// Package domain provides domain models for PageFoundry.
//
// The validation core consumes and produces only these types; transport and
// provider details stay in their own layers.
package domain

import (
	"sort"
	"strings"
)

// CheckSpec is one free-text acceptance criterion as supplied by the caller.
// It is identified by its exact text: duplicate text collapses to one entry.
type CheckSpec struct {
	RawText string `json:"check"`
}

// CheckCategory classifies a check into one of the verifiable categories.
type CheckCategory string

const (
	CategoryMitLicense           CheckCategory = "MIT_LICENSE"
	CategoryReadmeQuality        CheckCategory = "README_QUALITY"
	CategoryHtmlElementById      CheckCategory = "HTML_ELEMENT_BY_ID"
	CategoryCdnScriptPresence    CheckCategory = "CDN_SCRIPT_PRESENCE"
	CategoryArithmeticOperations CheckCategory = "ARITHMETIC_OPERATIONS"
	CategoryGeneric              CheckCategory = "GENERIC"
)

// CheckResult is the immutable verdict for one check.
// Detail is always non-empty, including on pass; every evaluator upholds this.
type CheckResult struct {
	Spec     CheckSpec     `json:"spec"`
	Category CheckCategory `json:"category"`
	Passed   bool          `json:"passed"`
	Detail   string        `json:"detail"`
}

// FileSet maps filename to raw text content. Keys are case-sensitive.
// Produced by the generator; read-only to the validation core.
type FileSet map[string]string

// SortedNames returns the filenames in lexical order so that any derived
// concatenation is deterministic.
func (fs FileSet) SortedNames() []string {
	names := make([]string, 0, len(fs))
	for name := range fs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Concatenated joins all file contents in sorted-name order.
func (fs FileSet) Concatenated() string {
	var b strings.Builder
	for _, name := range fs.SortedNames() {
		b.WriteString(fs[name])
		b.WriteString("\n")
	}
	return b.String()
}

// ScriptContent joins the contents of files that can carry executable page
// logic: the HTML entry point plus any .js files.
func (fs FileSet) ScriptContent() string {
	var b strings.Builder
	for _, name := range fs.SortedNames() {
		if name == "index.html" || strings.HasSuffix(name, ".js") {
			b.WriteString(fs[name])
			b.WriteString("\n")
		}
	}
	return b.String()
}
