package generator

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"pagefoundry.io/foundry/internal/domain"
	"pagefoundry.io/foundry/internal/pkg/logger"
)

// attachmentPreviewBytes caps how much attachment text rides along in the
// prompt.
const attachmentPreviewBytes = 1000

// existingFilePreviewBytes caps per-file previews in update prompts.
const existingFilePreviewBytes = 3000

const createSystemPrompt = `You are an expert web developer specializing in creating clean, working web applications.

Your task is to generate a complete, functional web application based on the user's requirements.

CRITICAL REQUIREMENTS:
1. Create working code that runs in a browser - ALL FEATURES MUST WORK
2. Use CDN links for any libraries (Bootstrap, jQuery, Chart.js, etc.)
3. Make the app professional and user-friendly
4. Follow the brief EXACTLY - implement all requirements
5. Ensure all validation checks will pass
6. All interactive elements must have working event handlers, no placeholders

OUTPUT FORMAT:
Return your response as a valid JSON object with this structure:
{
  "files": {
    "index.html": "<!DOCTYPE html>\n<html>...",
    "style.css": "/* Optional separate CSS */",
    "script.js": "// Optional separate JS"
  }
}

If the app fits in a single HTML file with embedded CSS/JS, include only index.html.
IMPORTANT: Return ONLY the JSON object, no other text.`

const updateSystemPrompt = `You are an expert web developer specializing in maintaining and updating existing code.

Your task is to UPDATE an existing web application based on new requirements.

CRITICAL REQUIREMENTS FOR UPDATES:
1. Read the existing code carefully and understand what it does
2. Make MINIMAL changes to achieve the new requirements
3. Preserve all existing functionality that still works
4. Do not rewrite from scratch - update incrementally
5. Keep the same file structure unless adding new files is necessary

OUTPUT FORMAT:
Return ONLY the files that need to be modified or added as a JSON object:
{
  "files": {
    "index.html": "<!DOCTYPE html>\n<html>..."
  }
}

If a file does not need changes, do not include it.
Return ONLY the JSON object, no other text.`

const readmeFixSystemPrompt = "You are a technical writer. Return only the README content."

const htmlFixSystemPrompt = "You are an HTML expert. Return only the fixed HTML code."

// buildCreatePrompt assembles the round-1 user prompt from the task request.
func buildCreatePrompt(req *domain.TaskRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Task ID:** %s\n", req.Task)
	fmt.Fprintf(&b, "**Round:** %d\n", req.Round)
	fmt.Fprintf(&b, "\n**Brief:**\n%s\n", req.Brief)

	writeChecks(&b, req.Checks)
	writeAttachments(&b, req.Attachments, "**Attachments:**")

	b.WriteString("\n**Generate the complete web application now.**")
	return b.String()
}

// buildUpdatePrompt assembles the round >1 prompt, inlining previews of the
// existing files so the model updates rather than regenerates.
func buildUpdatePrompt(req *domain.TaskRequest, existing domain.FileSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Task ID:** %s\n", req.Task)
	fmt.Fprintf(&b, "**Update Request:** %s\n", req.Brief)
	b.WriteString("\n**IMPORTANT:** This is an UPDATE to an existing application. ")
	b.WriteString("Make only the changes needed to fulfill the new brief and preserve everything else.\n")
	b.WriteString("\n**Existing Code:**\n")

	for _, name := range existing.SortedNames() {
		// Synthesized files are regenerated anyway; no need to show them.
		if name == "LICENSE" || name == "README.md" {
			continue
		}
		content := existing[name]
		if len(content) > existingFilePreviewBytes {
			content = content[:existingFilePreviewBytes]
		}
		fmt.Fprintf(&b, "\n**%s:**\n```\n%s\n```\n", name, content)
	}

	fmt.Fprintf(&b, "\n**New Requirements (what to add/change):**\n%s\n", req.Brief)
	writeChecks(&b, req.Checks)
	writeAttachments(&b, req.Attachments, "**New Attachments:**")

	b.WriteString("\n**Now update the application to include the new requirements while preserving existing features.**")
	return b.String()
}

// buildReadmeFixPrompt asks for a focused README rewrite addressing the named
// failures.
func buildReadmeFixPrompt(task, current string, failures []domain.CheckResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Fix the README.md for task %q.\n", task)
	fmt.Fprintf(&b, "\n**Current README:**\n```\n%s\n```\n", current)
	b.WriteString("\n**Issues to fix:**\n")
	for _, f := range failures {
		fmt.Fprintf(&b, "- %s: %s\n", f.Spec.RawText, f.Detail)
	}
	b.WriteString(`
**Requirements:**
- Make it professional and complete (at least 300 characters)
- Add proper markdown sections (## headings)
- Include: Project Summary, Features, Setup Instructions, Usage

Return ONLY the fixed README.md content, no JSON, no code blocks.`)
	return b.String()
}

// buildHTMLFixPrompt asks for a minimal HTML patch addressing the named
// failures.
func buildHTMLFixPrompt(current string, failures []domain.CheckResult) string {
	var b strings.Builder
	b.WriteString("Fix the HTML below to pass these checks:\n\n")
	for _, f := range failures {
		fmt.Fprintf(&b, "- %s: %s\n", f.Spec.RawText, f.Detail)
	}
	fmt.Fprintf(&b, "\n**Current HTML:**\n```html\n%s\n```\n", current)
	b.WriteString(`
**Fix requirements:**
- Add ONLY what's missing, do not rewrite everything
- If an element with a specific id is missing, add it
- If a CDN link is missing, add it in <head>
- Return the complete fixed HTML

Return ONLY the fixed HTML, no explanation.`)
	return b.String()
}

func writeChecks(b *strings.Builder, checks []string) {
	if len(checks) == 0 {
		return
	}
	b.WriteString("\n**Validation Checks (your app must pass these):**\n")
	for i, check := range checks {
		fmt.Fprintf(b, "%d. %s\n", i+1, check)
	}
}

func writeAttachments(b *strings.Builder, attachments []domain.Attachment, heading string) {
	if len(attachments) == 0 {
		return
	}
	b.WriteString("\n" + heading + "\n")
	for _, att := range attachments {
		preview, err := attachmentPreview(att)
		if err != nil {
			logger.Warn("attachment preview skipped",
				zap.String("name", att.Name),
				zap.Error(err),
			)
			fmt.Fprintf(b, "\n**%s:** [undecodable data]\n", att.Name)
			continue
		}
		b.WriteString(preview)
	}
}

// attachmentPreview decodes a data-URI attachment into a prompt snippet.
// Text-typed payloads are inlined (truncated); binary payloads are described.
func attachmentPreview(att domain.Attachment) (string, error) {
	contentType, data, err := decodeDataURI(att.URL)
	if err != nil {
		return "", err
	}
	if isTextContentType(contentType) {
		text := string(data)
		if len(text) > attachmentPreviewBytes {
			text = text[:attachmentPreviewBytes]
		}
		return fmt.Sprintf("\n**%s** (%s):\n```\n%s\n```\n", att.Name, contentType, text), nil
	}
	return fmt.Sprintf("\n**%s** (%s): [binary data, %d bytes]\n", att.Name, contentType, len(data)), nil
}

// decodeDataURI splits and decodes a data: URI. Non-base64 payloads are
// returned as-is.
func decodeDataURI(uri string) (contentType string, data []byte, err error) {
	if !strings.HasPrefix(uri, "data:") {
		return "", nil, fmt.Errorf("not a data URI")
	}
	header, encoded, found := strings.Cut(uri, ",")
	if !found {
		return "", nil, fmt.Errorf("data URI has no payload")
	}
	header = strings.TrimPrefix(header, "data:")
	contentType, _, _ = strings.Cut(header, ";")
	if contentType == "" {
		contentType = "text/plain"
	}

	if strings.Contains(header, "base64") {
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return "", nil, fmt.Errorf("decode base64 payload: %w", err)
		}
		return contentType, decoded, nil
	}
	return contentType, []byte(encoded), nil
}

func isTextContentType(contentType string) bool {
	for _, t := range []string{"text", "json", "csv", "xml"} {
		if strings.Contains(contentType, t) {
			return true
		}
	}
	return false
}

// synthesizeMitLicense returns standard MIT license text for the current year.
func synthesizeMitLicense() string {
	return fmt.Sprintf(`MIT License

Copyright (c) %d Student Project

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
`, time.Now().Year())
}

// synthesizeReadme builds a complete README when the model omits one. The
// output clears the static quality floor (length, headings, sections).
func synthesizeReadme(task, brief string, files domain.FileSet) string {
	names := make([]string, 0, len(files))
	for name := range files {
		if name != "README.md" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var fileList strings.Builder
	for _, name := range names {
		fmt.Fprintf(&fileList, "- `%s`\n", name)
	}

	return fmt.Sprintf(`# %s

## Project Summary

%s

**Generated:** %s UTC

## Files

%s
## Setup Instructions

1. Clone this repository and open %s in a web browser, or serve it with any
   static file server.

## Usage

Open the application in a modern browser. All functionality runs client-side;
external libraries load from CDN, so no build step is required.

## License

This project is licensed under the MIT License - see the LICENSE file for
details.
`, task, brief, time.Now().UTC().Format("2006-01-02 15:04:05"), fileList.String(), "`index.html`")
}
