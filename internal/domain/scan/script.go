package scan

import "fmt"

// ScriptKind distinguishes scripts embedded in the page from scripts loaded by URL.
type ScriptKind string

const (
	ScriptInline   ScriptKind = "inline"
	ScriptExternal ScriptKind = "external"
)

// DisplayName returns the capitalized kind used in match tables.
func (k ScriptKind) DisplayName() string {
	switch k {
	case ScriptInline:
		return "Inline"
	case ScriptExternal:
		return "External"
	default:
		return string(k)
	}
}

// ScriptReference is one script found on the page.
type ScriptReference struct {
	Kind ScriptKind `json:"kind"`
	// Index is the 1-based position among all script elements in document order.
	Index int `json:"index"`
	// URL is the resolved absolute location of an external script.
	URL string `json:"url,omitempty"`
	// Body is the lower-cased script text. Empty when Fetched is false.
	Body    string `json:"-"`
	Fetched bool   `json:"fetched"`
}

// NewInlineScript records a script whose text is embedded in the document.
func NewInlineScript(index int, body string) ScriptReference {
	return ScriptReference{
		Kind:    ScriptInline,
		Index:   index,
		Body:    body,
		Fetched: true,
	}
}

// NewExternalScript records a script referenced by URL; its body is retrieved later.
func NewExternalScript(index int, resolvedURL string) ScriptReference {
	return ScriptReference{
		Kind:  ScriptExternal,
		Index: index,
		URL:   resolvedURL,
	}
}

// Identifier names the script the way reasons and tables refer to it.
func (r ScriptReference) Identifier() string {
	if r.Kind == ScriptExternal {
		return r.URL
	}
	return fmt.Sprintf("Script #%d", r.Index)
}

// WithBody returns a copy of an external reference carrying its retrieved body.
func (r ScriptReference) WithBody(body string) ScriptReference {
	r.Body = body
	r.Fetched = true
	return r
}

// PatternMatch is one suspicious pattern found inside one script.
type PatternMatch struct {
	ScriptType string `json:"script_type"`
	Script     string `json:"script"`
	Pattern    string `json:"pattern"`
}

// NewPatternMatch builds a match for the given reference and pattern.
func NewPatternMatch(ref ScriptReference, pattern string) PatternMatch {
	return PatternMatch{
		ScriptType: ref.Kind.DisplayName(),
		Script:     ref.Identifier(),
		Pattern:    pattern,
	}
}

// Reason formats the diagnostic line recorded alongside a match.
func (m PatternMatch) Reason() string {
	if m.ScriptType == ScriptExternal.DisplayName() {
		return fmt.Sprintf("External Script '%s': Suspicious pattern '%s' detected", m.Script, m.Pattern)
	}
	return fmt.Sprintf("Inline %s: Suspicious pattern '%s' detected", m.Script, m.Pattern)
}

// FetchFailureReason is the single diagnostic recorded for an external script without a body.
func FetchFailureReason(ref ScriptReference) string {
	return fmt.Sprintf("Could not fetch external script: %s", ref.URL)
}
