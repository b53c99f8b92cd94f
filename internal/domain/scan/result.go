package scan

// Tier is the discrete risk classification of a scan.
type Tier string

const (
	TierSafe       Tier = "SAFE"
	TierSuspicious Tier = "SUSPICIOUS"
	TierScam       Tier = "SCAM"
)

// Assessment is the classifier output for a match count.
type Assessment struct {
	Score      int    `json:"score"`
	Tier       Tier   `json:"tier"`
	Label      string `json:"label"`
	Summary    string `json:"summary"`
	Percentage int    `json:"percentage"`
}

// Result is the aggregate output of one scan.
type Result struct {
	Target  string         `json:"target"`
	Matches []PatternMatch `json:"matches"`
	Reasons []string       `json:"reasons"`
	Assessment

	InlineScripts   int `json:"inline_scripts"`
	ExternalScripts int `json:"external_scripts"`
	FetchedScripts  int `json:"fetched_scripts"`
	FailedScripts   int `json:"failed_scripts"`
}

// NewResult returns an empty result for target.
func NewResult(target string) *Result {
	return &Result{
		Target:  target,
		Matches: make([]PatternMatch, 0),
		Reasons: make([]string, 0),
	}
}

// AddReason appends a diagnostic line.
func (r *Result) AddReason(reason string) {
	r.Reasons = append(r.Reasons, reason)
}

// AddMatches appends matches together with their diagnostic lines.
func (r *Result) AddMatches(matches []PatternMatch, reasons []string) {
	r.Matches = append(r.Matches, matches...)
	r.Reasons = append(r.Reasons, reasons...)
}

// RecordScripts updates the script counters from the final reference set.
func (r *Result) RecordScripts(refs []ScriptReference) {
	for _, ref := range refs {
		switch ref.Kind {
		case ScriptInline:
			r.InlineScripts++
		case ScriptExternal:
			r.ExternalScripts++
			if ref.Fetched {
				r.FetchedScripts++
			} else {
				r.FailedScripts++
			}
		}
	}
}

// Rows returns the match table as {Script Type, Script, Pattern Detected} rows.
func (r *Result) Rows() [][3]string {
	rows := make([][3]string, 0, len(r.Matches))
	for _, m := range r.Matches {
		rows = append(rows, [3]string{m.ScriptType, m.Script, m.Pattern})
	}
	return rows
}

// RowHeader names the columns returned by Rows.
var RowHeader = [3]string{"Script Type", "Script", "Pattern Detected"}
