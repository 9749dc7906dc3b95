// Package legal turns semi-structured court-search markup into typed case
// records with a severity classification.
package legal

// CaseType is the legal domain of a case, classified from its title.
type CaseType string

const (
	TypeCriminal        CaseType = "criminal"
	TypeCriminalSpecial CaseType = "criminal_special"
	TypeCivil           CaseType = "civil"
	TypeCommercial      CaseType = "commercial"
	TypeAdministrative  CaseType = "administrative"
	TypeTax             CaseType = "tax"
)

// Severity weights a case's legal domain for risk scoring. It is always a
// deterministic function of CaseType, never set independently.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
	SeverityNone   Severity = "none"
)

var severityRank = map[Severity]int{
	SeverityHigh:   3,
	SeverityMedium: 2,
	SeverityLow:    1,
	SeverityNone:   0,
}

var severityByType = map[CaseType]Severity{
	TypeCriminal:        SeverityHigh,
	TypeCriminalSpecial: SeverityHigh,
	TypeCommercial:      SeverityHigh,
	TypeCivil:           SeverityMedium,
	TypeAdministrative:  SeverityMedium,
	TypeTax:             SeverityMedium,
}

// SeverityFor looks up the fixed case-type → severity table. Unrecognized
// types default to medium.
func SeverityFor(t CaseType) Severity {
	if s, ok := severityByType[t]; ok {
		return s
	}
	return SeverityMedium
}

// MaxSeverity reduces over high > medium > low > none. Empty input yields
// none.
func MaxSeverity(cases []Case) Severity {
	max := SeverityNone
	for _, c := range cases {
		if severityRank[c.Severity] > severityRank[max] {
			max = c.Severity
		}
	}
	return max
}

// Case is one extracted court case. Missing fields degrade to the
// documented "unknown" placeholder rather than failing extraction.
type Case struct {
	CaseNumber     string   `json:"case_number"`
	CaseDate       string   `json:"case_date"`
	CaseTitle      string   `json:"case_title"`
	CaseType       CaseType `json:"case_type"`
	Severity       Severity `json:"severity"`
	VerdictSummary string   `json:"verdict_summary"`
	SourceURL      string   `json:"source_url"`
}

// Evidence is the legal evidence record handed to risk scoring.
// MaxSeverity always equals the severity-ordering maximum over Cases.
type Evidence struct {
	EntityName  string   `json:"entity_name"`
	CasesFound  int      `json:"cases_found"`
	Cases       []Case   `json:"cases"`
	MaxSeverity Severity `json:"max_severity"`
	Error       string   `json:"error,omitempty"`
}

// NewEvidence assembles an Evidence record from extracted cases.
func NewEvidence(entityName string, cases []Case) Evidence {
	return Evidence{
		EntityName:  entityName,
		CasesFound:  len(cases),
		Cases:       cases,
		MaxSeverity: MaxSeverity(cases),
	}
}

// EmptyEvidence is the documented fallback when acquisition fails or times
// out; the error text is carried for the per-stage report.
func EmptyEvidence(entityName, errText string) Evidence {
	return Evidence{
		EntityName:  entityName,
		Cases:       []Case{},
		MaxSeverity: SeverityNone,
		Error:       errText,
	}
}
