package types

// ClinicalDocument represents the HealthScribe summary JSON written to the output bucket.
type ClinicalDocument struct {
	ClinicalDocumentation ClinicalDocumentation `json:"ClinicalDocumentation"`
}

// ClinicalDocumentation holds the summary sections.
type ClinicalDocumentation struct {
	Sections []SummarySection `json:"Sections"`
}

// SummarySection is one named section of the clinical note.
type SummarySection struct {
	SectionName string              `json:"SectionName"`
	Summary     []SummarizedSegment `json:"Summary"`
}

// SummarizedSegment is a single summary sentence and the segments supporting it.
type SummarizedSegment struct {
	SummarizedSegment string         `json:"SummarizedSegment"`
	EvidenceLinks     []EvidenceLink `json:"EvidenceLinks"`
}

// EvidenceLink points back to a transcript segment.
type EvidenceLink struct {
	SegmentID string `json:"SegmentId"`
}

// Section is the canonical summary section every payload shape is normalized into.
type Section struct {
	Name    string         `json:"name"`
	Entries []SummaryEntry `json:"entries"`
}

// SummaryEntry is a canonical summary sentence.
type SummaryEntry struct {
	Text          string         `json:"text"`
	EvidenceLinks []EvidenceLink `json:"evidenceLinks"`
}

// SegmentIDs returns the ids referenced by the entry's evidence links, in order.
func (e SummaryEntry) SegmentIDs() []string {
	ids := make([]string, 0, len(e.EvidenceLinks))
	for _, l := range e.EvidenceLinks {
		ids = append(ids, l.SegmentID)
	}
	return ids
}

// HeaderGroup is a sub-header and the entries listed under it.
type HeaderGroup struct {
	Header  string         `json:"header"`
	Entries []SummaryEntry `json:"entries"`
}
