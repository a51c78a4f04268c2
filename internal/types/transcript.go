package types

// InsightTypeClinicalEntity is the only insight type annotated onto transcript words.
const InsightTypeClinicalEntity = "ClinicalEntity"

// SectionOther marks segments HealthScribe classified as small talk.
const SectionOther = "OTHER"

// TranscriptFile represents the HealthScribe transcript JSON written to the output bucket.
type TranscriptFile struct {
	Conversation Conversation `json:"Conversation"`
}

// Conversation is the body of a transcript file.
type Conversation struct {
	ConversationID     string            `json:"ConversationId,omitempty"`
	JobName            string            `json:"JobName,omitempty"`
	JobType            string            `json:"JobType,omitempty"`
	LanguageCode       string            `json:"LanguageCode,omitempty"`
	ClinicalInsights   []ClinicalInsight `json:"ClinicalInsights"`
	TranscriptItems    []TranscriptItem  `json:"TranscriptItems"`
	TranscriptSegments []SegmentBoundary `json:"TranscriptSegments"`
}

// TranscriptItem is a single word or punctuation mark with its audio timing.
type TranscriptItem struct {
	Alternatives   []Alternative `json:"Alternatives"`
	BeginAudioTime float64       `json:"BeginAudioTime"`
	EndAudioTime   float64       `json:"EndAudioTime"`
	Type           string        `json:"Type"`
}

// Alternative represents a recognition alternative for an item.
type Alternative struct {
	Confidence *float64 `json:"Confidence,omitempty"`
	Content    string   `json:"Content"`
}

// SegmentBoundary describes one speaker turn as emitted by HealthScribe, without words.
type SegmentBoundary struct {
	SegmentID          string             `json:"SegmentId"`
	BeginAudioTime     float64            `json:"BeginAudioTime"`
	EndAudioTime       float64            `json:"EndAudioTime"`
	Content            string             `json:"Content"`
	ParticipantDetails ParticipantDetails `json:"ParticipantDetails"`
	SectionDetails     SectionDetails     `json:"SectionDetails"`
}

// ParticipantDetails carries the speaker role, e.g. CLINICIAN_0.
type ParticipantDetails struct {
	ParticipantRole string `json:"ParticipantRole"`
}

// SectionDetails carries the clinical section a segment belongs to.
type SectionDetails struct {
	SectionName string `json:"SectionName"`
}

// ClinicalInsight is an extracted clinical concept linked to character spans in segments.
type ClinicalInsight struct {
	InsightID   string `json:"InsightId"`
	InsightType string `json:"InsightType"`
	Category    string `json:"Category"`
	Type        string `json:"Type"`
	Spans       []Span `json:"Spans"`
}

// Span locates an insight inside a segment's plain text.
type Span struct {
	SegmentID            string `json:"SegmentId"`
	BeginCharacterOffset int    `json:"BeginCharacterOffset"`
	EndCharacterOffset   int    `json:"EndCharacterOffset"`
	Content              string `json:"Content"`
}

// Word is a transcript item after parsing. LinkedInsight is derived, never read from a payload.
type Word struct {
	BeginTime     float64     `json:"beginTime"`
	EndTime       float64     `json:"endTime"`
	Content       string      `json:"content"`
	Confidence    *float64    `json:"confidence"`
	Type          string      `json:"type,omitempty"`
	LinkedInsight *InsightRef `json:"linkedInsight,omitempty"`
}

// InsightRef is the back-reference from a word to the insight covering it.
type InsightRef struct {
	InsightID string `json:"insightId"`
	Category  string `json:"category"`
	Type      string `json:"type"`
}

// Segment is a speaker turn with the words that were spoken during it.
type Segment struct {
	ID              string  `json:"id"`
	BeginTime       float64 `json:"beginTime"`
	EndTime         float64 `json:"endTime"`
	ParticipantRole string  `json:"participantRole"`
	SectionName     string  `json:"sectionName"`
	Content         string  `json:"content"`
	Words           []Word  `json:"words"`
}

// Contains reports whether t falls within the segment's time range.
func (s Segment) Contains(t float64) bool {
	return t >= s.BeginTime && t <= s.EndTime
}
