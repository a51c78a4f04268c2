package conversation

import (
	"fmt"
	"sort"

	"github.com/embano1/healthscribe-demo/internal/audio"
	"github.com/embano1/healthscribe-demo/internal/notify"
	"github.com/embano1/healthscribe-demo/internal/summary"
	"github.com/embano1/healthscribe-demo/internal/transcript"
	"github.com/embano1/healthscribe-demo/internal/types"
)

// View is the aligned, read-only model of one conversation.
type View struct {
	JobName           string                    `json:"jobName"`
	Segments          []types.Segment           `json:"segments"`
	SpeakerLabels     map[string]string         `json:"speakerLabels"`
	MultiSpeakerRoles []string                  `json:"multiSpeakerRoles"`
	Insights          []types.ClinicalInsight   `json:"insights"`
	UnresolvedSpans   int                       `json:"unresolvedSpans"`
	Sections          []types.Section           `json:"sections"`
	Plan              []types.HeaderGroup       `json:"plan,omitempty"`
	SmallTalk         []audio.Region            `json:"smallTalk"`
	Silence           []audio.Region            `json:"silence,omitempty"`
	Duration          float64                   `json:"duration,omitempty"`
	AudioURL          string                    `json:"audioUrl,omitempty"`
	Entities          map[string][]types.Entity `json:"entities,omitempty"`

	index map[string]int
}

// Build runs segment reconstruction, insight location and speaker labelling to completion
// and returns the assembled view. Unresolved insight spans are reported to n.
func Build(p *Payload, n notify.Notifier) *View {
	conv := p.Transcript.Conversation
	segments := transcript.FromConversation(conv)
	unresolved := transcript.NewLocator(n).Annotate(segments, conv.ClinicalInsights)

	labeler := transcript.NewLabeler(segments)
	roles := make([]string, 0, len(segments))
	for _, s := range segments {
		roles = append(roles, s.ParticipantRole)
	}
	multi := make([]string, 0)
	for prefix := range transcript.MultiSpeakerRoles(roles) {
		multi = append(multi, prefix)
	}
	sort.Strings(multi)

	sections := make([]types.Section, len(p.Sections))
	copy(sections, p.Sections)
	summary.SortSections(sections)

	var plan []types.HeaderGroup
	for _, s := range sections {
		if s.Name == summary.PlanSection {
			plan = summary.RegroupPlan(s.Entries)
		}
	}

	jobName := p.Source.JobName
	if jobName == "" {
		jobName = conv.JobName
	}

	v := &View{
		JobName:           jobName,
		Segments:          segments,
		SpeakerLabels:     labeler.Labels(segments),
		MultiSpeakerRoles: multi,
		Insights:          conv.ClinicalInsights,
		UnresolvedSpans:   len(unresolved),
		Sections:          sections,
		Plan:              plan,
		SmallTalk:         audio.SmallTalkRegions(segments),
	}
	v.reindex()
	return v
}

func (v *View) reindex() {
	v.index = make(map[string]int, len(v.Segments))
	for i, s := range v.Segments {
		v.index[s.ID] = i
	}
}

// Segment looks up a segment by id.
func (v *View) Segment(id string) (types.Segment, bool) {
	if v.index == nil {
		for _, s := range v.Segments {
			if s.ID == id {
				return s, true
			}
		}
		return types.Segment{}, false
	}
	i, ok := v.index[id]
	if !ok {
		return types.Segment{}, false
	}
	return v.Segments[i], true
}

// SetPeaks records the waveform of the audio and derives its silent regions.
func (v *View) SetPeaks(peaks []float64, duration float64) {
	v.Duration = duration
	v.Silence = audio.DetectSilence(peaks, duration)
}

// Entry returns the summary entry at entry in the named section.
func (v *View) Entry(section string, entry int) (types.SummaryEntry, bool) {
	for _, s := range v.Sections {
		if s.Name != section {
			continue
		}
		if entry < 0 || entry >= len(s.Entries) {
			return types.SummaryEntry{}, false
		}
		return s.Entries[entry], true
	}
	return types.SummaryEntry{}, false
}

// SummaryKey identifies a summary entry for evidence cycling.
func SummaryKey(section string, entry int) string {
	return fmt.Sprintf("%s-%d", section, entry)
}
