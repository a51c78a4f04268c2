package formatting

import (
	"fmt"
	"strings"

	"github.com/embano1/healthscribe-demo/internal/conversation"
	"github.com/embano1/healthscribe-demo/internal/summary"
	"github.com/embano1/healthscribe-demo/internal/transcript"
	"github.com/embano1/healthscribe-demo/internal/types"
)

// FormatConversation renders the transcript with speaker labels and marked insights,
// followed by the summary sections.
func FormatConversation(v *conversation.View) string {
	var formatted strings.Builder

	if v.JobName != "" {
		fmt.Fprintf(&formatted, "# %s\n\n", v.JobName)
	}

	for _, seg := range v.Segments {
		label, ok := v.SpeakerLabels[seg.ParticipantRole]
		if !ok {
			label = seg.ParticipantRole
		}
		fmt.Fprintf(&formatted, "[%s] %s: %s", Timestamp(seg.BeginTime), label, FormatWords(seg.Words))
		if seg.SectionName == types.SectionOther {
			formatted.WriteString(" (small talk)")
		}
		formatted.WriteString("\n")
	}

	if len(v.Sections) == 0 {
		return formatted.String()
	}

	formatted.WriteString("\n## Summary\n")
	for _, s := range v.Sections {
		fmt.Fprintf(&formatted, "\n### %s\n", SectionTitle(s.Name))
		if s.Name == summary.PlanSection && len(v.Plan) > 0 {
			for _, g := range v.Plan {
				if g.Header != summary.NoHeader {
					fmt.Fprintf(&formatted, "%s\n", g.Header)
				}
				for _, e := range g.Entries {
					writeEntry(&formatted, e)
				}
			}
			continue
		}
		for _, e := range s.Entries {
			writeEntry(&formatted, e)
		}
	}

	return formatted.String()
}

func writeEntry(b *strings.Builder, e types.SummaryEntry) {
	text := strings.ReplaceAll(strings.TrimSpace(e.Text), "\n", " ")
	ids := e.SegmentIDs()
	if len(ids) == 0 {
		fmt.Fprintf(b, "- %s\n", text)
		return
	}
	fmt.Fprintf(b, "- %s [%s]\n", text, strings.Join(ids, ", "))
}

// FormatWords joins words into text, attaching punctuation to the preceding word and
// wrapping runs of words linked to the same insight as "[words](TYPE)".
func FormatWords(words []types.Word) string {
	var formatted strings.Builder
	var open *types.InsightRef

	closeInsight := func() {
		if open != nil {
			fmt.Fprintf(&formatted, "](%s)", open.Type)
			open = nil
		}
	}

	for i, w := range words {
		ref := w.LinkedInsight
		if open != nil && (ref == nil || ref.InsightID != open.InsightID) {
			closeInsight()
		}

		switch {
		case transcript.IsPunctuation(w.Content):
			formatted.WriteString(w.Content)
			continue
		case i > 0:
			formatted.WriteString(" ")
		}

		if ref != nil && open == nil {
			formatted.WriteString("[")
			open = ref
		}
		formatted.WriteString(w.Content)
	}
	closeInsight()

	return formatted.String()
}

// Timestamp formats seconds as mm:ss.s.
func Timestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	minutes := int(seconds) / 60
	return fmt.Sprintf("%02d:%04.1f", minutes, seconds-float64(minutes*60))
}

// SectionTitle turns a section name like CHIEF_COMPLAINT into "Chief complaint".
func SectionTitle(name string) string {
	if name == "" {
		return name
	}
	s := strings.ToLower(strings.ReplaceAll(name, "_", " "))
	return strings.ToUpper(s[:1]) + s[1:]
}
