package transcript

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/embano1/healthscribe-demo/internal/notify"
	"github.com/embano1/healthscribe-demo/internal/types"
)

// MalformedSpanError reports an insight span that did not resolve to any word.
type MalformedSpanError struct {
	InsightID string
	SegmentID string
	Begin     int
	End       int
	Reason    string
}

func (e *MalformedSpanError) Error() string {
	return fmt.Sprintf("insight %s: span [%d,%d] in segment %s: %s", e.InsightID, e.Begin, e.End, e.SegmentID, e.Reason)
}

// Locator links clinical entity insights onto the words of reconstructed segments.
type Locator struct {
	notifier notify.Notifier
}

// NewLocator creates a Locator that reports unresolved spans to n.
func NewLocator(n notify.Notifier) *Locator {
	if n == nil {
		n = notify.Discard
	}
	return &Locator{notifier: n}
}

// Annotate sets LinkedInsight on every word covered by a ClinicalEntity span. Spans that do
// not resolve are reported as warnings and returned; they never stop the remaining spans
// from being processed. Running Annotate twice with the same input yields the same result.
func (l *Locator) Annotate(segments []types.Segment, insights []types.ClinicalInsight) []error {
	index := make(map[string]int, len(segments))
	for i, s := range segments {
		index[s.ID] = i
	}

	var errs []error
	for _, insight := range insights {
		if insight.InsightType != types.InsightTypeClinicalEntity {
			continue
		}
		ref := types.InsightRef{
			InsightID: insight.InsightID,
			Category:  insight.Category,
			Type:      insight.Type,
		}
		for _, span := range insight.Spans {
			err := l.annotateSpan(segments, index, ref, span)
			if err == nil {
				continue
			}
			errs = append(errs, err)
			l.notifier.Notify(notify.New(notify.LevelWarning, notify.KindMalformedSpan, err.Error()))
		}
	}
	return errs
}

func (l *Locator) annotateSpan(segments []types.Segment, index map[string]int, ref types.InsightRef, span types.Span) error {
	i, ok := index[span.SegmentID]
	if !ok {
		return &MalformedSpanError{
			InsightID: ref.InsightID,
			SegmentID: span.SegmentID,
			Begin:     span.BeginCharacterOffset,
			End:       span.EndCharacterOffset,
			Reason:    "unknown segment",
		}
	}

	words := segments[i].Words
	covered := CoveredWords(words, span.BeginCharacterOffset, span.EndCharacterOffset)
	if len(covered) == 0 {
		return &MalformedSpanError{
			InsightID: ref.InsightID,
			SegmentID: span.SegmentID,
			Begin:     span.BeginCharacterOffset,
			End:       span.EndCharacterOffset,
			Reason:    "no word at offset",
		}
	}
	for _, w := range covered {
		r := ref
		words[w].LinkedInsight = &r
	}
	return nil
}

// CoveredWords returns the indexes of words whose cursor lies within [begin, end]. The cursor
// starts at 0 and is tested before a word moves it. A word then advances it by its length plus
// one separating space, a punctuation mark by its length only.
func CoveredWords(words []types.Word, begin, end int) []int {
	var covered []int
	cursor := 0
	for i, w := range words {
		if begin <= cursor && end >= cursor {
			covered = append(covered, i)
		}
		n := utf8.RuneCountInString(w.Content)
		if !IsPunctuation(w.Content) {
			n++
		}
		cursor += n
	}
	return covered
}

// IsPunctuation reports whether content is a single non-letter character. Such words are
// written without a leading space.
func IsPunctuation(content string) bool {
	if utf8.RuneCountInString(content) != 1 {
		return false
	}
	r, _ := utf8.DecodeRuneInString(content)
	return !unicode.IsLetter(r)
}

// PlainText rebuilds a segment's text from its words, attaching punctuation to the word
// before it.
func PlainText(words []types.Word) string {
	var b []rune
	for i, w := range words {
		if i > 0 && !IsPunctuation(w.Content) {
			b = append(b, ' ')
		}
		b = append(b, []rune(w.Content)...)
	}
	return string(b)
}
