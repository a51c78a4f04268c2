// Package transcript rebuilds speaker segments from a HealthScribe transcript and links
// clinical insights onto the words inside them.
package transcript

import (
	"github.com/embano1/healthscribe-demo/internal/types"
)

// Words converts transcript items into words, using the first alternative of each item.
// Items without alternatives are dropped.
func Words(items []types.TranscriptItem) []types.Word {
	words := make([]types.Word, 0, len(items))
	for _, item := range items {
		if len(item.Alternatives) == 0 {
			continue
		}
		alt := item.Alternatives[0]
		words = append(words, types.Word{
			BeginTime:  item.BeginAudioTime,
			EndTime:    item.EndAudioTime,
			Content:    alt.Content,
			Confidence: alt.Confidence,
			Type:       item.Type,
		})
	}
	return words
}

// Reconstruct partitions the time-ordered word stream into the given segments in a single
// pass. Each segment takes words from the front of the stream until the next word ends after
// the segment does. The last segment takes whatever remains, so every word lands in exactly
// one segment and the concatenation of all segments' words equals the input.
func Reconstruct(bounds []types.SegmentBoundary, words []types.Word) []types.Segment {
	if len(bounds) == 0 {
		return nil
	}

	segments := make([]types.Segment, 0, len(bounds))
	remaining := words
	for i, b := range bounds {
		n := len(remaining)
		if i < len(bounds)-1 {
			n = 0
			for n < len(remaining) && remaining[n].EndTime <= b.EndAudioTime {
				n++
			}
		}

		own := make([]types.Word, n)
		copy(own, remaining[:n])
		remaining = remaining[n:]

		segments = append(segments, types.Segment{
			ID:              b.SegmentID,
			BeginTime:       b.BeginAudioTime,
			EndTime:         b.EndAudioTime,
			ParticipantRole: b.ParticipantDetails.ParticipantRole,
			SectionName:     b.SectionDetails.SectionName,
			Content:         b.Content,
			Words:           own,
		})
	}
	return segments
}

// FromConversation reconstructs the segments of a parsed transcript file.
func FromConversation(conv types.Conversation) []types.Segment {
	return Reconstruct(conv.TranscriptSegments, Words(conv.TranscriptItems))
}
