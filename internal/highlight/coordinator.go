// Package highlight keeps the transcript selection in sync with summary clicks and audio
// playback.
package highlight

import (
	"errors"
	"fmt"

	"github.com/embano1/healthscribe-demo/internal/notify"
	"github.com/embano1/healthscribe-demo/internal/types"
)

var (
	// ErrEmptyEvidence is returned when a summary entry has no evidence links to select.
	ErrEmptyEvidence = errors.New("summary entry has no evidence links")
	// ErrMissingDuration is returned when a seek was needed before the audio was loaded.
	ErrMissingDuration = errors.New("audio duration not available")
	// ErrUnknownSegment is returned when an evidence link names a segment not in the transcript.
	ErrUnknownSegment = errors.New("evidence link references unknown segment")
)

// Player is the part of the audio player the coordinator drives.
type Player interface {
	// Duration returns the audio length in seconds, or false before the audio is loaded.
	Duration() (float64, bool)
	// SeekTo moves playback to fraction (0..1) of the duration.
	SeekTo(fraction float64)
}

// Selection is the set of highlighted segments and the primary one among them.
type Selection struct {
	AllSegmentIDs     []string `json:"allSegmentIds"`
	SelectedSegmentID string   `json:"selectedSegmentId"`
}

// Active reports whether anything is highlighted.
func (s Selection) Active() bool {
	return len(s.AllSegmentIDs) > 0
}

// Has reports whether id is part of the selection.
func (s Selection) Has(id string) bool {
	for _, v := range s.AllSegmentIDs {
		if v == id {
			return true
		}
	}
	return false
}

// Coordinator owns the highlight selection for one open conversation. It is not safe for
// concurrent use; callers serialize SelectSegment and OnAudioTimeAdvance.
type Coordinator struct {
	player   Player
	notifier notify.Notifier
	spans    map[string]types.Segment

	activeKey string
	cursor    int
	selection Selection
	tracked   []types.Segment
}

// NewCoordinator creates a Coordinator over the given segments.
func NewCoordinator(segments []types.Segment, player Player, n notify.Notifier) *Coordinator {
	if n == nil {
		n = notify.Discard
	}
	spans := make(map[string]types.Segment, len(segments))
	for _, s := range segments {
		spans[s.ID] = s
	}
	return &Coordinator{
		player:   player,
		notifier: n,
		spans:    spans,
	}
}

// Selection returns the current selection.
func (c *Coordinator) Selection() Selection {
	return c.selection
}

// Cursor returns the index of the evidence link the next SelectSegment call will target.
func (c *Coordinator) Cursor() int {
	return c.cursor
}

// SelectSegment highlights the evidence of the summary entry identified by summaryKey and
// seeks to the segment under the evidence cursor. Repeated calls with the same key cycle
// through the links; a new key starts again at the first link. When the audio is not loaded
// yet, the selection still changes but no seek is issued and ErrMissingDuration is returned.
func (c *Coordinator) SelectSegment(summaryKey string, links []types.EvidenceLink) (Selection, error) {
	if len(links) == 0 {
		c.notifier.Notify(notify.New(notify.LevelError, notify.KindEmptyEvidence, "No transcript segment is linked to this summary."))
		return c.selection, ErrEmptyEvidence
	}

	if summaryKey != c.activeKey {
		c.activeKey = summaryKey
		c.cursor = 0
	}
	if c.cursor >= len(links) {
		c.cursor = 0
	}

	target := links[c.cursor].SegmentID
	c.cursor = Next(c.cursor, len(links))
	c.setSelection(links, target)

	s, ok := c.spans[target]
	if !ok {
		c.notifier.Notify(notify.New(notify.LevelWarning, notify.KindUnknown, fmt.Sprintf("Segment %s is not part of this transcript.", target)))
		return c.selection, fmt.Errorf("%w: %s", ErrUnknownSegment, target)
	}

	var (
		duration float64
		loaded   bool
	)
	if c.player != nil {
		duration, loaded = c.player.Duration()
	}
	if !loaded || duration <= 0 {
		c.notifier.Notify(notify.New(notify.LevelInfo, notify.KindAudioNotReady, "Audio is not ready yet. Try again once it has loaded."))
		return c.selection, ErrMissingDuration
	}

	c.player.SeekTo(clamp(s.BeginTime/duration, 0, 1))
	return c.selection, nil
}

func (c *Coordinator) setSelection(links []types.EvidenceLink, target string) {
	seen := make(map[string]bool, len(links))
	ids := make([]string, 0, len(links))
	tracked := make([]types.Segment, 0, len(links))
	for _, l := range links {
		if seen[l.SegmentID] {
			continue
		}
		seen[l.SegmentID] = true
		ids = append(ids, l.SegmentID)
		if s, ok := c.spans[l.SegmentID]; ok {
			tracked = append(tracked, s)
		}
	}
	c.selection = Selection{AllSegmentIDs: ids, SelectedSegmentID: target}
	c.tracked = tracked
}

// OnAudioTimeAdvance follows playback through the highlighted segments. The selected segment
// moves to whichever highlighted segment contains t; when t is outside all of them the
// selection is cleared. Cost is bounded by the size of the selection.
func (c *Coordinator) OnAudioTimeAdvance(t float64) Selection {
	if !c.selection.Active() {
		return c.selection
	}

	for _, s := range c.tracked {
		if s.ID == c.selection.SelectedSegmentID && s.Contains(t) {
			return c.selection
		}
	}
	for _, s := range c.tracked {
		if s.Contains(t) {
			c.selection.SelectedSegmentID = s.ID
			return c.selection
		}
	}

	c.clearSelection()
	return c.selection
}

// Reset clears the selection and forgets the active summary entry, so the next
// SelectSegment starts at its first evidence link.
func (c *Coordinator) Reset() {
	c.clearSelection()
	c.activeKey = ""
	c.cursor = 0
}

// clearSelection keeps the evidence cursor so that clicking the same entry again after
// playback moved on continues with its next link.
func (c *Coordinator) clearSelection() {
	c.selection = Selection{}
	c.tracked = nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
