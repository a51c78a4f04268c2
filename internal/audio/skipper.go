package audio

import "sort"

// Player is the part of the audio player the skipper drives.
type Player interface {
	Duration() (float64, bool)
	SeekTo(fraction float64)
}

// Skipper jumps over silence and small talk during playback. A region is skipped once when
// playback enters it; the skipper re-arms only after playback has left the region.
type Skipper struct {
	player Player

	silence   []Region
	smallTalk []Region

	skipSilence   bool
	skipSmallTalk bool

	active []Region
	fired  int
}

// NewSkipper creates a Skipper that seeks player. Nothing is skipped until Enable is called.
func NewSkipper(player Player) *Skipper {
	return &Skipper{player: player, fired: -1}
}

// SetSilence replaces the silence regions.
func (s *Skipper) SetSilence(regions []Region) {
	s.silence = regions
	s.rebuild()
}

// SetSmallTalk replaces the small-talk regions.
func (s *Skipper) SetSmallTalk(regions []Region) {
	s.smallTalk = regions
	s.rebuild()
}

// Enable selects which kinds of regions are skipped.
func (s *Skipper) Enable(silence, smallTalk bool) {
	s.skipSilence = silence
	s.skipSmallTalk = smallTalk
	s.rebuild()
}

// Regions returns the regions currently being skipped.
func (s *Skipper) Regions() []Region {
	return s.active
}

func (s *Skipper) rebuild() {
	var all []Region
	if s.skipSilence {
		all = append(all, s.silence...)
	}
	if s.skipSmallTalk {
		all = append(all, s.smallTalk...)
	}
	s.active = Merge(all)
	s.fired = -1
}

// OnTimeUpdate seeks to the end of the region containing t if playback just entered it.
// It returns the skipped region and true when a seek was issued.
func (s *Skipper) OnTimeUpdate(t float64) (Region, bool) {
	i := sort.Search(len(s.active), func(i int) bool { return s.active[i].End > t })
	if i == len(s.active) || !s.active[i].Contains(t) {
		s.fired = -1
		return Region{}, false
	}
	if i == s.fired {
		return Region{}, false
	}

	duration, ok := s.player.Duration()
	if !ok || duration <= 0 {
		return Region{}, false
	}

	r := s.active[i]
	s.fired = i
	fraction := r.End / duration
	if fraction > 1 {
		fraction = 1
	}
	s.player.SeekTo(fraction)
	return r, true
}
