// Package audio finds regions of a recording to mark and skip during playback.
package audio

import (
	"math"
	"sort"

	"github.com/embano1/healthscribe-demo/internal/types"
)

const (
	// DefaultMinAmplitude is the peak level below which a sample counts as silent.
	DefaultMinAmplitude = 0.0015
	// DefaultMinDuration is the shortest silence, in seconds, reported as a region.
	DefaultMinDuration = 0.25
)

// Region is a time range of the recording in seconds.
type Region struct {
	Start float64 `json:"startTime"`
	End   float64 `json:"endTime"`
}

// Contains reports whether t lies in [Start, End).
func (r Region) Contains(t float64) bool {
	return t >= r.Start && t < r.End
}

// SilenceOptions tunes DetectSilenceWith.
type SilenceOptions struct {
	MinAmplitude float64
	MinDuration  float64
}

// DetectSilence finds silent regions using the default thresholds.
func DetectSilence(peaks []float64, duration float64) []Region {
	return DetectSilenceWith(peaks, duration, SilenceOptions{
		MinAmplitude: DefaultMinAmplitude,
		MinDuration:  DefaultMinDuration,
	})
}

// DetectSilenceWith returns the runs of consecutive peaks below opts.MinAmplitude that last
// at least opts.MinDuration. peaks holds one value per equal time slice of the recording.
// Region bounds are rounded to a tenth of a second.
func DetectSilenceWith(peaks []float64, duration float64, opts SilenceOptions) []Region {
	if len(peaks) == 0 || duration <= 0 {
		return nil
	}

	secondsPerSample := duration / float64(len(peaks))
	minRunLength := opts.MinDuration / secondsPerSample

	var regions []Region
	flush := func(start, end int) {
		if float64(end-start) < minRunLength {
			return
		}
		regions = append(regions, Region{
			Start: round1(float64(start) * secondsPerSample),
			End:   round1(float64(end) * secondsPerSample),
		})
	}

	start := -1
	for i, p := range peaks {
		if math.Abs(p) < opts.MinAmplitude {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			flush(start, i)
			start = -1
		}
	}
	if start >= 0 {
		flush(start, len(peaks))
	}
	return regions
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// SmallTalkRegions returns the time ranges of segments classified as small talk, with
// touching or overlapping ranges merged.
func SmallTalkRegions(segments []types.Segment) []Region {
	var regions []Region
	for _, s := range segments {
		if s.SectionName != types.SectionOther {
			continue
		}
		regions = append(regions, Region{Start: s.BeginTime, End: s.EndTime})
	}
	return Merge(regions)
}

// Merge sorts regions by start and joins the ones that touch or overlap.
func Merge(regions []Region) []Region {
	if len(regions) == 0 {
		return nil
	}
	sorted := make([]Region, len(regions))
	copy(sorted, regions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	out := []Region{sorted[0]}
	for _, r := range sorted[1:] {
		last := &out[len(out)-1]
		if r.Start <= last.End {
			if r.End > last.End {
				last.End = r.End
			}
			continue
		}
		out = append(out, r)
	}
	return out
}
