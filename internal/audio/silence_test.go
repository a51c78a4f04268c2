package audio

import (
	"reflect"
	"testing"

	"github.com/embano1/healthscribe-demo/internal/types"
)

func TestDetectSilence(t *testing.T) {
	loud := func(n int) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = 0.4
		}
		return out
	}

	tests := []struct {
		name     string
		peaks    []float64
		duration float64
		want     []Region
	}{
		{
			name:     "all silent",
			peaks:    make([]float64, 100),
			duration: 10,
			want:     []Region{{Start: 0, End: 10}},
		},
		{
			name:     "no silence",
			peaks:    loud(100),
			duration: 10,
			want:     nil,
		},
		{
			name: "short gap dropped, long gap kept",
			peaks: func() []float64 {
				p := loud(100)
				// 0.2s gap, below the minimum duration
				p[10], p[11] = 0, 0
				// 0.5s gap with negative near-zero values
				for i := 40; i < 45; i++ {
					p[i] = -0.001
				}
				return p
			}(),
			duration: 10,
			want:     []Region{{Start: 4, End: 4.5}},
		},
		{
			name:     "empty input",
			peaks:    nil,
			duration: 10,
			want:     nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectSilence(tt.peaks, tt.duration)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSmallTalkRegions(t *testing.T) {
	segments := []types.Segment{
		{ID: "1", BeginTime: 0, EndTime: 4, SectionName: types.SectionOther},
		{ID: "2", BeginTime: 4, EndTime: 6, SectionName: types.SectionOther},
		{ID: "3", BeginTime: 6, EndTime: 9, SectionName: "SUBJECTIVE"},
		{ID: "4", BeginTime: 9, EndTime: 12, SectionName: types.SectionOther},
	}
	want := []Region{{Start: 0, End: 6}, {Start: 9, End: 12}}
	if got := SmallTalkRegions(segments); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestMerge(t *testing.T) {
	got := Merge([]Region{{5, 7}, {1, 2}, {6, 9}, {2, 3}})
	want := []Region{{1, 3}, {5, 9}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if Merge(nil) != nil {
		t.Error("expected nil for empty input")
	}
}
