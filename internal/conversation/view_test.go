package conversation

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/embano1/healthscribe-demo/internal/audio"
	"github.com/embano1/healthscribe-demo/internal/notify"
	"github.com/embano1/healthscribe-demo/internal/types"
)

func loadFixture(t *testing.T) *Payload {
	t.Helper()
	p, err := NewLoader(fixtureStore(t), nil).Load(context.Background(), JobSource("bucket", "knee-visit"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return p
}

func TestBuild(t *testing.T) {
	rec := &notify.Recorder{}
	v := Build(loadFixture(t), rec)

	if v.JobName != "knee-visit" {
		t.Errorf("unexpected job name %q", v.JobName)
	}

	var words [][]string
	for _, s := range v.Segments {
		var w []string
		for _, word := range s.Words {
			w = append(w, word.Content)
		}
		words = append(words, w)
	}
	want := [][]string{
		{"Nice", "weather", "."},
		{"I've", "had", "knee", "pain", "."},
		{"Take", "ibuprofen", "daily", "."},
	}
	if !reflect.DeepEqual(words, want) {
		t.Errorf("expected words %v, got %v", want, words)
	}

	seg2, _ := v.Segment("seg-2")
	for i, w := range seg2.Words {
		linked := w.LinkedInsight != nil && w.LinkedInsight.InsightID == "ins-1"
		if expect := i == 2 || i == 3; linked != expect {
			t.Errorf("seg-2 word %d (%s): linked=%v", i, w.Content, linked)
		}
	}
	seg3, _ := v.Segment("seg-3")
	if ref := seg3.Words[1].LinkedInsight; ref == nil || ref.Category != "MEDICATION" {
		t.Errorf("expected ibuprofen linked to medication insight, got %+v", ref)
	}

	if v.UnresolvedSpans != 1 || rec.Count(notify.KindMalformedSpan) != 1 {
		t.Errorf("expected one unresolved span, got %d (%v)", v.UnresolvedSpans, rec.All())
	}

	if !reflect.DeepEqual(v.SpeakerLabels, map[string]string{"CLINICIAN_0": "Clinician", "PATIENT_0": "Patient"}) {
		t.Errorf("unexpected labels %v", v.SpeakerLabels)
	}

	if v.Sections[0].Name != "CHIEF_COMPLAINT" || v.Sections[1].Name != "PLAN" {
		t.Errorf("sections not ordered: %s, %s", v.Sections[0].Name, v.Sections[1].Name)
	}
	if len(v.Plan) != 1 || v.Plan[0].Header != "Knee pain" || len(v.Plan[0].Entries) != 2 {
		t.Errorf("unexpected plan groups %+v", v.Plan)
	}

	if !reflect.DeepEqual(v.SmallTalk, []audio.Region{{Start: 0, End: 1.5}}) {
		t.Errorf("unexpected small talk %v", v.SmallTalk)
	}

	entry, ok := v.Entry("PLAN", 1)
	if !ok || entry.Text != "Follow up in two weeks." {
		t.Errorf("unexpected entry %+v", entry)
	}
	if _, ok := v.Entry("PLAN", 5); ok {
		t.Error("expected out of range entry to be missing")
	}
	if SummaryKey("PLAN", 1) != "PLAN-1" {
		t.Errorf("unexpected summary key %q", SummaryKey("PLAN", 1))
	}
}

func TestSetPeaks(t *testing.T) {
	v := Build(loadFixture(t), nil)
	v.SetPeaks(make([]float64, 60), 6)
	if v.Duration != 6 || !reflect.DeepEqual(v.Silence, []audio.Region{{Start: 0, End: 6}}) {
		t.Errorf("unexpected silence %v for duration %v", v.Silence, v.Duration)
	}
}

type fakeInferer struct {
	calls []string
	fail  string
}

func (f *fakeInferer) Infer(_ context.Context, text string, _ types.Ontology) ([]types.Entity, error) {
	f.calls = append(f.calls, text)
	if text == f.fail {
		return nil, errors.New("throttled")
	}
	return []types.Entity{{Text: text, Category: "MEDICATION"}}, nil
}

func TestInferSections(t *testing.T) {
	sections := []types.Section{
		{Name: "CHIEF_COMPLAINT", Entries: []types.SummaryEntry{{Text: "Knee pain."}}},
		{Name: "HISTORY_OF_PRESENT_ILLNESS", Entries: []types.SummaryEntry{{Text: " "}}},
		{Name: "ASSESSMENT", Entries: []types.SummaryEntry{{Text: "Strain."}}},
		{Name: "PLAN", Entries: []types.SummaryEntry{{Text: "Ibuprofen."}, {Text: "Rest."}}},
	}
	inf := &fakeInferer{fail: "Strain."}
	rec := &notify.Recorder{}

	got := InferSections(context.Background(), inf, sections, types.OntologyRxNorm, rec)

	if !reflect.DeepEqual(inf.calls, []string{"Knee pain.", "Strain.", "Ibuprofen.\nRest."}) {
		t.Errorf("unexpected calls %q", inf.calls)
	}
	if _, ok := got["ASSESSMENT"]; ok {
		t.Error("failed section must be absent")
	}
	if len(got["PLAN"]) != 1 || len(got["CHIEF_COMPLAINT"]) != 1 {
		t.Errorf("unexpected result %v", got)
	}
	if rec.Count(notify.KindInference) != 1 {
		t.Errorf("expected one inference failure notification")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	inf.calls = nil
	if got := InferSections(ctx, inf, sections, types.OntologyRxNorm, nil); len(got) != 0 || len(inf.calls) != 0 {
		t.Errorf("expected no work after cancellation, got %v", got)
	}
}
