// Package summary normalizes HealthScribe clinical documents into one section model and
// regroups the plan section by its inline sub-headers.
package summary

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/embano1/healthscribe-demo/internal/types"
)

// ErrUnknownShape is returned when a summary payload matches none of the known layouts.
var ErrUnknownShape = errors.New("unrecognized clinical document layout")

// Normalize decodes a summary payload in any of the layouts HealthScribe has produced and
// returns its sections in canonical form:
//
//   - {"ClinicalDocumentation": {"Sections": [...]}} (current)
//   - {"Sections": [...]} (preview, no wrapper)
//   - {"ClinicalDocumentation": {"<SECTION_NAME>": [...]}} (section map)
func Normalize(raw []byte) ([]types.Section, error) {
	var envelope struct {
		ClinicalDocumentation json.RawMessage        `json:"ClinicalDocumentation"`
		Sections              []types.SummarySection `json:"Sections"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decoding clinical document: %w", err)
	}

	switch {
	case len(envelope.ClinicalDocumentation) > 0:
		return normalizeDocumentation(envelope.ClinicalDocumentation)
	case envelope.Sections != nil:
		return FromSections(envelope.Sections), nil
	default:
		return nil, ErrUnknownShape
	}
}

func normalizeDocumentation(raw json.RawMessage) ([]types.Section, error) {
	var doc types.ClinicalDocumentation
	if err := json.Unmarshal(raw, &doc); err == nil && doc.Sections != nil {
		return FromSections(doc.Sections), nil
	}

	var byName map[string][]types.SummarizedSegment
	if err := json.Unmarshal(raw, &byName); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownShape, err)
	}
	delete(byName, "Sections")

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	// map order is random, keep unknown names deterministic
	sort.Strings(names)

	sections := make([]types.SummarySection, 0, len(names))
	for _, name := range names {
		sections = append(sections, types.SummarySection{SectionName: name, Summary: byName[name]})
	}
	return FromSections(sections), nil
}

// FromSections converts typed payload sections into canonical sections.
func FromSections(in []types.SummarySection) []types.Section {
	out := make([]types.Section, 0, len(in))
	for _, s := range in {
		entries := make([]types.SummaryEntry, 0, len(s.Summary))
		for _, e := range s.Summary {
			entries = append(entries, types.SummaryEntry{
				Text:          e.SummarizedSegment,
				EvidenceLinks: e.EvidenceLinks,
			})
		}
		out = append(out, types.Section{Name: s.SectionName, Entries: entries})
	}
	return out
}
