package summary

import (
	"sort"
	"strings"

	"github.com/embano1/healthscribe-demo/internal/types"
)

// PlanSection is the section whose entries embed sub-headers.
const PlanSection = "PLAN"

// NoHeader groups entries that appear before the first sub-header.
const NoHeader = ""

// sectionOrder is the display order of known section names.
var sectionOrder = []string{
	"CHIEF_COMPLAINT",
	"HISTORY_OF_PRESENT_ILLNESS",
	"REVIEW_OF_SYSTEMS",
	"PAST_MEDICAL_HISTORY",
	"PAST_FAMILY_HISTORY",
	"PAST_SOCIAL_HISTORY",
	"PHYSICAL_EXAMINATION",
	"DIAGNOSTIC_TESTING",
	"ASSESSMENT",
	"PLAN",
}

func sectionRank(name string) int {
	for i, n := range sectionOrder {
		if n == name {
			return i
		}
	}
	return len(sectionOrder)
}

// SortSections orders sections by the known section order. Unknown names go last and keep
// their relative order.
func SortSections(sections []types.Section) {
	sort.SliceStable(sections, func(i, j int) bool {
		return sectionRank(sections[i].Name) < sectionRank(sections[j].Name)
	})
}

// RegroupPlan splits entries that start with an inline sub-header ("Header\nText") into
// header groups. Entries without a header line belong to the most recent header.
func RegroupPlan(entries []types.SummaryEntry) []types.HeaderGroup {
	var groups []types.HeaderGroup
	index := make(map[string]int)
	current := NoHeader

	add := func(header string, e types.SummaryEntry) {
		i, ok := index[header]
		if !ok {
			i = len(groups)
			index[header] = i
			groups = append(groups, types.HeaderGroup{Header: header})
		}
		groups[i].Entries = append(groups[i].Entries, e)
	}

	for _, e := range entries {
		lines := strings.Split(e.Text, "\n")
		if len(lines) == 1 {
			add(current, e)
			continue
		}

		current = strings.TrimSpace(lines[0])
		var rest []string
		for _, l := range lines[1:] {
			if l = strings.TrimSpace(l); l != "" {
				rest = append(rest, l)
			}
		}
		add(current, types.SummaryEntry{
			Text:          strings.Join(rest, "\n"),
			EvidenceLinks: e.EvidenceLinks,
		})
	}
	return groups
}
