package transcript

import (
	"strconv"
	"strings"

	"github.com/embano1/healthscribe-demo/internal/types"
)

// Labeler turns participant roles such as CLINICIAN_0 into display labels, numbering
// speakers only when a role is shared by several of them.
type Labeler struct {
	multi map[string]bool
}

// NewLabeler builds a Labeler from the roles of the given segments.
func NewLabeler(segments []types.Segment) *Labeler {
	roles := make([]string, 0, len(segments))
	for _, s := range segments {
		roles = append(roles, s.ParticipantRole)
	}
	return &Labeler{multi: MultiSpeakerRoles(roles)}
}

// MultiSpeakerRoles returns the role prefixes used by more than one distinct speaker.
// With two or fewer distinct roles there is nothing to disambiguate.
func MultiSpeakerRoles(roles []string) map[string]bool {
	distinct := make(map[string]struct{})
	for _, r := range roles {
		distinct[r] = struct{}{}
	}

	multi := make(map[string]bool)
	if len(distinct) <= 2 {
		return multi
	}

	counts := make(map[string]int)
	for r := range distinct {
		prefix, _ := splitRole(r)
		counts[prefix]++
	}
	for prefix, n := range counts {
		if n > 1 {
			multi[prefix] = true
		}
	}
	return multi
}

// IsMulti reports whether prefix is shared by several speakers.
func (l *Labeler) IsMulti(prefix string) bool {
	return l.multi[prefix]
}

// Label returns the display label for role, e.g. "Clinician" or "Clinician 2".
func (l *Labeler) Label(role string) string {
	prefix, suffix := splitRole(role)
	label := titleCase(prefix)
	if !l.IsMulti(prefix) || suffix == "" {
		return label
	}
	if n, err := strconv.Atoi(suffix); err == nil {
		return label + " " + strconv.Itoa(n+1)
	}
	return label + " " + suffix
}

// Labels maps every distinct role of the segments to its label.
func (l *Labeler) Labels(segments []types.Segment) map[string]string {
	out := make(map[string]string)
	for _, s := range segments {
		if _, ok := out[s.ParticipantRole]; !ok {
			out[s.ParticipantRole] = l.Label(s.ParticipantRole)
		}
	}
	return out
}

func splitRole(role string) (string, string) {
	i := strings.LastIndex(role, "_")
	if i < 0 {
		return role, ""
	}
	return role[:i], role[i+1:]
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	s = strings.ToLower(strings.ReplaceAll(s, "_", " "))
	return strings.ToUpper(s[:1]) + s[1:]
}
