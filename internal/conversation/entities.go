package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/embano1/healthscribe-demo/internal/notify"
	"github.com/embano1/healthscribe-demo/internal/types"
)

// EntityInferer runs medical entity inference over free text.
type EntityInferer interface {
	Infer(ctx context.Context, text string, ontology types.Ontology) ([]types.Entity, error)
}

// InferSections runs inference for each summary section in turn, one request at a time.
// A failing section is reported to n and skipped; the remaining sections are still
// processed. It stops early only when ctx is done.
func InferSections(ctx context.Context, inf EntityInferer, sections []types.Section, ontology types.Ontology, n notify.Notifier) map[string][]types.Entity {
	if n == nil {
		n = notify.Discard
	}
	out := make(map[string][]types.Entity, len(sections))
	for _, s := range sections {
		if ctx.Err() != nil {
			break
		}
		text := sectionText(s)
		if text == "" {
			continue
		}
		entities, err := inf.Infer(ctx, text, ontology)
		if err != nil {
			n.Notify(notify.New(notify.LevelError, notify.KindInference, fmt.Sprintf("Unable to extract medical entities for %s: %v", s.Name, err)))
			continue
		}
		out[s.Name] = entities
	}
	return out
}

func sectionText(s types.Section) string {
	lines := make([]string, 0, len(s.Entries))
	for _, e := range s.Entries {
		if t := strings.TrimSpace(e.Text); t != "" {
			lines = append(lines, t)
		}
	}
	return strings.Join(lines, "\n")
}
