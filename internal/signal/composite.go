package signal

import (
	"strings"

	"prop-trading-lab/internal/domain"
	"prop-trading-lab/internal/feed"
)

// Composite combines independent generators by vote. Members are
// evaluated in order; if any two firing members disagree on direction
// the bar produces no trade. Disagreement never resolves to a default
// direction.
type Composite struct {
	members []Generator
}

// NewComposite creates a vote combiner over the given members.
func NewComposite(members ...Generator) *Composite {
	return &Composite{members: members}
}

// ID returns the combined identifier of all members.
func (g *Composite) ID() string {
	ids := make([]string, len(g.members))
	for i, m := range g.members {
		ids[i] = m.ID()
	}
	return "COMPOSITE(" + strings.Join(ids, "+") + ")"
}

// WarmupBars returns the longest member warm-up.
func (g *Composite) WarmupBars() int {
	warmup := 0
	for _, m := range g.members {
		if w := m.WarmupBars(); w > warmup {
			warmup = w
		}
	}
	return warmup
}

// Evaluate collects member votes for bar i. The first firing intent is
// returned unless a later member votes the opposite direction, which
// cancels the bar to nil.
func (g *Composite) Evaluate(f *feed.Feed, i int) *domain.EntryIntent {
	var first *domain.EntryIntent
	for _, m := range g.members {
		intent := m.Evaluate(f, i)
		if intent == nil {
			continue
		}
		if first == nil {
			first = intent
			continue
		}
		if intent.Direction != first.Direction {
			return nil
		}
	}
	return first
}

var _ Generator = (*Composite)(nil)
