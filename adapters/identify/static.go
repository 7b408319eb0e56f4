package identify

import (
	"context"

	"gocausal/domain/causal"
	"gocausal/domain/core"
	"gocausal/ports"
)

// StaticIdentifier returns a fixed, user-supplied backdoor set
type StaticIdentifier struct {
	set causal.ConfounderSet
}

var _ ports.IdentifierPort = StaticIdentifier{}

// NewStaticIdentifier wraps a known adjustment set
func NewStaticIdentifier(confounders ...string) StaticIdentifier {
	return StaticIdentifier{set: causal.NewConfounderSet(confounders...)}
}

// Identify returns the fixed set; every member must be an observed column
func (s StaticIdentifier) Identify(ctx context.Context, causes, outcomes []string, columns []string) (causal.ConfounderSet, error) {
	observed := toSet(columns)
	var missing []string
	for _, name := range s.set.Names() {
		if !observed[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return causal.ConfounderSet{}, core.NewUnidentifiableError(causes, missing)
	}
	return s.set, nil
}
