package ports

import (
	"context"

	"gocausal/domain/causal"
)

// IdentifierPort produces the backdoor adjustment set for a treatment/outcome pair.
// Implementations return core.ErrUnidentifiableEffect when no observed set blocks
// every backdoor path.
type IdentifierPort interface {
	Identify(ctx context.Context, causes, outcomes []string, columns []string) (causal.ConfounderSet, error)
}
