// Package analyzer defines the contribution analysis contract and the shared
// folder-tree aggregation. The blame subpackage is the git-backed
// implementation; tests substitute fakes.
package analyzer

import (
	"context"

	"gitworth/internal/appraisal"
)

// Analyzer computes the whole-project contribution tree for a local checkout.
// Implementations must be safe to re-run: a redelivered job analyzes the same
// checkout again and must converge on an equivalent tree.
type Analyzer interface {
	Analyze(ctx context.Context, ref appraisal.ProjectRef, checkoutPath string) (*appraisal.FolderNode, error)
}
