package rules

import (
	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/models"
)

// DocumentCheckpointSkipped is recorded when no documents accompany a
// transaction.
const DocumentCheckpointSkipped = "skipped_no_docs"

// DocumentFlags flags transactions without supporting documents. Document
// content review is left to the reasoning augmentation.
func DocumentFlags(node string) Stage {
	return func(s models.State) (models.State, error) {
		if len(s.Transaction.Documents) > 0 {
			return s, nil
		}
		next := s.Clone()
		next.Checkpoint(node, DocumentCheckpointSkipped)
		next.AddAlert("MISSING_DOCUMENTATION: No supporting documents provided")
		next.AddFactor("NO_SUPPORTING_DOCS")
		return next, nil
	}
}
