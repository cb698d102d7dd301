package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuditEventCategory(t *testing.T) {
	assert.Equal(t, CategoryCompliance, EventSARGenerated.Category())
	assert.Equal(t, CategoryCompliance, EventDispositionResolved.Category())
	assert.Equal(t, CategoryOperations, EventAssessmentCompleted.Category())
	assert.Equal(t, CategoryOperations, AuditEvent("something_new").Category())
}
