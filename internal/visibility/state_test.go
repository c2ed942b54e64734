package visibility

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBackendKind_Valid(t *testing.T) {
	assert.True(t, KindIngestion.Valid())
	assert.True(t, KindGraph.Valid())
	assert.True(t, KindUI.Valid())
	assert.False(t, BackendKind("").Valid())
	assert.False(t, BackendKind("CACHE").Valid())
}

func TestVisibilityState_Confidence_Ordering(t *testing.T) {
	// UI visibility is the strongest signal; UNKNOWN ranks below everything.
	ordered := []VisibilityState{
		StateUnknown,
		StateFailed,
		StateNotFound,
		StateIngested,
		StateSynthesized,
		StateUIVisible,
	}
	for i := 1; i < len(ordered); i++ {
		assert.True(t, ordered[i].MoreConfident(ordered[i-1]),
			"%s should be more confident than %s", ordered[i], ordered[i-1])
		assert.False(t, ordered[i-1].MoreConfident(ordered[i]))
	}
}

func TestVisibilityState_MoreConfident_NotReflexive(t *testing.T) {
	assert.False(t, StateSynthesized.MoreConfident(StateSynthesized))
}

func TestErrorKind_Transient(t *testing.T) {
	assert.True(t, ErrNetwork.Transient())
	assert.True(t, ErrTimeout.Transient())
	assert.False(t, ErrQuery.Transient())
	assert.False(t, ErrAuth.Transient())
	assert.False(t, ErrNone.Transient())
}
