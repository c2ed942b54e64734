package visibility

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	// "caf\u00e9" precomposed vs decomposed (e + combining acute accent).
	precomposed := "caf\u00e9"
	decomposed := "cafe\u0301"

	assert.Equal(t, precomposed, NormalizeName(decomposed))
	assert.Equal(t, "cluster", NormalizeName("  cluster\t"))
}

func TestSameName(t *testing.T) {
	assert.True(t, SameName("caf\u00e9", "cafe\u0301"))
	assert.True(t, SameName(" prod-kafka ", "prod-kafka"))
	assert.False(t, SameName("prod-kafka", "prod-kafka-2"))
}
