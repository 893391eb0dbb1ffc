package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate_Deterministic(t *testing.T) {
	a := Generate([]byte("same content"))
	b := Generate([]byte("same content"))
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestGenerate_DifferentContent(t *testing.T) {
	a := Generate([]byte("one"))
	b := Generate([]byte("two"))
	assert.NotEqual(t, a, b)
}

func TestHasChanged(t *testing.T) {
	fp := Generate([]byte("doc"))
	assert.False(t, HasChanged(fp, fp))
	assert.True(t, HasChanged(fp, Generate([]byte("other"))))
	assert.True(t, HasChanged("", fp))
}
