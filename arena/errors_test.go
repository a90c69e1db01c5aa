package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := newError(Resource, "no %d-byte range available", 4096)
	assert.Equal(t, "Resource: no 4096-byte range available", err.Error())
	assert.Equal(t, Resource, err.Kind)
}

func TestErrKind(t *testing.T) {
	assert.Equal(t, OK, errKind(nil))
	assert.Equal(t, Memory, errKind(newError(Memory, "x")))
	assert.Equal(t, Fail, errKind(assert.AnError), "a foreign error must map to Fail, never be mistaken for success")
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		OK:          "OK",
		Memory:      "Memory",
		Resource:    "Resource",
		CommitLimit: "CommitLimit",
		Limit:       "Limit",
		Fail:        "Fail",
		Unimpl:      "Unimpl",
		Kind(999):   "Unknown",
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
}
