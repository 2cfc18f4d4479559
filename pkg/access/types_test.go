package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePermission(t *testing.T) {
	p, err := ParsePermission("read-only")
	require.NoError(t, err)
	assert.Equal(t, ReadOnly, p)

	p, err = ParsePermission("Read-Write")
	require.NoError(t, err)
	assert.Equal(t, ReadWrite, p)

	_, err = ParsePermission("rw")
	assert.Error(t, err)
}

func TestPermissionMatrix(t *testing.T) {
	ro := DirectoryRoot{Name: "ro", Permission: ReadOnly}
	rw := DirectoryRoot{Name: "rw", Permission: ReadWrite}

	assert.True(t, ro.allows(Read))
	assert.False(t, ro.allows(Write))
	assert.True(t, rw.allows(Read))
	assert.True(t, rw.allows(Write))
	assert.False(t, rw.allows(Operation(7)))
}
