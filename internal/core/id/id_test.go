package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_TimeOrdered(t *testing.T) {
	a := New()

	assert.Equal(t, 7, int(a.Version()))
}

func TestParseOptional(t *testing.T) {
	v, err := ParseOptional("")
	require.NoError(t, err)
	assert.Nil(t, v)

	want := New()
	v, err = ParseOptional(want.String())
	require.NoError(t, err)
	assert.Equal(t, want, *v)

	_, err = ParseOptional("not-a-uuid")
	assert.Error(t, err)
}
