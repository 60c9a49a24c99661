package cidutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSum_DeterministicAndDistinct(t *testing.T) {
	a, err := Sum([]byte(`[{"type":"function","name":"get"}]`))
	require.NoError(t, err)
	b, err := Sum([]byte(`[{"type":"function","name":"get"}]`))
	require.NoError(t, err)
	require.Equal(t, a, b)

	c, err := Sum([]byte(`[]`))
	require.NoError(t, err)
	require.NotEqual(t, a, c)

	require.Equal(t, a.String(), String([]byte(`[{"type":"function","name":"get"}]`)))

	parsed, err := Parse(a.String())
	require.NoError(t, err)
	require.Equal(t, a, parsed)

	_, err = Parse("not-a-cid")
	require.Error(t, err)
}
