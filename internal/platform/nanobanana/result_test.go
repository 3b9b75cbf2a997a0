package nanobanana

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeResultJSON(t *testing.T) {
	t.Parallel()

	res, err := decodeResultJSON(`{"resultUrls":["https://cdn.example/x.png"]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.example/x.png"}, res.URLs)

	res, err = decodeResultJSON(`{}`)
	require.NoError(t, err)
	assert.Empty(t, res.URLs)

	_, err = decodeResultJSON(`[`)
	assert.Error(t, err)
}
