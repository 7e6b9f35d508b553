package main

import (
	"bytes"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternFramesDecodeAndDiffer(t *testing.T) {
	a, err := patternFrame(0)
	require.NoError(t, err)
	b, err := patternFrame(1)
	require.NoError(t, err)

	assert.False(t, bytes.Equal(a, b))

	img, err := jpeg.Decode(bytes.NewReader(a))
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
}
