package fitstest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/fitsthumb/pkg/fits"
	"github.com/ssargent/fitsthumb/pkg/fits/fitstest"
)

func TestRampDecodes(t *testing.T) {
	img, err := fits.Decode(fitstest.Ramp(3, 2))
	require.NoError(t, err)
	assert.Equal(t, uint32(3), img.Width)
	assert.Equal(t, uint32(2), img.Height)
	assert.Equal(t, []float32{0, 1, 2, 3, 4, 5}, img.Pixels)
}
