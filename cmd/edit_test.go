package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = "one\ntwo\nthree\nfour\n"

func TestSliceRegionWholeFile(t *testing.T) {
	selection, err := sliceRegion(sampleDoc, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, sampleDoc, selection)
}

func TestSliceRegionRange(t *testing.T) {
	selection, err := sliceRegion(sampleDoc, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, "two\nthree", selection)
}

func TestSliceRegionSingleLine(t *testing.T) {
	selection, err := sliceRegion(sampleDoc, 4, 4)
	require.NoError(t, err)
	assert.Equal(t, "four", selection)
}

func TestSliceRegionInvalidBounds(t *testing.T) {
	for _, bounds := range [][2]int{{0, 2}, {3, 2}, {1, 99}, {-1, 1}} {
		_, err := sliceRegion(sampleDoc, bounds[0], bounds[1])
		assert.Error(t, err, "bounds %v", bounds)
	}
}

func TestSpliceRegionReplacesSelection(t *testing.T) {
	updated, err := spliceRegion(sampleDoc, "TWO\nTHREE", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, "one\nTWO\nTHREE\nfour\n", updated)
}

func TestSpliceRegionWholeFile(t *testing.T) {
	updated, err := spliceRegion(sampleDoc, "replaced", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "replaced", updated)
}

func TestSpliceRegionGrowsAndShrinks(t *testing.T) {
	grown, err := spliceRegion(sampleDoc, "a\nb\nc", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, "one\na\nb\nc\nthree\nfour\n", grown)

	shrunk, err := spliceRegion(sampleDoc, "merged", 1, 3)
	require.NoError(t, err)
	assert.Equal(t, "merged\nfour\n", shrunk)
}

func TestSpliceRoundTrip(t *testing.T) {
	selection, err := sliceRegion(sampleDoc, 2, 3)
	require.NoError(t, err)
	updated, err := spliceRegion(sampleDoc, selection, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, sampleDoc, updated)
}

func TestBridgeWebsocketURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{":8097", "ws://127.0.0.1:8097/ws"},
		{"0.0.0.0:9000", "ws://127.0.0.1:9000/ws"},
		{"localhost:8097", "ws://localhost:8097/ws"},
		{"", "ws://127.0.0.1:8097/ws"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, bridgeWebsocketURL(tt.addr), "addr %q", tt.addr)
	}
}

func TestEditCommandConfiguration(t *testing.T) {
	require.NotNil(t, editCmd.Args)
	assert.Error(t, editCmd.Args(editCmd, []string{}))
	assert.NoError(t, editCmd.Args(editCmd, []string{"main.go"}))
	assert.Error(t, editCmd.Args(editCmd, []string{"a.go", "b.go"}))

	assert.NotNil(t, editCmd.Flags().Lookup("instruction"))
	assert.NotNil(t, editCmd.Flags().Lookup("apply"))
	assert.NotNil(t, editCmd.Flags().Lookup("max-retries"))
}
