package grid

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrameRejectsOutOfBoundsRow(t *testing.T) {
	f, err := ParseFrame("F:1:1000:Z:0:0:500:Z:5:0:300:E", 4)
	require.NoError(t, err)

	want := Frame{
		Number:       1,
		DeviceMillis: 1000,
		Zones:        []Zone{{Row: 0, Col: 0, DistanceMM: 500}},
		Rejected:     1,
	}
	if diff := cmp.Diff(want, f); diff != "" {
		t.Errorf("ParseFrame mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFrameValidation(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		size     int
		zones    []Zone
		rejected int
	}{
		{name: "col out of range", line: "F:2:5:Z:1:4:200:Z:1:3:200:E", size: 4,
			zones: []Zone{{1, 3, 200}}, rejected: 1},
		{name: "negative row", line: "F:2:5:Z:-1:0:200:E", size: 4, rejected: 1},
		{name: "distance too near", line: "F:2:5:Z:0:0:9:Z:0:1:10:E", size: 4,
			zones: []Zone{{0, 1, 10}}, rejected: 1},
		{name: "distance too far", line: "F:2:5:Z:0:0:1181:Z:0:1:1180:E", size: 4,
			zones: []Zone{{0, 1, 1180}}, rejected: 1},
		{name: "8x8 accepts row 7", line: "F:2:5:Z:7:7:300:E", size: 8,
			zones: []Zone{{7, 7, 300}}},
		{name: "no terminator", line: "F:2:5:Z:0:0:300:Z:1:1:400", size: 4,
			zones: []Zone{{0, 0, 300}, {1, 1, 400}}},
		{name: "stops at E", line: "F:2:5:Z:0:0:300:E:Z:1:1:400:E", size: 4,
			zones: []Zone{{0, 0, 300}}},
		{name: "truncated quad", line: "F:2:5:Z:0:0:300:Z:1:1", size: 4,
			zones: []Zone{{0, 0, 300}}},
		{name: "non-numeric quad resyncs", line: "F:2:5:Z:x:0:300:Z:1:1:400:E", size: 4,
			zones: []Zone{{1, 1, 400}}},
		{name: "junk tokens skipped", line: "F:2:5:junk:Z:2:2:222:E", size: 4,
			zones: []Zone{{2, 2, 222}}},
		{name: "empty frame", line: "F:2:5:E", size: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFrame(tt.line, tt.size)
			require.NoError(t, err)
			assert.Equal(t, tt.zones, f.Zones)
			assert.Equal(t, tt.rejected, f.Rejected)
		})
	}
}

func TestParseFrameErrors(t *testing.T) {
	tests := []struct {
		line string
		want error
	}{
		{"Sensor ready", ErrNotFrame},
		{"", ErrNotFrame},
		{"90,600", ErrNotFrame},
		{"F:1:2", ErrBadHeader},
		{"F:x:1000:E", ErrBadHeader},
		{"F:1:later:E", ErrBadHeader},
	}
	for _, tt := range tests {
		_, err := ParseFrame(tt.line, 4)
		assert.ErrorIs(t, err, tt.want, tt.line)
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"heatmap": ModeHeatmap, "3D": Mode3D, " both ": ModeBoth} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseMode("surface")
	assert.ErrorIs(t, err, ErrUnknownMode)

	assert.True(t, ModeBoth.ShowsHeatmap())
	assert.True(t, ModeBoth.Shows3D())
	assert.False(t, ModeHeatmap.Shows3D())
	assert.False(t, Mode3D.ShowsHeatmap())
}

func TestValidSize(t *testing.T) {
	assert.True(t, ValidSize(4))
	assert.True(t, ValidSize(8))
	assert.False(t, ValidSize(6))
}
