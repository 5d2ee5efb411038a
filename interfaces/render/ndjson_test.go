package render

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainservices "github.com/santiagotion/sentinel-sub001/domain/services"
)

func frameAt(tick int) domainservices.Frame {
	return domainservices.Frame{
		Nodes: []domainservices.FrameNode{{ID: "acc-1", X: 1, Y: 2, Radius: 8, Kind: "account"}},
		Edges: []domainservices.FrameEdge{},
		Tick:  tick,
		State: domainservices.StateRunning,
	}
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var line map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		out = append(out, line)
	}
	require.NoError(t, scanner.Err())
	return out
}

func TestFrameEncoderWritesOneObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	enc := NewFrameEncoder(&buf, 0)
	sink := enc.Sink()

	for i := 1; i <= 3; i++ {
		sink(frameAt(i))
	}

	require.NoError(t, enc.Err())
	assert.Equal(t, 3, enc.Count())

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)
	assert.Equal(t, 3.0, lines[2]["tick"])
	node := lines[0]["nodes"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "acc-1", node["id"])
	assert.Contains(t, node, "pinned")
}

func TestFrameEncoderSampling(t *testing.T) {
	var buf bytes.Buffer
	enc := NewFrameEncoder(&buf, 3)

	for i := 1; i <= 7; i++ {
		require.NoError(t, enc.Encode(frameAt(i)))
	}
	require.NoError(t, enc.Force(frameAt(8)))

	var ticks []float64
	for _, line := range decodeLines(t, &buf) {
		ticks = append(ticks, line["tick"].(float64))
	}
	assert.Equal(t, []float64{1, 4, 7, 8}, ticks)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestFrameEncoderKeepsFirstError(t *testing.T) {
	enc := NewFrameEncoder(failingWriter{}, 1)

	err := enc.Encode(frameAt(1))
	require.Error(t, err)
	assert.Equal(t, err, enc.Encode(frameAt(2)))
	assert.Equal(t, err, enc.Err())
	assert.Equal(t, 0, enc.Count())
}

func TestWriteProjection(t *testing.T) {
	var buf bytes.Buffer
	projection := &domainservices.TimelineProjection{
		Width:  800,
		Height: 400,
		EventPoints: []domainservices.EventPoint{
			{ID: "ev-1", X: 0, Y: 400, Radius: 3},
		},
	}

	require.NoError(t, WriteProjection(&buf, projection))
	assert.True(t, strings.Contains(buf.String(), `"eventPoints"`))

	var decoded domainservices.TimelineProjection
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, projection.EventPoints, decoded.EventPoints)
}
