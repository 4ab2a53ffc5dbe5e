package main

import (
	"bytes"
	"path/filepath"
	"shadowswap/capture"
	"shadowswap/game"
	"shadowswap/util"
	"shadowswap/wire"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCapture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dump.cap")
	w, err := capture.Create(path)
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, w.Record(capture.DirectionOut, now, wire.Encode(&wire.PlayerUpdate{Tick: 1, Player: game.ClientPlayer})))
	require.NoError(t, w.Record(capture.DirectionIn, now, wire.Encode(&wire.ScoreUpdate{Tick: 2, Player: game.HostPlayer, Score: 1})))
	require.NoError(t, w.Record(capture.DirectionIn, now, wire.Encode(&wire.PhaseChange{Tick: 2, Phase: game.PhasePlaying})))
	require.NoError(t, w.Close())
	return path
}

func TestDump(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, dump(writeCapture(t), &out, "", ""))

	text := out.String()
	assert.True(t, strings.HasPrefix(text, capture.TableHeader))
	assert.Contains(t, text, "PLAYER")
	assert.Contains(t, text, "score=1")
	assert.Contains(t, text, "2 received, 1 sent")
}

func TestDumpFilters(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, dump(writeCapture(t), &out, "in", "SCORE"))

	text := out.String()
	assert.NotContains(t, text, "PLAYER ")
	assert.NotContains(t, text, "phase=")
	assert.Contains(t, text, "1 received, 0 sent")
}

func TestDumpMissingFile(t *testing.T) {
	assert.Error(t, dump(filepath.Join(t.TempDir(), "nope.cap"), &bytes.Buffer{}, "", ""))
}

func TestDecodeHex(t *testing.T) {
	frame := wire.Encode(&wire.ScoreUpdate{Tick: 42, Player: game.ClientPlayer, Score: 2})

	var out bytes.Buffer
	require.NoError(t, decodeHex(util.DataToHex(frame), &out))

	text := out.String()
	assert.True(t, strings.HasPrefix(text, capture.TableHeader))
	assert.Contains(t, text, "SCORE")
	assert.Contains(t, text, "42")
	assert.Contains(t, text, "player=client score=2")
}

func TestDecodeHexRejectsGarbage(t *testing.T) {
	assert.Error(t, decodeHex("04 ZZ", &bytes.Buffer{}))
	assert.Error(t, decodeHex("   ", &bytes.Buffer{}))
}
