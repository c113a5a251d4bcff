package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mikey/email-guardian/internal/adapters/store"
	"github.com/mikey/email-guardian/internal/core"
	"github.com/mikey/email-guardian/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const phishingText = "URGENT: verify your account now, click here!!"

func newScanService(t *testing.T) (*core.ScanService, *utils.TextProcessor) {
	t.Helper()
	logger := zap.NewNop()
	tp := utils.NewTextProcessor(logger)
	return core.NewScanService(
		core.NewPatternMatcher(),
		core.NewAISignalClient(nil, 0, logger, tp),
		core.NewVerdictCombiner(),
		store.NewMemoryStore(logger),
		core.NewMonotonicClock(),
		tp,
		logger,
		0,
	), tp
}

func resetScanFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		scanText, scanRequester = "", "cli"
		scanAsEmail, scanJSON, scanPretty, failOnSuspicious = false, false, false, false
		scanConcurrency = 4
	})
}

func TestCollectInputs(t *testing.T) {
	resetScanFlags(t)
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(a, []byte("hello"), 0644))

	inputs, err := collectInputs(strings.NewReader("from stdin"), nil)
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, "stdin", inputs[0].source)
	assert.Equal(t, "from stdin", string(inputs[0].data))

	inputs, err = collectInputs(nil, []string{a})
	require.NoError(t, err)
	assert.Equal(t, a, inputs[0].source)

	_, err = collectInputs(nil, []string{filepath.Join(dir, "missing.txt")})
	assert.Error(t, err)

	scanText = "inline"
	inputs, err = collectInputs(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "text", inputs[0].source)

	_, err = collectInputs(nil, []string{a})
	assert.Error(t, err)
}

func TestScanAllKeepsOrder(t *testing.T) {
	resetScanFlags(t)
	scans, tp := newScanService(t)
	scanConcurrency = 2

	inputs := []scanInput{
		{source: "one", data: []byte(phishingText)},
		{source: "two", data: []byte("Hi Sarah, attaching the report, thanks.")},
		{source: "three", data: []byte("   ")},
	}
	outputs := scanAll(context.Background(), scans, tp, zap.NewNop(), inputs)

	require.Len(t, outputs, 3)
	assert.Equal(t, "one", outputs[0].Source)
	assert.Equal(t, string(core.ClassificationSuspicious), outputs[0].Classification)
	assert.Equal(t, string(core.ClassificationSafe), outputs[1].Classification)
	assert.NotEmpty(t, outputs[2].Error)
}

func TestScanOneEmail(t *testing.T) {
	resetScanFlags(t)
	scans, tp := newScanService(t)
	scanAsEmail = true

	raw := "From: a@example.com\r\nSubject: URGENT: verify your account\r\n\r\nclick here!!\r\n"
	out := scanOne(context.Background(), scans, tp, zap.NewNop(), scanInput{source: "mail", data: []byte(raw)})
	assert.Empty(t, out.Error)
	assert.Equal(t, string(core.ClassificationSuspicious), out.Classification)

	out = scanOne(context.Background(), scans, tp, zap.NewNop(), scanInput{source: "bad", data: []byte("not a header\r\n\r\nbody\r\n")})
	assert.Contains(t, out.Error, "malformed message")
}

func TestReport(t *testing.T) {
	resetScanFlags(t)
	suspicious := scanOutput{Source: "x", Classification: "suspicious", ScanID: "id-1", Persisted: true}

	var buf bytes.Buffer
	require.NoError(t, report(&buf, []scanOutput{suspicious}))
	assert.Contains(t, buf.String(), "Classification: suspicious")

	failOnSuspicious = true
	assert.ErrorIs(t, report(&bytes.Buffer{}, []scanOutput{suspicious}), errSuspicious)

	buf.Reset()
	scanJSON = true
	err := report(&buf, []scanOutput{{Source: "y", Error: "boom"}})
	assert.Error(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "boom", decoded["error"])
}
