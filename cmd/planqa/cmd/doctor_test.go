package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoctorCmd_Ready(t *testing.T) {
	// Given: a hash embedder and the extractive generator
	home := testEnv(t)

	// When: doctor runs
	out, err := execute(t, home, nil, "doctor", "--verbose")

	// Then: every check passes
	require.NoError(t, err)
	assert.Contains(t, out, "planqa system check")
	assert.Contains(t, out, "[PASS] embedder")
	assert.Contains(t, out, "Status: READY")
}

func TestDoctorCmd_JSON(t *testing.T) {
	home := testEnv(t)

	out, err := execute(t, home, nil, "doctor", "--json")

	require.NoError(t, err)
	var report struct {
		Status string `json:"status"`
		Checks []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "ready", report.Status)
	require.NotEmpty(t, report.Checks)
	assert.Equal(t, "config", report.Checks[0].Name)
	assert.Equal(t, "pass", report.Checks[0].Status)
}

func TestDoctorCmd_FailsOnOfflineEmbedder(t *testing.T) {
	// Given: an Ollama embedder pointed at a closed port
	home := testEnv(t)
	t.Setenv("PLANQA_EMBEDDER", "ollama")
	t.Setenv("PLANQA_OLLAMA_HOST", "http://127.0.0.1:1")

	// When: doctor runs
	out, err := execute(t, home, nil, "doctor")

	// Then: the embedder check fails the command
	require.Error(t, err)
	assert.Contains(t, out, "[FAIL] embedder")
	assert.Contains(t, out, "Status: FAILED")
}
