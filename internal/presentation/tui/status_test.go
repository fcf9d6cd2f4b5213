package tui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/testctx/pkg/domain"
)

func TestStatusOf(t *testing.T) {
	assert.Equal(t, StatusIdle, StatusOf(domain.Snapshot{}))
	assert.Equal(t, StatusRunning, StatusOf(domain.Snapshot{Created: true}))
	assert.Equal(t, StatusStopped, StatusOf(domain.Snapshot{Created: true, Stopped: true}))
}

func TestRenderStatus(t *testing.T) {
	var buf bytes.Buffer
	at := time.Date(2026, 1, 2, 13, 14, 15, 0, time.UTC)

	err := renderStatus(&buf, []domain.Snapshot{
		{Group: "db", Extension: "reloadable", Created: true, Running: 1, Executions: 3, Restarts: 2, Waiting: []string{"TestA", "TestB"}, Phase: "AfterEach", UpdatedAt: at},
		{Group: "web", Extension: "default"},
	}, termenv.Ascii)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "GROUP")
	assert.Equal(t, []string{"db", "running", "reloadable", "1/3", "2", "TestA,TestB", "AfterEach", "13:14:15"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"web", "idle", "default", "0/0", "0", "-", "-", "-"}, strings.Fields(lines[2]))
}

func TestRenderStatus_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderStatus(&buf, nil, termenv.Ascii))
	assert.Contains(t, buf.String(), "no snapshots recorded")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	printBanner(&buf, termenv.Ascii)
	assert.NotContains(t, buf.String(), "\x1b[")
	assert.Equal(t, 7, strings.Count(buf.String(), "\n"))
}
