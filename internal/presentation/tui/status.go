package tui

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/muesli/termenv"

	"github.com/aretw0/testctx/pkg/domain"
)

// Status labels.
const (
	StatusIdle    = "idle"
	StatusRunning = "running"
	StatusStopped = "stopped"
)

// StatusOf summarizes a snapshot as idle, running or stopped.
func StatusOf(s domain.Snapshot) string {
	switch {
	case s.Stopped:
		return StatusStopped
	case s.Created:
		return StatusRunning
	default:
		return StatusIdle
	}
}

// RenderStatus writes one row per group snapshot.
func RenderStatus(w io.Writer, snaps []domain.Snapshot) error {
	return renderStatus(w, snaps, termenv.ColorProfile())
}

func renderStatus(w io.Writer, snaps []domain.Snapshot, p termenv.Profile) error {
	if len(snaps) == 0 {
		_, err := fmt.Fprintln(w, p.String("no snapshots recorded").Faint())
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, p.String("GROUP\tSTATUS\tEXTENSION\tRUNNING\tRESTARTS\tWAITING\tPHASE\tUPDATED").Bold())
	for _, s := range snaps {
		status := StatusOf(s)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%d\t%s\t%s\t%s\n",
			s.Group,
			p.String(status).Foreground(p.Color(statusColor(status))),
			s.Extension,
			s.Running, s.Executions,
			s.Restarts,
			orDash(strings.Join(s.Waiting, ",")),
			orDash(s.Phase),
			updated(s),
		)
	}
	return tw.Flush()
}

func statusColor(status string) string {
	switch status {
	case StatusRunning:
		return "#22c55e"
	case StatusStopped:
		return "#94a3b8"
	default:
		return "#eab308"
	}
}

func updated(s domain.Snapshot) string {
	if s.UpdatedAt.IsZero() {
		return "-"
	}
	return s.UpdatedAt.Format("15:04:05")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
