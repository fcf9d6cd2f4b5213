package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the testctx banner to w using the terminal's color profile.
func PrintBanner(w io.Writer) {
	printBanner(w, termenv.ColorProfile())
}

func printBanner(w io.Writer, p termenv.Profile) {
	lines := []struct {
		text  string
		color string
	}{
		{" _            _        _", "#34d399"},
		{"| |_ ___  ___| |_ ___ | |_ __ __", "#2dd4bf"},
		{"| __/ _ \\/ __| __/ __|| __|\\ \\/ /", "#22d3ee"},
		{"| ||  __/\\__ \\ || (__ | |_  >  <", "#38bdf8"},
		{" \\__\\___||___/\\__\\___| \\__|/_/\\_\\", "#60a5fa"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, p.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
