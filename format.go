package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/tonimelisma/dropbox-go/internal/dropbox"
)

// sizeUnits are binary multiples, matching what the Dropbox apps show.
var sizeUnits = []string{"KB", "MB", "GB", "TB"}

// formatSize returns a human-readable size string (e.g. "1.2 MB").
func formatSize(bytes int64) string {
	if bytes < 1024 {
		return fmt.Sprintf("%d B", bytes)
	}

	v := float64(bytes) / 1024
	unit := 0

	for v >= 1024 && unit < len(sizeUnits)-1 {
		v /= 1024
		unit++
	}

	return fmt.Sprintf("%.1f %s", v, sizeUnits[unit])
}

// formatTime renders a server timestamp in local time, ls -l style. The
// Dropbox API omits times for folders, shown as "-".
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	layout := "Jan _2  2006"
	if t = t.Local(); t.Year() == time.Now().Year() {
		layout = "Jan _2 15:04"
	}

	return t.Format(layout)
}

// entryRow is one ls line: folders get a trailing slash and no size,
// time or revision.
func entryRow(e dropbox.EntryMetadata) []string {
	if e.IsFolder {
		return []string{e.Name + "/", "-", "-", "-"}
	}

	rev := e.Rev
	if rev == "" {
		rev = "-"
	}

	return []string{e.Name, formatSize(e.Size), formatTime(e.Modified), rev}
}

// printTable writes columns separated by two spaces. The last column is
// not padded.
func printTable(w io.Writer, headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	_ = tw.Flush()
}
