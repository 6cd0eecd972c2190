package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/nexconsult/investigacao-api/internal/models"
)

var (
	bold  = color.New(color.Bold).SprintFunc()
	cyan  = color.New(color.FgCyan, color.Bold).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed, color.Bold).SprintFunc()
	amber = color.New(color.FgYellow).SprintFunc()
)

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// table writes tab-separated rows aligned into columns
func table(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, bold(strings.Join(header, "\t")))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func statusText(status string) string {
	switch status {
	case string(models.ProgressCompleted), string(models.ExecutionSuccess):
		return green(status)
	case string(models.ProgressPartial), string(models.InvestigationInProgress), string(models.ProgressRunning):
		return amber(status)
	case string(models.ProgressFailed), string(models.ExecutionError):
		return red(status)
	}
	return status
}

func severityText(s models.AlertSeverity) string {
	if s == models.SeverityCritical {
		return red(string(s))
	}
	return amber(string(s))
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
