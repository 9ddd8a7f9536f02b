package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"romscribe/internal/preflight"
	"romscribe/internal/workflow"
)

const statusLabelWidth = 24

func renderReport(report *workflow.Report, colorize bool) string {
	rows := make([][]string, 0, len(report.Items))
	for _, item := range report.Items {
		detail := ""
		if item.Err != nil {
			detail = item.Err.Error()
		}
		rows = append(rows, []string{
			strconv.Itoa(item.Index + 1),
			item.File,
			string(item.Stage),
			colorStatus(item.Status, colorize),
			formatDuration(item.Duration),
			detail,
		})
	}

	var b strings.Builder
	if len(rows) > 0 {
		b.WriteString(renderTable(
			[]string{"#", "File", "Stage", "Status", "Time", "Error"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
		))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Run %s: %d rom(s), %d generated, %d failed", report.RunID, report.Candidates, report.Generated, report.Failed)
	if report.ImagesWritten > 0 || report.ImageFailures > 0 {
		fmt.Fprintf(&b, ", %d image(s) written, %d image failure(s)", report.ImagesWritten, report.ImageFailures)
	}
	fmt.Fprintf(&b, " in %s\n", formatDuration(report.Duration()))
	if report.DocumentPath != "" {
		fmt.Fprintf(&b, "Wrote %s", report.DocumentPath)
	} else {
		fmt.Fprintf(&b, "No game list written (stopped at %s)", report.FinalState)
	}
	return b.String()
}

func colorStatus(status workflow.Status, colorize bool) string {
	label := strings.ToUpper(string(status))
	if !colorize {
		return label
	}
	switch status {
	case workflow.StatusOK:
		return text.FgGreen.Sprint(label)
	case workflow.StatusFailed:
		return text.FgRed.Sprint(label)
	default:
		return text.FgYellow.Sprint(label)
	}
}

func renderCheckLine(result preflight.Result, colorize bool) string {
	status := "[OK]"
	color := text.FgGreen
	if !result.Passed {
		status = "[ERROR]"
		color = text.FgRed
	}
	line := fmt.Sprintf("  %-*s %s %s", statusLabelWidth, result.Name+":", status, result.Detail)
	if colorize {
		return color.Sprint(line)
	}
	return line
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
