package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"bayloe/internal/queue"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// renderItems lays out the queue as a numbered table.
func renderItems(items []queue.ItemView, colorize bool) string {
	rows := make([][]string, 0, len(items))
	for i, it := range items {
		detail := it.Error
		if it.Status == queue.StatusCompleted {
			detail = it.DownloadName()
		}
		rows = append(rows, []string{
			itoa(i + 1),
			shortID(it.ID),
			it.Name,
			humanSize(it.Size),
			it.Format.Label(),
			statusLabel(it.Status, colorize),
			detail,
		})
	}
	return renderTable(
		[]string{"#", "ID", "File", "Size", "Format", "Status", "Detail"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
	)
}

// renderCounts is the one-line status summary printed under queue tables.
func renderCounts(counts map[queue.Status]int, colorize bool) string {
	parts := make([]string, 0, len(queue.AllStatuses()))
	total := 0
	for _, status := range queue.AllStatuses() {
		n := counts[status]
		total += n
		parts = append(parts, fmt.Sprintf("%s %d", statusLabel(status, colorize), n))
	}
	return fmt.Sprintf("%d items: %s", total, strings.Join(parts, ", "))
}

func statusLabel(status queue.Status, colorize bool) string {
	label := string(status)
	if !colorize {
		return label
	}
	switch status {
	case queue.StatusCompleted:
		return text.FgGreen.Sprint(label)
	case queue.StatusError:
		return text.FgRed.Sprint(label)
	case queue.StatusConverting:
		return text.FgYellow.Sprint(label)
	default:
		return label
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
