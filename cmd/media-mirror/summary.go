package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/raoulx24/media-mirror/internal/orchestrator"
)

func renderSummary(s orchestrator.Summary) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle(fmt.Sprintf("run %s (%s)", s.RunID, s.Duration.Round(time.Second)))
	tw.AppendHeader(table.Row{"Outcome", "Files"})

	rows := []struct {
		label string
		n     int
	}{
		{"admitted", s.Admitted},
		{"succeeded", s.Succeeded},
		{"failed", s.Failed},
		{"skipped (still written)", s.Skipped},
		{"already converted", s.AlreadyConverted},
		{"unreadable", s.Unreadable},
		{"duplicate destination", s.Duplicates},
		{"deleted", s.Deleted},
		{"delete failures", s.DeleteFailures},
	}
	for _, r := range rows {
		tw.AppendRow(table.Row{r.label, strconv.Itoa(r.n)})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignRight},
	})

	out := tw.Render()
	if len(s.Failures) == 0 {
		return out
	}

	fw := table.NewWriter()
	fw.SetStyle(table.StyleRounded)
	fw.AppendHeader(table.Row{"Failed source", "Error"})
	for _, f := range s.Failures {
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		fw.AppendRow(table.Row{filepath.Base(f.Source), msg})
	}
	fw.SetColumnConfigs([]table.ColumnConfig{{Number: 2, WidthMax: 80}})
	return out + "\n" + fw.Render()
}
