package main

import (
	"encoding/json"
	"io"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/okian/talentscore/internal/domain/assessment"
)

// Score bands used for colouring.
const (
	strongScore = 80.0
	fairScore   = 60.0
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// scoreRow is one line of a score table.
type scoreRow struct {
	label string
	value string
	score assessment.Optional[float64]
}

func number(v float64) scoreRow {
	return scoreRow{value: strconv.FormatFloat(v, 'f', 1, 64), score: assessment.Some(v)}
}

func optionalNumber(v assessment.Optional[float64]) scoreRow {
	if f, ok := v.Get(); ok {
		return number(f)
	}
	return scoreRow{value: "-"}
}

func plain(s string) scoreRow {
	return scoreRow{value: s}
}

func labeled(label string, r scoreRow) scoreRow {
	r.label = label
	return r
}

func renderScores(title string, rows []scoreRow, colorize bool) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if title != "" {
		tw.SetTitle(title)
	}
	tw.AppendHeader(table.Row{"Metric", "Value"})
	for _, r := range rows {
		value := r.value
		if colorize {
			if s, ok := r.score.Get(); ok {
				value = scoreColor(s).Sprint(value)
			}
		}
		tw.AppendRow(table.Row{r.label, value})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func scoreColor(score float64) text.Colors {
	switch {
	case score >= strongScore:
		return text.Colors{text.FgGreen}
	case score >= fairScore:
		return text.Colors{text.FgYellow}
	default:
		return text.Colors{text.FgRed}
	}
}

func detected(ok bool) scoreRow {
	if ok {
		return plain("yes")
	}
	return plain("no (neutral defaults)")
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
