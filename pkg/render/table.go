// Package render prints query results as boxed text tables.
package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	typeStyle   = lipgloss.NewStyle().Faint(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// Table renders columns and rows with the column types under the header.
// types may be nil.
func Table(columns []string, types []string, rows [][]any) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(columns...)

	withTypes := len(types) == len(columns) && len(types) > 0
	if withTypes {
		t.Row(lowerAll(types)...)
	}

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = Value(v)
		}
		t.Row(cells...)
	}

	t.StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return headerStyle
		case withTypes && row == 0:
			return typeStyle
		default:
			return cellStyle
		}
	})

	return t.String() + "\n" + footer(len(rows), len(columns))
}

// Value formats a single scanned value the way the tables print it.
func Value(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case []byte:
		return string(val)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format(time.DateOnly)
		}
		return val.Format(time.DateTime)
	default:
		return fmt.Sprint(val)
	}
}

func footer(rows, cols int) string {
	rowWord, colWord := "rows", "columns"
	if rows == 1 {
		rowWord = "row"
	}
	if cols == 1 {
		colWord = "column"
	}
	return fmt.Sprintf("%d %s, %d %s", rows, rowWord, cols, colWord)
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
