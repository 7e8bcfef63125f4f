// Package tables turns raw table attachments into logical rows, guesses what
// kind of clinical table they hold and renders a scannable text summary.
package tables

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kirillkom/guideline-retrieval/internal/core/domain"
)

// Normalize relabels the generic columns of raw with the values found in its
// header row. The header row is the one whose declared index is 1, or the
// first row when no row declares it. Columns with an empty header label are
// dropped; rows with no content left are skipped.
func Normalize(raw domain.RawTable) domain.LogicalTable {
	if len(raw.Rows) == 0 {
		return domain.LogicalTable{}
	}

	header := headerRowPosition(raw)
	labels := make(map[string]string, len(raw.Columns))
	var headers []string
	seen := make(map[string]int)
	for _, col := range raw.Columns {
		label := strings.Join(strings.Fields(raw.Rows[header][col]), " ")
		if label == "" {
			continue
		}
		seen[label]++
		if n := seen[label]; n > 1 {
			label = fmt.Sprintf("%s (%d)", label, n)
		}
		labels[col] = label
		headers = append(headers, label)
	}

	out := domain.LogicalTable{Headers: headers}
	for i, row := range raw.Rows {
		if i == header {
			continue
		}
		logical := make(map[string]string, len(headers)+1)
		filled := false
		for _, col := range raw.Columns {
			label, ok := labels[col]
			if !ok {
				continue
			}
			value := strings.TrimSpace(row[col])
			if value != "" {
				filled = true
			}
			logical[label] = value
		}
		if !filled {
			continue
		}
		logical[domain.RowIndexKey] = strconv.Itoa(declaredIndex(raw, i))
		out.Rows = append(out.Rows, logical)
	}
	return out
}

func headerRowPosition(raw domain.RawTable) int {
	for i, idx := range raw.RowIndex {
		if idx == 1 && i < len(raw.Rows) {
			return i
		}
	}
	return 0
}

func declaredIndex(raw domain.RawTable, pos int) int {
	if pos < len(raw.RowIndex) && raw.RowIndex[pos] > 0 {
		return raw.RowIndex[pos]
	}
	return pos + 1
}
