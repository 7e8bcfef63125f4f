package tables

import (
	"fmt"
	"strings"

	"github.com/kirillkom/guideline-retrieval/internal/core/heuristics"
)

// findColumn returns the first header matching cues, trying cues in order so
// that earlier cues take precedence. Headers listed in skip are ignored.
func findColumn(headers []string, cues []string, skip ...string) (string, bool) {
	for _, cue := range cues {
		for _, h := range headers {
			if contains(skip, h) {
				continue
			}
			if heuristics.ContainsCue(h, []string{cue}) {
				return h, true
			}
		}
	}
	return "", false
}

// findColumns returns every header matching any cue, in header order.
func findColumns(headers []string, cues []string, skip ...string) []string {
	var out []string
	for _, h := range headers {
		if contains(skip, h) {
			continue
		}
		if heuristics.ContainsCue(h, cues) {
			out = append(out, h)
		}
	}
	return out
}

func firstOther(headers []string, skip ...string) (string, bool) {
	for _, h := range headers {
		if !contains(skip, h) {
			return h, true
		}
	}
	return "", false
}

func otherCells(headers []string, row map[string]string, skip ...string) string {
	var parts []string
	for _, h := range headers {
		if contains(skip, h) || row[h] == "" {
			continue
		}
		parts = append(parts, h+": "+row[h])
	}
	return strings.Join(parts, "; ")
}

// marked reports whether a schedule cell says the item happens at that time.
func marked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "-", "no", "n", "0", "none", "n/a", "na":
		return false
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func limitRows(rows []map[string]string) []map[string]string {
	if len(rows) > maxTextRows {
		return rows[:maxTextRows]
	}
	return rows
}

type lines struct {
	out []string
}

func (l *lines) add(s string) {
	l.out = append(l.out, s)
}

func (l *lines) more(total int) {
	if total > maxTextRows {
		l.add(fmt.Sprintf("(%d more rows)", total-maxTextRows))
	}
}

func (l *lines) String() string {
	return strings.Join(l.out, "\n")
}
