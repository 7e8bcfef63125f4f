package tables

import (
	"fmt"
	"strings"

	"github.com/kirillkom/guideline-retrieval/internal/core/domain"
	"github.com/kirillkom/guideline-retrieval/internal/core/heuristics"
)

// maxTextRows bounds how many logical rows a summary covers.
const maxTextRows = 40

const rendererGeneric = "generic"

// renderFunc is the contract every subtype renderer satisfies. A non-empty
// reason means the data did not meet the renderer's expectations and the
// generic renderer must be used instead.
type renderFunc func(chunk domain.Chunk, table domain.LogicalTable, cols heuristics.ColumnRules) (text string, debug map[string]any, reason string)

// Render produces the text summary of table for the given subtype. The result
// always carries the detected subtype; Debug records which renderer actually
// ran and, on fallback, why.
func Render(subtype domain.TableSubtype, chunk domain.Chunk, table domain.LogicalTable, rules heuristics.TableRules) domain.TableRendering {
	var render renderFunc
	switch subtype {
	case domain.SubtypeDosingPediatric, domain.SubtypeDosingAdult:
		render = renderDosing
	case domain.SubtypeDecision:
		render = renderDecision
	case domain.SubtypeRegimen:
		render = renderRegimen
	case domain.SubtypeTimeline:
		render = timelineRenderer(rules)
	case domain.SubtypeInteraction:
		render = renderInteraction
	case domain.SubtypeToxicity:
		render = renderToxicity
	case domain.SubtypeGeneric:
		return genericRendering(subtype, table, "")
	default:
		return genericRendering(domain.SubtypeGeneric, table, fmt.Sprintf("unknown subtype %q", subtype))
	}

	if len(table.Rows) == 0 {
		return genericRendering(subtype, table, "no data rows")
	}
	text, debug, reason := render(chunk, table, rules.Columns)
	if reason == "" && strings.TrimSpace(text) == "" {
		reason = "renderer produced no lines"
	}
	if reason != "" {
		return genericRendering(subtype, table, reason)
	}
	debug["renderer"] = string(subtype)
	debug["rows"] = len(table.Rows)
	return domain.TableRendering{Subtype: subtype, Text: text, Debug: debug}
}

func genericRendering(subtype domain.TableSubtype, table domain.LogicalTable, reason string) domain.TableRendering {
	debug := map[string]any{
		"renderer": rendererGeneric,
		"rows":     len(table.Rows),
		"headers":  len(table.Headers),
	}
	if reason != "" {
		debug["fallback_reason"] = reason
	}
	return domain.TableRendering{Subtype: subtype, Text: renderGeneric(table), Debug: debug}
}

func renderGeneric(table domain.LogicalTable) string {
	var b lines
	for _, row := range limitRows(table.Rows) {
		var cells []string
		for _, h := range table.Headers {
			if v := row[h]; v != "" {
				cells = append(cells, h+": "+v)
			}
		}
		if len(cells) > 0 {
			b.add(strings.Join(cells, " | "))
		}
	}
	b.more(len(table.Rows))
	return b.String()
}

func renderDosing(_ domain.Chunk, table domain.LogicalTable, cols heuristics.ColumnRules) (string, map[string]any, string) {
	weight, ok := findColumn(table.Headers, cols.WeightBand)
	if !ok {
		return "", nil, "no weight-band column"
	}
	var drugs []string
	for _, h := range table.Headers {
		if h == weight || heuristics.ContainsCue(h, cols.DosingExclude) {
			continue
		}
		drugs = append(drugs, h)
	}
	if len(drugs) == 0 {
		return "", nil, "no drug columns beside the weight band"
	}

	rows := limitRows(table.Rows)
	var b lines
	for _, drug := range drugs {
		var bands []string
		for _, row := range rows {
			band, dose := row[weight], row[drug]
			if band == "" || dose == "" {
				continue
			}
			bands = append(bands, band+": "+dose)
		}
		if len(bands) > 0 {
			b.add(drug + ": " + strings.Join(bands, "; "))
		}
	}
	b.more(len(table.Rows))
	return b.String(), map[string]any{"weight_column": weight, "drug_columns": drugs}, ""
}

func renderDecision(_ domain.Chunk, table domain.LogicalTable, cols heuristics.ColumnRules) (string, map[string]any, string) {
	condition, ok := findColumn(table.Headers, cols.Condition)
	if !ok {
		return "", nil, "no condition column"
	}
	action, ok := findColumn(table.Headers, cols.Action, condition)
	if !ok {
		return "", nil, "no action column"
	}

	var b lines
	for _, row := range limitRows(table.Rows) {
		if row[condition] == "" || row[action] == "" {
			continue
		}
		line := "IF " + row[condition] + " THEN " + row[action]
		if extra := otherCells(table.Headers, row, condition, action); extra != "" {
			line += " (" + extra + ")"
		}
		b.add(line)
	}
	b.more(len(table.Rows))
	return b.String(), map[string]any{"condition_column": condition, "action_column": action}, ""
}

func renderRegimen(_ domain.Chunk, table domain.LogicalTable, cols heuristics.ColumnRules) (string, map[string]any, string) {
	name, ok := findColumn(table.Headers, cols.RegimenName)
	if !ok {
		return "", nil, "no regimen column"
	}
	details := findColumns(table.Headers, cols.RegimenDetail, name)
	if len(details) == 0 {
		return "", nil, "no regimen detail columns"
	}

	var b lines
	for _, row := range limitRows(table.Rows) {
		if row[name] == "" {
			continue
		}
		var parts []string
		for _, d := range details {
			if v := row[d]; v != "" {
				parts = append(parts, d+": "+v)
			}
		}
		if len(parts) == 0 {
			continue
		}
		b.add("Regimen " + row[name] + ": " + strings.Join(parts, "; "))
	}
	b.more(len(table.Rows))
	return b.String(), map[string]any{"regimen_column": name, "detail_columns": details}, ""
}

func timelineRenderer(rules heuristics.TableRules) renderFunc {
	return func(_ domain.Chunk, table domain.LogicalTable, cols heuristics.ColumnRules) (string, map[string]any, string) {
		var timepoints, labels []string
		for _, h := range table.Headers {
			if rules.IsTimepoint(h) {
				timepoints = append(timepoints, h)
			} else {
				labels = append(labels, h)
			}
		}

		if len(timepoints) >= 2 && len(labels) > 0 {
			item := labels[0]
			var b lines
			for _, row := range limitRows(table.Rows) {
				if row[item] == "" {
					continue
				}
				var when []string
				for _, tp := range timepoints {
					if marked(row[tp]) {
						when = append(when, tp)
					}
				}
				if len(when) > 0 {
					b.add(row[item] + ": " + strings.Join(when, ", "))
				}
			}
			b.more(len(table.Rows))
			return b.String(), map[string]any{"item_column": item, "timepoint_columns": timepoints}, ""
		}

		schedule, ok := findColumn(table.Headers, cols.Schedule)
		if !ok {
			return "", nil, "no timepoint or schedule columns"
		}
		item, ok := firstOther(table.Headers, schedule)
		if !ok {
			return "", nil, "no item column beside the schedule"
		}
		var b lines
		for _, row := range limitRows(table.Rows) {
			if row[item] == "" || row[schedule] == "" {
				continue
			}
			b.add(row[item] + ": " + row[schedule])
		}
		b.more(len(table.Rows))
		return b.String(), map[string]any{"item_column": item, "schedule_column": schedule}, ""
	}
}

func renderInteraction(_ domain.Chunk, table domain.LogicalTable, cols heuristics.ColumnRules) (string, map[string]any, string) {
	drug, ok := findColumn(table.Headers, cols.InteractionDrug)
	if !ok {
		return "", nil, "no interacting drug column"
	}
	effect, ok := findColumn(table.Headers, cols.InteractionEffect, drug)
	if !ok {
		return "", nil, "no interaction effect column"
	}

	var b lines
	for _, row := range limitRows(table.Rows) {
		if row[drug] == "" || row[effect] == "" {
			continue
		}
		line := row[drug] + ": " + row[effect]
		if extra := otherCells(table.Headers, row, drug, effect); extra != "" {
			line += " (" + extra + ")"
		}
		b.add(line)
	}
	b.more(len(table.Rows))
	return b.String(), map[string]any{"drug_column": drug, "effect_column": effect}, ""
}

func renderToxicity(_ domain.Chunk, table domain.LogicalTable, cols heuristics.ColumnRules) (string, map[string]any, string) {
	event, ok := findColumn(table.Headers, cols.ToxicityEvent)
	if !ok {
		return "", nil, "no adverse event column"
	}
	grade, hasGrade := findColumn(table.Headers, cols.ToxicityGrade, event)
	management, hasManagement := findColumn(table.Headers, cols.ToxicityManagement, event, grade)
	if !hasGrade && !hasManagement {
		return "", nil, "no grade or management column"
	}

	var b lines
	for _, row := range limitRows(table.Rows) {
		if row[event] == "" {
			continue
		}
		line := row[event]
		if hasGrade && row[grade] != "" {
			line += " [" + grade + " " + row[grade] + "]"
		}
		if hasManagement && row[management] != "" {
			line += ": " + row[management]
		}
		b.add(line)
	}
	b.more(len(table.Rows))
	debug := map[string]any{"event_column": event}
	if hasGrade {
		debug["grade_column"] = grade
	}
	if hasManagement {
		debug["management_column"] = management
	}
	return b.String(), debug, ""
}
