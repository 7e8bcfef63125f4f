package tables

import (
	"strings"
	"testing"

	"github.com/kirillkom/guideline-retrieval/internal/core/domain"
	"github.com/kirillkom/guideline-retrieval/internal/core/heuristics"
)

func tableRules() heuristics.TableRules {
	return heuristics.Default().Tables
}

func rawTable(indices []int, rows ...[]string) domain.RawTable {
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	cols := make([]string, width)
	for i := range cols {
		cols[i] = "c" + string(rune('1'+i))
	}
	raw := domain.RawTable{Columns: cols, RowIndex: indices}
	for _, r := range rows {
		row := make(map[string]string, width)
		for i, v := range r {
			row[cols[i]] = v
		}
		raw.Rows = append(raw.Rows, row)
	}
	return raw
}

func TestNormalizeUsesDeclaredHeaderRow(t *testing.T) {
	raw := rawTable([]int{0, 1, 2, 3},
		[]string{"Table 3. Dosing", "", ""},
		[]string{"Weight band", "Isoniazid (mg)", ""},
		[]string{"4-7 kg", "50", "ignored"},
		[]string{"", "", ""},
	)

	table := Normalize(raw)
	if got := strings.Join(table.Headers, ","); got != "Weight band,Isoniazid (mg)" {
		t.Fatalf("unexpected headers %q", got)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("expected caption row and data row, got %d rows", len(table.Rows))
	}
	data := table.Rows[1]
	if data["Weight band"] != "4-7 kg" || data["Isoniazid (mg)"] != "50" {
		t.Fatalf("unexpected logical row %v", data)
	}
	if data[domain.RowIndexKey] != "2" {
		t.Fatalf("expected row index passthrough 2, got %q", data[domain.RowIndexKey])
	}
	if _, ok := data["c3"]; ok {
		t.Fatalf("unlabelled column must be dropped")
	}
}

func TestNormalizeFallsBackToFirstRowAndDisambiguates(t *testing.T) {
	raw := rawTable(nil,
		[]string{"Drug", "Dose", "Dose"},
		[]string{"Isoniazid", "5", "10"},
	)

	table := Normalize(raw)
	if got := strings.Join(table.Headers, ","); got != "Drug,Dose,Dose (2)" {
		t.Fatalf("unexpected headers %q", got)
	}
	if table.Rows[0]["Dose (2)"] != "10" {
		t.Fatalf("unexpected row %v", table.Rows[0])
	}
	if table.Rows[0][domain.RowIndexKey] != "2" {
		t.Fatalf("expected positional row index, got %q", table.Rows[0][domain.RowIndexKey])
	}
}

func TestNormalizeEmpty(t *testing.T) {
	table := Normalize(domain.RawTable{})
	if len(table.Headers) != 0 || len(table.Rows) != 0 {
		t.Fatalf("expected empty table, got %+v", table)
	}
}

func TestDetect(t *testing.T) {
	rules := tableRules()

	tests := []struct {
		name    string
		caption string
		section string
		headers []string
		want    domain.TableSubtype
	}{
		{
			name:    "pediatric dosing",
			caption: "Dosing of first-line medicines in children",
			headers: []string{"Weight band", "Isoniazid (mg)"},
			want:    domain.SubtypeDosingPediatric,
		},
		{
			name:    "adult dosing",
			caption: "Recommended daily dose",
			headers: []string{"Weight (kg)", "Levofloxacin"},
			want:    domain.SubtypeDosingAdult,
		},
		{
			name:    "decision",
			caption: "Eligibility for the shorter regimen",
			headers: []string{"Situation", "Recommendation"},
			want:    domain.SubtypeDecision,
		},
		{
			name:    "regimen with companion column",
			caption: "Regimen options",
			headers: []string{"Regimen", "Composition", "Duration"},
			want:    domain.SubtypeRegimen,
		},
		{
			name:    "regimen cue alone is not enough",
			caption: "Regimen options",
			headers: []string{"Option", "Comment"},
			want:    domain.SubtypeGeneric,
		},
		{
			name:    "timeline from timepoint headers",
			caption: "Tests",
			headers: []string{"Test", "Baseline", "Month 2", "Month 6"},
			want:    domain.SubtypeTimeline,
		},
		{
			name:    "interaction",
			caption: "Drug-drug interactions with antiretrovirals",
			headers: []string{"Medicine", "Effect"},
			want:    domain.SubtypeInteraction,
		},
		{
			name:    "toxicity",
			caption: "Management of adverse events",
			headers: []string{"Event", "Grade", "Action"},
			want:    domain.SubtypeToxicity,
		},
		{
			name:    "regimen table with a dose column",
			caption: "Recommended regimens for drug-susceptible TB",
			headers: []string{"Regimen", "Drugs", "Duration", "Dose"},
			want:    domain.SubtypeRegimen,
		},
		{
			name:    "high-dose criteria are a decision table",
			caption: "Criteria for high-dose rifampicin",
			headers: []string{"Condition", "Action"},
			want:    domain.SubtypeDecision,
		},
		{
			name:    "dose word without weight band is not dosing",
			caption: "Daily dose by medicine",
			headers: []string{"Medicine", "Daily dose"},
			want:    domain.SubtypeGeneric,
		},
		{
			name:    "mg per kg header is dosing",
			caption: "Adult medicines",
			headers: []string{"Medicine", "mg/kg"},
			want:    domain.SubtypeDosingAdult,
		},
		{
			name:    "generic",
			caption: "Summary of evidence",
			headers: []string{"Outcome", "Studies"},
			want:    domain.SubtypeGeneric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(rules, tt.caption, tt.section, tt.headers); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRenderDosingGroupsByWeightBand(t *testing.T) {
	raw := rawTable([]int{1, 2, 3},
		[]string{"Weight band", "Isoniazid (mg)", "Rifampicin (mg)"},
		[]string{"4-7 kg", "50", "75"},
		[]string{"8-11 kg", "100", "150"},
	)
	table := Normalize(raw)
	rules := tableRules()
	chunk := domain.Chunk{Text: "Dosing of first-line medicines in children", ContentType: domain.ContentTable}

	subtype := Detect(rules, chunk.Text, chunk.SectionPath, table.Headers)
	if subtype != domain.SubtypeDosingPediatric {
		t.Fatalf("expected pediatric dosing, got %q", subtype)
	}

	rendering := Render(subtype, chunk, table, rules)
	want := "Isoniazid (mg): 4-7 kg: 50; 8-11 kg: 100\nRifampicin (mg): 4-7 kg: 75; 8-11 kg: 150"
	if rendering.Text != want {
		t.Fatalf("unexpected text:\n%s", rendering.Text)
	}
	if rendering.Debug["renderer"] != string(domain.SubtypeDosingPediatric) {
		t.Fatalf("expected dosing renderer, got %v", rendering.Debug)
	}
	if rendering.Debug["weight_column"] != "Weight band" {
		t.Fatalf("unexpected weight column %v", rendering.Debug["weight_column"])
	}
}

func TestRenderDosingWithoutWeightBandFallsBackToGeneric(t *testing.T) {
	table := Normalize(rawTable(nil,
		[]string{"Drug", "Daily dose"},
		[]string{"Isoniazid", "300 mg"},
	))

	rendering := Render(domain.SubtypeDosingAdult, domain.Chunk{}, table, tableRules())
	if rendering.Subtype != domain.SubtypeDosingAdult {
		t.Fatalf("expected detected subtype to be kept, got %q", rendering.Subtype)
	}
	if rendering.Debug["renderer"] != "generic" {
		t.Fatalf("expected generic renderer, got %v", rendering.Debug)
	}
	if rendering.Debug["fallback_reason"] != "no weight-band column" {
		t.Fatalf("unexpected fallback reason %v", rendering.Debug["fallback_reason"])
	}
	if rendering.Text != "Drug: Isoniazid | Daily dose: 300 mg" {
		t.Fatalf("unexpected text %q", rendering.Text)
	}
}

func TestRenderDecision(t *testing.T) {
	table := Normalize(rawTable(nil,
		[]string{"Situation", "Recommendation", "Notes"},
		[]string{"Child < 3 months", "Refer", "urgent"},
		[]string{"Child >= 3 months", "Start TPT", ""},
	))

	rendering := Render(domain.SubtypeDecision, domain.Chunk{}, table, tableRules())
	want := "IF Child < 3 months THEN Refer (Notes: urgent)\nIF Child >= 3 months THEN Start TPT"
	if rendering.Text != want {
		t.Fatalf("unexpected text:\n%s", rendering.Text)
	}
}

func TestRenderRegimen(t *testing.T) {
	table := Normalize(rawTable(nil,
		[]string{"Regimen", "Composition", "Duration"},
		[]string{"BPaLM", "bedaquiline, pretomanid, linezolid, moxifloxacin", "6 months"},
	))

	rendering := Render(domain.SubtypeRegimen, domain.Chunk{}, table, tableRules())
	want := "Regimen BPaLM: Composition: bedaquiline, pretomanid, linezolid, moxifloxacin; Duration: 6 months"
	if rendering.Text != want {
		t.Fatalf("unexpected text %q", rendering.Text)
	}
}

func TestRenderTimelineFromTimepoints(t *testing.T) {
	table := Normalize(rawTable(nil,
		[]string{"Test", "Baseline", "Month 2", "Month 6"},
		[]string{"Sputum smear", "x", "x", "x"},
		[]string{"ECG", "x", "-", ""},
	))

	rendering := Render(domain.SubtypeTimeline, domain.Chunk{}, table, tableRules())
	want := "Sputum smear: Baseline, Month 2, Month 6\nECG: Baseline"
	if rendering.Text != want {
		t.Fatalf("unexpected text:\n%s", rendering.Text)
	}
}

func TestRenderToxicity(t *testing.T) {
	table := Normalize(rawTable(nil,
		[]string{"Adverse event", "Grade", "Management"},
		[]string{"Peripheral neuropathy", "2", "Reduce linezolid dose"},
	))

	rendering := Render(domain.SubtypeToxicity, domain.Chunk{}, table, tableRules())
	want := "Peripheral neuropathy [Grade 2]: Reduce linezolid dose"
	if rendering.Text != want {
		t.Fatalf("unexpected text %q", rendering.Text)
	}
}

func TestRenderWithoutRowsFallsBack(t *testing.T) {
	table := domain.LogicalTable{Headers: []string{"Weight band"}}
	rendering := Render(domain.SubtypeDosingPediatric, domain.Chunk{}, table, tableRules())
	if rendering.Debug["fallback_reason"] != "no data rows" {
		t.Fatalf("expected no-data fallback, got %v", rendering.Debug)
	}
}

func TestRenderGenericTruncatesLongTables(t *testing.T) {
	rows := [][]string{{"Item"}}
	for i := 0; i < maxTextRows+5; i++ {
		rows = append(rows, []string{"value"})
	}
	table := Normalize(rawTable(nil, rows...))

	rendering := Render(domain.SubtypeGeneric, domain.Chunk{}, table, tableRules())
	if !strings.HasSuffix(rendering.Text, "(5 more rows)") {
		t.Fatalf("expected truncation marker, got tail %q", rendering.Text[len(rendering.Text)-20:])
	}
}
