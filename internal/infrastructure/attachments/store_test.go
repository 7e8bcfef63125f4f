package attachments

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/guideline-retrieval/internal/core/domain"
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	store, err := New(root)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return store, store.basePath
}

func TestResolveNormalizesAmbiguousPrefixes(t *testing.T) {
	store, root := newStore(t)
	want := filepath.Join(root, "m5", "dosing.csv")

	for _, in := range []string{
		"m5/dosing.csv",
		"./m5/dosing.csv",
		"tables/m5/dosing.csv",
		"./data/tables/m5/dosing.csv",
		want,
	} {
		got, err := store.Resolve(in)
		if err != nil {
			t.Fatalf("Resolve(%q) error = %v", in, err)
		}
		if got != want {
			t.Fatalf("Resolve(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolveRejectsEscapes(t *testing.T) {
	store, _ := newStore(t)

	for _, in := range []string{"../secret.csv", "tables/../../x.csv", "/etc/passwd", "  "} {
		if _, err := store.Resolve(in); err == nil {
			t.Fatalf("expected Resolve(%q) to fail", in)
		}
	}
}

func TestReadTableCSVWithRowIndex(t *testing.T) {
	store, root := newStore(t)
	content := "row_index,c1,c2,c3\n0,Table 2,,\n1,Weight band,Isoniazid (mg),\n2,4-7 kg,50\n"
	if err := os.WriteFile(filepath.Join(root, "dosing.csv"), []byte(content), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	table, err := store.ReadTable(context.Background(), "tables/dosing.csv")
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}
	if len(table.Columns) != 3 || table.Columns[0] != "c1" {
		t.Fatalf("unexpected columns %v", table.Columns)
	}
	if len(table.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(table.Rows))
	}
	if table.RowIndex[1] != 1 || table.Rows[1]["c2"] != "Isoniazid (mg)" {
		t.Fatalf("unexpected header row %v (index %d)", table.Rows[1], table.RowIndex[1])
	}
	if _, ok := table.Rows[2]["c3"]; ok {
		t.Fatalf("short record must not invent cells")
	}
}

func TestReadTableTSVWithoutRowIndex(t *testing.T) {
	store, root := newStore(t)
	content := "c1\tc2\nDrug\tDose\nIsoniazid\t300 mg\n"
	if err := os.WriteFile(filepath.Join(root, "t.tsv"), []byte(content), 0o600); err != nil {
		t.Fatalf("write tsv: %v", err)
	}

	table, err := store.ReadTable(context.Background(), "t.tsv")
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}
	if table.Rows[1]["c2"] != "300 mg" || table.RowIndex[1] != 0 {
		t.Fatalf("unexpected row %v / %v", table.Rows[1], table.RowIndex)
	}
}

func TestReadTableXLSX(t *testing.T) {
	store, root := newStore(t)
	f := excelize.NewFile()
	rows := [][]any{
		{"row_index", "c1", "c2"},
		{1, "Regimen", "Duration"},
		{2, "BPaLM", "6 months"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	if err := f.SaveAs(filepath.Join(root, "regimens.xlsx")); err != nil {
		t.Fatalf("save workbook: %v", err)
	}

	table, err := store.ReadTable(context.Background(), "regimens.xlsx")
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}
	if len(table.Rows) != 2 || table.RowIndex[0] != 1 || table.Rows[1]["c1"] != "BPaLM" {
		t.Fatalf("unexpected table %+v", table)
	}
}

func TestReadTableErrorsAreAttachmentErrors(t *testing.T) {
	store, root := newStore(t)
	if err := os.WriteFile(filepath.Join(root, "empty.csv"), nil, 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "only-index.csv"), []byte("row_index\n1\n"), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	for _, path := range []string{"missing.csv", "empty.csv", "only-index.csv", "../x.csv"} {
		_, err := store.ReadTable(context.Background(), path)
		if !domain.IsKind(err, domain.ErrAttachment) {
			t.Fatalf("ReadTable(%q): expected attachment error, got %v", path, err)
		}
	}
}
