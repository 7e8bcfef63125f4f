// Package attachments reads the delimited table files that back table chunks.
package attachments

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/guideline-retrieval/internal/core/domain"
)

const rowIndexColumn = "row_index"

var ambiguousPrefixes = []string{"data/tables/", "tables/"}

type Store struct {
	basePath string
}

func New(basePath string) (*Store, error) {
	if basePath == "" {
		basePath = "./data/tables"
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve tables root: %w", err)
	}
	return &Store{basePath: abs}, nil
}

// Resolve maps an attachment path from the manifest onto the tables root.
// Relative prefixes that already name the tables directory are dropped so
// that "tables/x.csv" and "x.csv" resolve to the same file.
func (s *Store) Resolve(attachmentPath string) (string, error) {
	p := strings.TrimSpace(filepath.ToSlash(attachmentPath))
	if p == "" {
		return "", errors.New("empty attachment path")
	}

	if filepath.IsAbs(p) {
		clean := filepath.Clean(p)
		if !s.within(clean) {
			return "", fmt.Errorf("attachment path %q is outside the tables root", attachmentPath)
		}
		return clean, nil
	}

	for strings.HasPrefix(p, "./") {
		p = strings.TrimPrefix(p, "./")
	}
	for _, prefix := range ambiguousPrefixes {
		if strings.HasPrefix(p, prefix) {
			p = strings.TrimPrefix(p, prefix)
			break
		}
	}

	full := filepath.Join(s.basePath, filepath.FromSlash(p))
	if !s.within(full) {
		return "", fmt.Errorf("attachment path %q escapes the tables root", attachmentPath)
	}
	return full, nil
}

func (s *Store) within(path string) bool {
	rel, err := filepath.Rel(s.basePath, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ReadTable loads the raw rows of one attachment. The first record names the
// generic columns; a row_index column, if present, carries declared indices.
func (s *Store) ReadTable(ctx context.Context, attachmentPath string) (domain.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return domain.RawTable{}, err
	}
	path, err := s.Resolve(attachmentPath)
	if err != nil {
		return domain.RawTable{}, domain.WrapError(domain.ErrAttachment, "resolve attachment", err)
	}

	var records [][]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		records, err = readWorkbook(path)
	case ".tsv", ".tab":
		records, err = readDelimited(path, '\t')
	default:
		records, err = readDelimited(path, ',')
	}
	if err != nil {
		return domain.RawTable{}, domain.WrapError(domain.ErrAttachment, "read attachment", err)
	}

	table, err := toRawTable(records)
	if err != nil {
		return domain.RawTable{}, domain.WrapError(domain.ErrAttachment, "parse attachment", fmt.Errorf("%s: %w", attachmentPath, err))
	}
	return table, nil
}

func readDelimited(path string, comma rune) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func readWorkbook(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func toRawTable(records [][]string) (domain.RawTable, error) {
	if len(records) == 0 {
		return domain.RawTable{}, errors.New("attachment is empty")
	}

	header := records[0]
	indexCol := -1
	var columns []string
	positions := make([]int, 0, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if name == "" {
			continue
		}
		if strings.EqualFold(name, rowIndexColumn) {
			indexCol = i
			continue
		}
		columns = append(columns, name)
		positions = append(positions, i)
	}
	if len(columns) == 0 {
		return domain.RawTable{}, errors.New("attachment has no content columns")
	}

	table := domain.RawTable{Columns: columns}
	for _, rec := range records[1:] {
		row := make(map[string]string, len(columns))
		for j, col := range columns {
			if pos := positions[j]; pos < len(rec) {
				row[col] = rec[pos]
			}
		}
		idx := 0
		if indexCol >= 0 && indexCol < len(rec) {
			if n, err := strconv.Atoi(strings.TrimSpace(rec[indexCol])); err == nil {
				idx = n
			}
		}
		table.Rows = append(table.Rows, row)
		table.RowIndex = append(table.RowIndex, idx)
	}
	return table, nil
}
