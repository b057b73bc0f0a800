package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVLoader reads comma-separated files with a header row.
type CSVLoader struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune
}

// NewCSVLoader returns a loader for standard comma-separated files.
func NewCSVLoader() *CSVLoader {
	return &CSVLoader{Comma: ','}
}

// Load reads path into a Snapshot. A missing file yields NotFound and a file
// without a header row yields Empty; neither is an error. Malformed content
// is returned as an error.
func (l *CSVLoader) Load(path string) (Result, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the watched tree
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NotFound(), nil
		}

		return Result{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	snap, err := l.read(f)
	if err != nil {
		return Result{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	if snap == nil {
		return Empty(), nil
	}

	return Ok(snap), nil
}

// read parses r. It returns a nil Snapshot when r holds no header.
func (l *CSVLoader) read(r io.Reader) (*Snapshot, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1

	if l.Comma != 0 {
		cr.Comma = l.Comma
	}

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	if isBlankRecord(header) {
		return nil, nil
	}

	names := columnNames(header)

	var raw [][]string

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, err
		}

		if len(rec) > len(names) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: expected %d fields, saw %d", line, len(names), len(rec))
		}

		raw = append(raw, rec)
	}

	return build(names, raw), nil
}

// columnNames mirrors the usual dataframe conventions: blank headers become
// "Unnamed: <index>" and repeated names get a ".<n>" suffix.
func columnNames(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]bool, len(header))

	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}

		base := name
		for n := 1; seen[name]; n++ {
			name = base + "." + strconv.Itoa(n)
		}

		seen[name] = true
		names[i] = name
	}

	return names
}

func build(names []string, raw [][]string) *Snapshot {
	cols := make([]Column, len(names))
	for i, n := range names {
		cols[i] = Column{Name: n, Type: inferType(raw, i)}
	}

	rows := make([][]any, len(raw))
	for r, rec := range raw {
		row := make([]any, len(cols))
		for c := range cols {
			if c < len(rec) {
				row[c] = convert(rec[c], cols[c].Type)
			}
		}

		rows[r] = row
	}

	return &Snapshot{Columns: cols, Rows: rows}
}

// inferType picks the narrowest type that every non-blank cell of column c
// satisfies. A column with no values at all is TEXT.
func inferType(raw [][]string, c int) ColumnType {
	typ := TypeInteger
	seen := false

	for _, rec := range raw {
		if c >= len(rec) || strings.TrimSpace(rec[c]) == "" {
			continue
		}

		seen = true
		v := strings.TrimSpace(rec[c])

		if typ == TypeInteger {
			if _, err := strconv.ParseInt(v, 10, 64); err == nil {
				continue
			}

			typ = TypeReal
		}

		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return TypeText
		}
	}

	if !seen {
		return TypeText
	}

	return typ
}

func convert(cell string, typ ColumnType) any {
	v := strings.TrimSpace(cell)
	if v == "" {
		return nil
	}

	switch typ {
	case TypeInteger:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	case TypeReal:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return cell
	}
}

func isBlankRecord(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}

	return true
}
