package catalog

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV reads a delimited text table. The delimiter is ',' unless the
// header line carries more ';' than ',' (spreadsheet exports in id-ID
// locales). All cells come back as strings, blank cells as nil.
func ReadCSV(r io.Reader) (RawTable, error) {
	br := bufio.NewReader(r)
	if bom, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(bom, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	if first, _ := br.Peek(br.Buffered()); len(first) > 0 {
		line := first
		if i := bytes.IndexByte(line, '\n'); i >= 0 {
			line = line[:i]
		}
		if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
			reader.Comma = ';'
		}
	}

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return RawTable{}, nil
		}
		return RawTable{}, err
	}
	table := RawTable{Header: header}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return RawTable{}, err
		}
		row := make([]any, len(record))
		for i, value := range record {
			if strings.TrimSpace(value) != "" {
				row[i] = value
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// WriteCSV writes table as comma-separated text with CRLF line endings.
func WriteCSV(w io.Writer, table RawTable) error {
	writer := csv.NewWriter(w)
	writer.UseCRLF = true
	if err := writer.Write(table.Header); err != nil {
		return err
	}
	record := make([]string, len(table.Header))
	for _, row := range table.Rows {
		record = record[:0]
		for _, cell := range row {
			record = append(record, stringify(cell))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
