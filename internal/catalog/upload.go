package catalog

import (
	"io"
	"path/filepath"
	"strings"
)

// Format is a supported tabular file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// FormatFromFilename detects the format from a file extension.
func FormatFromFilename(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(name))) {
	case ".xlsx":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	}
	return "", newError(CodeUploadFormat, "decode upload", ErrUploadFormat, quoteName(name))
}

// DecodeUpload reads an uploaded table, choosing the decoder by extension.
func DecodeUpload(filename string, r io.Reader) (RawTable, error) {
	format, err := FormatFromFilename(filename)
	if err != nil {
		return RawTable{}, err
	}
	return Decode(format, r)
}

// Decode reads a table in the given format.
func Decode(format Format, r io.Reader) (RawTable, error) {
	var (
		table RawTable
		err   error
	)
	switch format {
	case FormatXLSX:
		table, err = ReadWorkbook(r)
	case FormatCSV:
		table, err = ReadCSV(r)
	default:
		return RawTable{}, newError(CodeUploadFormat, "decode", ErrUploadFormat, string(format))
	}
	if err != nil {
		return RawTable{}, newError(CodeFileParse, "decode "+string(format), ErrFileParse, err)
	}
	return table, nil
}

// Encode writes a table in the given format.
func Encode(format Format, w io.Writer, table RawTable) error {
	switch format {
	case FormatXLSX:
		return WriteWorkbook(w, table)
	case FormatCSV:
		return WriteCSV(w, table)
	}
	return newError(CodeUploadFormat, "encode", ErrUploadFormat, string(format))
}

func quoteName(name string) string {
	if name == "" {
		return "(no file name)"
	}
	return `"` + filepath.Base(name) + `"`
}
