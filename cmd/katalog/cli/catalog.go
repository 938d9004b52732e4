package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/iskra-katalog/katalog/internal/catalog"
)

// Exit codes shared by the catalog commands.
const (
	ExitOK      = 0
	ExitFailure = 1
	// ExitPartial means the import was written but some rows were dropped or
	// some numeric cells were zeroed.
	ExitPartial = 10
)

// Store is the part of catalog.Store the commands drive.
type Store interface {
	Schema() *catalog.Schema
	EnsureInitialized(ctx context.Context) error
	Load(ctx context.Context) ([]catalog.Product, error)
	Replace(ctx context.Context, raw catalog.RawTable) (catalog.Result, error)
	UpsertMerge(ctx context.Context, raw catalog.RawTable) (catalog.Result, error)
}

// CatalogCLI runs offline maintenance against the backing file.
type CatalogCLI struct {
	store    Store
	required []string
}

// NewCatalogCLI wires the commands to store. required lists the canonical
// columns an import file must carry.
func NewCatalogCLI(store Store, required []string) (*CatalogCLI, error) {
	if store == nil {
		return nil, errors.New("catalog cli: store is required")
	}
	if len(required) == 0 {
		required = []string{catalog.ColID}
	}
	return &CatalogCLI{store: store, required: required}, nil
}

// ImportOptions defines the flags of the import command.
type ImportOptions struct {
	Path       string
	Mode       string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// ImportSummary is the JSON output of the import command.
type ImportSummary struct {
	File     string `json:"file"`
	Mode     string `json:"mode"`
	Inserted int    `json:"inserted"`
	Updated  int    `json:"updated"`
	Dropped  int    `json:"dropped_rows"`
	Coerced  int    `json:"coerced_cells"`
	Total    int    `json:"total"`
}

// ImportCommand loads a spreadsheet into the catalog and prints the result.
func (c *CatalogCLI) ImportCommand(ctx context.Context, opts ImportOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	mode := strings.ToLower(strings.TrimSpace(opts.Mode))
	if mode == "" {
		mode = "merge"
	}
	if mode != "merge" && mode != "replace" {
		_, _ = fmt.Fprintf(opts.Stderr, "import: invalid mode %q (expected merge or replace)\n", opts.Mode)
		return ExitFailure
	}
	if strings.TrimSpace(opts.Path) == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "import: FILE is required")
		return ExitFailure
	}

	f, err := os.Open(opts.Path)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "import: %v\n", err)
		return ExitFailure
	}
	defer f.Close()

	raw, err := catalog.DecodeUpload(opts.Path, f)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "import: %v\n", err)
		return ExitFailure
	}
	if missing := c.store.Schema().Missing(raw.Header, c.required); len(missing) > 0 {
		_, _ = fmt.Fprintf(opts.Stderr, "import: %v\n", catalog.MissingColumnsError(missing))
		return ExitFailure
	}

	var result catalog.Result
	if mode == "replace" {
		result, err = c.store.Replace(ctx, raw)
	} else {
		result, err = c.store.UpsertMerge(ctx, raw)
	}
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "import: %v\n", err)
		return ExitFailure
	}

	summary := ImportSummary{
		File:     filepath.Base(opts.Path),
		Mode:     mode,
		Inserted: result.Inserted,
		Updated:  result.Updated,
		Dropped:  result.DroppedRows,
		Coerced:  result.CoercedCells,
		Total:    len(result.Products),
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "import: encode json: %v\n", err)
			return ExitFailure
		}
	} else {
		renderImportHuman(opts.Stdout, summary)
	}
	if summary.Dropped > 0 || summary.Coerced > 0 {
		return ExitPartial
	}
	return ExitOK
}

func renderImportHuman(out io.Writer, s ImportSummary) {
	_, _ = fmt.Fprintf(out, "Imported %s (%s): %d inserted, %d updated, %d products total\n",
		s.File, s.Mode, s.Inserted, s.Updated, s.Total)
	if s.Dropped > 0 {
		_, _ = fmt.Fprintf(out, " - %d row(s) without id skipped\n", s.Dropped)
	}
	if s.Coerced > 0 {
		_, _ = fmt.Fprintf(out, " - %d numeric cell(s) set to 0\n", s.Coerced)
	}
}

// ExportOptions defines the flags of the export command.
type ExportOptions struct {
	Path string
	// Format defaults to the extension of Path.
	Format  string
	BaseURL string
	Stdout  io.Writer
	Stderr  io.Writer
}

// ExportCommand writes the current catalog to a file.
func (c *CatalogCLI) ExportCommand(ctx context.Context, opts ExportOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if strings.TrimSpace(opts.Path) == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "export: FILE is required")
		return ExitFailure
	}
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(opts.Path)), ".")
	}
	if format != "xlsx" && format != "csv" && format != "pdf" {
		_, _ = fmt.Fprintf(opts.Stderr, "export: unsupported format %q (expected xlsx, csv or pdf)\n", format)
		return ExitFailure
	}

	products, err := c.store.Load(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "export: %v\n", err)
		return ExitFailure
	}

	if err := writeFile(opts.Path, func(w io.Writer) error {
		if format == "pdf" {
			return catalog.WritePriceListPDF(w, products, catalog.PriceListOptions{
				GeneratedAt: time.Now(),
				BaseURL:     opts.BaseURL,
			})
		}
		return catalog.Encode(catalog.Format(format), w, c.store.Schema().Table(products))
	}); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "export: %v\n", err)
		return ExitFailure
	}
	_, _ = fmt.Fprintf(opts.Stdout, "Exported %d products to %s\n", len(products), opts.Path)
	return ExitOK
}

// SeedCommand creates the backing file with the example records when it is
// missing. An existing file is left alone.
func (c *CatalogCLI) SeedCommand(ctx context.Context, stdout, stderr io.Writer) int {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	if err := c.store.EnsureInitialized(ctx); err != nil {
		_, _ = fmt.Fprintf(stderr, "seed: %v\n", err)
		return ExitFailure
	}
	products, err := c.store.Load(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "seed: %v\n", err)
		return ExitFailure
	}
	_, _ = fmt.Fprintf(stdout, "Catalog ready with %d products\n", len(products))
	return ExitOK
}

func writeFile(path string, encode func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode(f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}
