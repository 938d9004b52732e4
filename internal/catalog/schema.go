package catalog

import (
	"strconv"
	"strings"
)

// Kind selects the coercion applied to a canonical column.
type Kind int

const (
	// KindText is stringified and trimmed.
	KindText Kind = iota
	// KindRawText is stringified without trimming.
	KindRawText
	// KindInt goes through CleanInt.
	KindInt
)

// Column is one canonical column.
type Column struct {
	Key  string
	Kind Kind
}

var baseColumns = []Column{
	{Key: ColID, Kind: KindText},
	{Key: ColName, Kind: KindText},
	{Key: ColCost, Kind: KindInt},
	{Key: ColProfit, Kind: KindInt},
	{Key: ColTieredPrice, Kind: KindInt},
	{Key: ColPrice, Kind: KindInt},
	{Key: ColSource, Kind: KindText},
	{Key: ColNotes, Kind: KindRawText},
}

var mediaColumns = []Column{
	{Key: ColPhoto, Kind: KindText},
	{Key: ColBarcode, Kind: KindText},
}

// DefaultAliases lists the historical header names recognised for each
// canonical column. Every canonical key is also an alias of itself.
var DefaultAliases = map[string][]string{
	ColID:          {"kode", "kode_produk", "kode_barang", "code", "sku"},
	ColName:        {"nama", "nama_produk", "nama produk", "product_name", "nama_barang"},
	ColCost:        {"hpp", "harga_pokok", "modal"},
	ColProfit:      {"laba", "keuntungan"},
	ColTieredPrice: {"harga_25", "harga 25", "harga_grosir"},
	ColPrice:       {"harga", "harga_jual"},
	ColSource:      {"sumber", "supplier"},
	ColNotes:       {"keterangan", "deskripsi", "description"},
	ColPhoto:       {"foto", "gambar", "image"},
	ColBarcode:     {"ean", "kode_barcode"},
}

// DefaultNameKeywords are the substrings used to guess the name column when
// no header resolves to it.
var DefaultNameKeywords = []string{"nama", "produk", "product", "barang"}

// SchemaOptions tweaks the canonical schema for a deployment.
type SchemaOptions struct {
	// MediaColumns appends photo and barcode to the canonical set.
	MediaColumns bool
	// PriceAsText keeps the price column as display text.
	PriceAsText bool
	// Aliases are merged over DefaultAliases. A header listed here wins over
	// the same header in the defaults.
	Aliases map[string][]string
	// NameKeywords replaces DefaultNameKeywords when non-empty.
	NameKeywords []string
}

// Schema is the canonical column set plus the alias table resolving source
// headers onto it.
type Schema struct {
	columns     []Column
	index       map[string]int
	aliases     map[string]string
	keywords    []string
	priceAsText bool
}

// NewSchema builds a schema from options.
func NewSchema(opts SchemaOptions) *Schema {
	columns := append([]Column(nil), baseColumns...)
	if opts.MediaColumns {
		columns = append(columns, mediaColumns...)
	}
	if opts.PriceAsText {
		for i := range columns {
			if columns[i].Key == ColPrice {
				columns[i].Kind = KindText
			}
		}
	}

	s := &Schema{
		columns:     columns,
		index:       make(map[string]int, len(columns)),
		aliases:     make(map[string]string),
		keywords:    DefaultNameKeywords,
		priceAsText: opts.PriceAsText,
	}
	for i, col := range columns {
		s.index[col.Key] = i
	}
	for _, key := range allColumnKeys() {
		s.aliases[key] = key
	}
	for key, names := range DefaultAliases {
		for _, name := range names {
			s.aliases[CanonicalHeader(name)] = key
		}
	}
	for key, names := range opts.Aliases {
		for _, name := range names {
			s.aliases[CanonicalHeader(name)] = key
		}
	}
	if len(opts.NameKeywords) > 0 {
		s.keywords = make([]string, 0, len(opts.NameKeywords))
		for _, kw := range opts.NameKeywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				s.keywords = append(s.keywords, kw)
			}
		}
	}
	return s
}

// DefaultSchema returns the eight-column numeric-price schema.
func DefaultSchema() *Schema {
	return NewSchema(SchemaOptions{})
}

func allColumnKeys() []string {
	keys := make([]string, 0, len(baseColumns)+len(mediaColumns))
	for _, col := range baseColumns {
		keys = append(keys, col.Key)
	}
	for _, col := range mediaColumns {
		keys = append(keys, col.Key)
	}
	return keys
}

// CanonicalHeader lower-cases and trims a header and joins internal
// whitespace with underscores.
func CanonicalHeader(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "_")
}

// Columns returns the canonical columns in order.
func (s *Schema) Columns() []Column {
	return append([]Column(nil), s.columns...)
}

// Keys returns the canonical column keys in order.
func (s *Schema) Keys() []string {
	keys := make([]string, len(s.columns))
	for i, col := range s.columns {
		keys[i] = col.Key
	}
	return keys
}

// Has reports whether key is part of the canonical set.
func (s *Schema) Has(key string) bool {
	_, ok := s.index[key]
	return ok
}

// PriceAsText reports whether price is kept as display text.
func (s *Schema) PriceAsText() bool {
	return s.priceAsText
}

// Resolve maps a source header onto a canonical key of this schema.
func (s *Schema) Resolve(header string) (string, bool) {
	key, ok := s.aliases[CanonicalHeader(header)]
	if !ok || !s.Has(key) {
		return "", false
	}
	return key, true
}

// Missing returns the required keys that no header resolves to. The name
// keyword fallback counts as resolving name.
func (s *Schema) Missing(header []string, required []string) []string {
	sources := s.resolveHeader(header)
	var missing []string
	for _, key := range required {
		if len(sources[key]) == 0 {
			missing = append(missing, key)
		}
	}
	return missing
}

// resolveHeader returns, per canonical key, the input column indices that
// feed it in input order.
func (s *Schema) resolveHeader(header []string) map[string][]int {
	sources := make(map[string][]int, len(s.columns))
	var unresolved []int
	for i, name := range header {
		if key, ok := s.Resolve(name); ok {
			sources[key] = append(sources[key], i)
			continue
		}
		unresolved = append(unresolved, i)
	}
	if len(sources[ColName]) == 0 && s.Has(ColName) {
		if idx, ok := s.guessName(header, unresolved); ok {
			sources[ColName] = []int{idx}
		}
	}
	return sources
}

func (s *Schema) guessName(header []string, candidates []int) (int, bool) {
	for _, idx := range candidates {
		name := CanonicalHeader(header[idx])
		for _, kw := range s.keywords {
			if strings.Contains(name, kw) {
				return idx, true
			}
		}
	}
	return 0, false
}

// Table renders products as a canonical RawTable: header in canonical order,
// numeric columns as int64.
func (s *Schema) Table(products []Product) RawTable {
	table := RawTable{Header: s.Keys(), Rows: make([][]any, 0, len(products))}
	for _, p := range products {
		row := make([]any, len(s.columns))
		for i, col := range s.columns {
			row[i] = s.cell(p, col.Key)
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func (s *Schema) cell(p Product, key string) any {
	switch key {
	case ColID:
		return p.ID
	case ColName:
		return p.Name
	case ColCost:
		return p.Cost
	case ColProfit:
		return p.Profit
	case ColTieredPrice:
		return p.TieredPrice
	case ColPrice:
		if !s.priceAsText {
			return p.Price
		}
		if p.PriceText != "" {
			return p.PriceText
		}
		return strconv.FormatInt(p.Price, 10)
	case ColSource:
		return p.Source
	case ColNotes:
		return p.Notes
	case ColPhoto:
		return p.Photo
	case ColBarcode:
		return p.Barcode
	}
	return nil
}
