package catalog

import (
	"strings"
)

// Normalizer maps arbitrary tabular input onto a Schema.
type Normalizer struct {
	schema *Schema
}

// NewNormalizer returns a Normalizer for schema; a nil schema means DefaultSchema.
func NewNormalizer(schema *Schema) *Normalizer {
	if schema == nil {
		schema = DefaultSchema()
	}
	return &Normalizer{schema: schema}
}

// Schema returns the schema the normalizer targets.
func (n *Normalizer) Schema() *Schema {
	return n.schema
}

// Normalize resolves headers through the alias table, completes missing
// columns with defaults, coerces cell types and drops rows without an id.
// It fails only when no column resolves to id.
func (n *Normalizer) Normalize(raw RawTable) (Result, error) {
	sources := n.schema.resolveHeader(raw.Header)
	if len(sources[ColID]) == 0 {
		return Result{}, newError(CodeMissingColumn, "normalize", ErrMissingRequiredColumn, ColID)
	}

	result := Result{Products: make([]Product, 0, len(raw.Rows))}
	for _, row := range raw.Rows {
		var p Product
		for _, col := range n.schema.columns {
			cell := firstFilled(row, sources[col.Key])
			if !assign(&p, col, cell) {
				result.CoercedCells++
			}
		}
		if p.ID == "" {
			result.DroppedRows++
			continue
		}
		result.Products = append(result.Products, p)
	}
	return result, nil
}

// Products is Normalize without the report.
func (n *Normalizer) Products(raw RawTable) ([]Product, error) {
	result, err := n.Normalize(raw)
	if err != nil {
		return nil, err
	}
	return result.Products, nil
}

// firstFilled picks the first non-blank cell among the candidate columns.
func firstFilled(row []any, indices []int) any {
	for _, idx := range indices {
		if idx >= len(row) {
			continue
		}
		cell := row[idx]
		if cell == nil {
			continue
		}
		if s, ok := cell.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		return cell
	}
	return nil
}

// assign stores cell into the field addressed by col. It returns false when
// a numeric cell was coerced to 0.
func assign(p *Product, col Column, cell any) bool {
	switch col.Kind {
	case KindInt:
		n, ok := cleanInt(cell)
		setInt(p, col.Key, n)
		return ok
	case KindRawText:
		setText(p, col.Key, stringify(cell))
	default:
		setText(p, col.Key, strings.TrimSpace(stringify(cell)))
	}
	return true
}

func setInt(p *Product, key string, n int64) {
	switch key {
	case ColCost:
		p.Cost = n
	case ColProfit:
		p.Profit = n
	case ColTieredPrice:
		p.TieredPrice = n
	case ColPrice:
		p.Price = n
	}
}

func setText(p *Product, key, s string) {
	switch key {
	case ColID:
		p.ID = s
	case ColName:
		p.Name = s
	case ColPrice:
		p.PriceText = s
		p.Price = CleanInt(s)
	case ColSource:
		p.Source = s
	case ColNotes:
		p.Notes = s
	case ColPhoto:
		p.Photo = s
	case ColBarcode:
		p.Barcode = s
	}
}
