package catalog

// Canonical column keys, in canonical order.
const (
	ColID          = "id"
	ColName        = "name"
	ColCost        = "cost"
	ColProfit      = "profit"
	ColTieredPrice = "tiered_price"
	ColPrice       = "price"
	ColSource      = "source"
	ColNotes       = "notes"
	ColPhoto       = "photo"
	ColBarcode     = "barcode"
)

// Product is one row of the canonical table.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Cost        int64  `json:"cost"`
	Profit      int64  `json:"profit"`
	TieredPrice int64  `json:"tiered_price"`
	Price       int64  `json:"price"`
	// PriceText holds the display text of the price column when the schema
	// keeps price as text. Price is still derived from it.
	PriceText string `json:"price_text,omitempty"`
	Source    string `json:"source"`
	Notes     string `json:"notes"`
	Photo     string `json:"photo,omitempty"`
	Barcode   string `json:"barcode,omitempty"`
}

// RawTable is an untyped tabular input: a header row plus data rows. Cells are
// nil, string, bool or any integer/float value.
type RawTable struct {
	Header []string
	Rows   [][]any
}

// Result describes the outcome of a normalization or store write.
type Result struct {
	// Products holds the normalized rows; after a store write, the whole
	// catalog as written.
	Products []Product
	// DroppedRows counts rows discarded because their id was empty.
	DroppedRows int
	// CoercedCells counts non-empty numeric cells that could not be parsed
	// and were set to 0.
	CoercedCells int
	// Inserted and Updated are filled by Store.Replace and Store.UpsertMerge.
	Inserted int
	Updated  int
}

// DefaultSeed returns the example records written to a fresh backing file.
func DefaultSeed() []Product {
	return []Product{
		{
			ID:          "8991234567890",
			Name:        "Bantal Iskra",
			Cost:        20000,
			Profit:      30000,
			TieredPrice: 25000,
			Price:       50000,
			Source:      "Default",
			Notes:       "Bantal putih empuk",
		},
		{
			ID:          "8999876543210",
			Name:        "Kasur Lipat Iskra 6cm",
			Cost:        150000,
			Profit:      100000,
			TieredPrice: 180000,
			Price:       250000,
			Source:      "Default",
			Notes:       "Ringan, mudah dibawa",
		},
	}
}

// Find returns the product with the given id.
func Find(products []Product, id string) (Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}
