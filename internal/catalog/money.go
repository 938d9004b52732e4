package catalog

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var idr = message.NewPrinter(language.Indonesian)

// FormatRupiah formats an amount with Indonesian digit grouping ("Rp 50.000").
func FormatRupiah(amount int64) string {
	if amount < 0 {
		return idr.Sprintf("-Rp %d", -amount)
	}
	return idr.Sprintf("Rp %d", amount)
}

// PriceLabel is the display price of a product: the stored text when the
// catalog keeps price as text, otherwise the formatted amount.
func PriceLabel(p Product) string {
	if p.PriceText != "" {
		return p.PriceText
	}
	return FormatRupiah(p.Price)
}
