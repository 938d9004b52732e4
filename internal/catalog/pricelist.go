package catalog

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// PriceListOptions controls the PDF price list.
type PriceListOptions struct {
	Title       string
	GeneratedAt time.Time
	// BaseURL, when set, adds a QR code per row pointing at the product page.
	BaseURL string
}

// WritePriceListPDF renders products as an A4 price list.
func WritePriceListPDF(w io.Writer, products []Product, opts PriceListOptions) error {
	if opts.Title == "" {
		opts.Title = "Daftar Harga"
	}
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now()
	}
	withQR := opts.BaseURL != ""

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 12, 12)
	pdf.SetAutoPageBreak(true, 14)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	rowH := 7.0
	if withQR {
		rowH = 16
	}
	widths := []float64{40, 88, 58}
	if withQR {
		widths = []float64{34, 78, 52, 22}
	}
	header := []string{"Kode", "Nama", "Harga"}
	if withQR {
		header = append(header, "QR")
	}

	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 8, tr(opts.Title), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 8)
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("Dicetak %s · %d produk", opts.GeneratedAt.Format("02-01-2006 15:04"), len(products))), "", 1, "L", false, 0, "")
		pdf.Ln(2)
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, title := range header {
			align := "L"
			if title == "Harga" {
				align = "R"
			}
			pdf.CellFormat(widths[i], 7, title, "1", 0, align, true, 0, "")
		}
		pdf.Ln(-1)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Arial", "I", 7)
		pdf.CellFormat(0, 5, fmt.Sprintf("%d / {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AliasNbPages("")
	pdf.AddPage()
	pdf.SetFont("Arial", "", 9)

	for i, p := range products {
		x, y := pdf.GetXY()
		pdf.CellFormat(widths[0], rowH, tr(p.ID), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], rowH, tr(truncate(p.Name, 48)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], rowH, tr(PriceLabel(p)), "1", 0, "R", false, 0, "")
		if withQR {
			png, err := ProductQR(opts.BaseURL, p.ID, 128)
			if err != nil {
				return fmt.Errorf("qr for %s: %w", p.ID, err)
			}
			name := fmt.Sprintf("qr-%d", i)
			imgOpts := gofpdf.ImageOptions{ImageType: "PNG"}
			pdf.RegisterImageOptionsReader(name, imgOpts, bytes.NewReader(png))
			cellX := x + widths[0] + widths[1] + widths[2]
			pdf.CellFormat(widths[3], rowH, "", "1", 0, "C", false, 0, "")
			pdf.ImageOptions(name, cellX+(widths[3]-rowH+2)/2, y+1, rowH-2, rowH-2, false, imgOpts, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
