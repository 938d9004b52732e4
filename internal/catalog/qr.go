package catalog

import (
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"
)

// DefaultQRSize is the edge length in pixels of generated QR codes.
const DefaultQRSize = 256

// ProductPath is the public page of a product relative to the site root.
func ProductPath(id string) string {
	return "/p/" + url.PathEscape(id)
}

// ProductURL joins baseURL and the product page path.
func ProductURL(baseURL, id string) string {
	return strings.TrimRight(baseURL, "/") + ProductPath(id)
}

// ProductQR renders a PNG QR code encoding the product page URL.
func ProductQR(baseURL, id string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultQRSize
	}
	return qrcode.Encode(ProductURL(baseURL, id), qrcode.Medium, size)
}
