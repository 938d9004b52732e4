package catalog

import (
	"bytes"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatRupiah(t *testing.T) {
	assert.Equal(t, "Rp 50.000", FormatRupiah(50000))
	assert.Equal(t, "Rp 1.250.000", FormatRupiah(1250000))
	assert.Equal(t, "Rp 0", FormatRupiah(0))
	assert.Equal(t, "-Rp 12", FormatRupiah(-12))
	assert.Equal(t, "mulai 10rb", PriceLabel(Product{Price: 10, PriceText: "mulai 10rb"}))
}

func TestProductURL(t *testing.T) {
	assert.Equal(t, "https://katalog.example/p/8991234567890", ProductURL("https://katalog.example/", "8991234567890"))
	assert.Equal(t, "/p/A%2F1", ProductPath("A/1"))
}

func TestProductQRIsPNG(t *testing.T) {
	data, err := ProductQR("http://localhost:8080", "8991234567890", 0)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, DefaultQRSize, img.Bounds().Dx())
}

func TestWritePriceListPDF(t *testing.T) {
	for _, baseURL := range []string{"", "http://localhost:8080"} {
		var buf bytes.Buffer
		err := WritePriceListPDF(&buf, DefaultSeed(), PriceListOptions{
			GeneratedAt: time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC),
			BaseURL:     baseURL,
		})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(buf.String(), "%PDF-"), "base url %q", baseURL)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
}
