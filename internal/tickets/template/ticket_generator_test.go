package template_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ms-eventpass/internal/models"
	"ms-eventpass/internal/tickets/template"

	"github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func detail() models.TicketDetail {
	return models.TicketDetail{
		TicketID:    "t-1",
		TicketType:  "VIP",
		PurchasedAt: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		EventID:     "e-1",
		EventName:   "Launch Night",
		EventDate:   time.Date(2026, 12, 1, 19, 0, 0, 0, time.UTC),
		Venue:       "Hall A",
	}
}

func TestGenerateFailsWithoutFont(t *testing.T) {
	g := template.NewTicketPDFGenerator(filepath.Join(t.TempDir(), "missing.ttf"))

	_, err := g.Generate(detail(), nil)
	assert.ErrorContains(t, err, "failed to load font")
}

func TestDefaultFontPath(t *testing.T) {
	assert.Equal(t, template.DefaultFontPath, template.NewTicketPDFGenerator("").FontPath)
}

func TestGenerateWithBundledFont(t *testing.T) {
	fontPath := filepath.Join("..", "..", "..", "fonts", "DejaVuSans.ttf")
	if _, err := os.Stat(fontPath); err != nil {
		t.Skip("DejaVuSans.ttf not present")
	}

	png, err := qrcode.Encode("token", qrcode.Medium, 256)
	require.NoError(t, err)

	out, err := template.NewTicketPDFGenerator(fontPath).Generate(detail(), png)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
