package template

import (
	"bytes"
	"fmt"
	"image/png"

	"ms-eventpass/internal/models"

	"github.com/signintech/gopdf"
)

const DefaultFontPath = "./fonts/DejaVuSans.ttf"

type TicketPDFGenerator struct {
	FontPath string
}

func NewTicketPDFGenerator(fontPath string) *TicketPDFGenerator {
	if fontPath == "" {
		fontPath = DefaultFontPath
	}
	return &TicketPDFGenerator{FontPath: fontPath}
}

// Generate renders a one-page A4 ticket with the scannable QR code.
func (g *TicketPDFGenerator) Generate(detail models.TicketDetail, qrCode []byte) ([]byte, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	if err := pdf.AddTTFFont("dejavu", g.FontPath); err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}
	if err := pdf.SetFont("dejavu", "", 20); err != nil {
		return nil, fmt.Errorf("failed to set font: %w", err)
	}

	pdf.SetXY(40, 40)
	pdf.Cell(nil, detail.EventName)

	if err := pdf.SetFont("dejavu", "", 12); err != nil {
		return nil, fmt.Errorf("failed to set font: %w", err)
	}
	pdf.SetXY(40, 80)
	addTicketInfo(pdf, detail)

	if len(qrCode) > 0 {
		if err := addQRCode(pdf, qrCode, pdf.GetY()+20); err != nil {
			return nil, err
		}
	}

	pdf.SetXY(40, 780)
	pdf.Cell(nil, "Present this code at the entrance. It admits one person once.")

	var buf bytes.Buffer
	if err := pdf.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func addTicketInfo(pdf *gopdf.GoPdf, detail models.TicketDetail) {
	info := []struct {
		Label string
		Value string
	}{
		{"Ticket", detail.TicketID},
		{"Type", detail.TicketType},
		{"Date", detail.EventDate.Format("Mon 2 Jan 2006 15:04")},
		{"Venue", detail.Venue},
		{"Purchased", detail.PurchasedAt.Format("2006-01-02 15:04")},
	}
	if !detail.CheckedInAt.IsZero() {
		info = append(info, struct {
			Label string
			Value string
		}{"Checked in", detail.CheckedInAt.Format("2006-01-02 15:04")})
	}

	for _, item := range info {
		if item.Value == "" {
			continue
		}
		pdf.SetX(40)
		pdf.Cell(nil, item.Label+": "+item.Value)
		pdf.Br(20)
	}
}

func addQRCode(pdf *gopdf.GoPdf, qrCode []byte, y float64) error {
	img, err := png.Decode(bytes.NewReader(qrCode))
	if err != nil {
		return fmt.Errorf("failed to decode QR code: %w", err)
	}
	if err := pdf.ImageFrom(img, 40, y, &gopdf.Rect{W: 180, H: 180}); err != nil {
		return fmt.Errorf("failed to draw QR code: %w", err)
	}
	return nil
}
