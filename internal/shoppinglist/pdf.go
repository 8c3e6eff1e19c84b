package shoppinglist

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/go-pdf/fpdf"
)

const utf8Family = "ShoppingListUTF8"

// PDFRenderer draws a shopping list as a two-column table.
type PDFRenderer struct {
	fontPath string
	compress bool
}

// NewPDFRenderer returns a renderer. fontPath may point to a UTF-8 TrueType
// font; when empty or unreadable the core Helvetica font (cp1252) is used
// and a warning is logged, since Cyrillic names cannot be drawn with it.
func NewPDFRenderer(fontPath string) *PDFRenderer {
	if fontPath == "" {
		slog.Warn("no PDF font configured, shopping lists are limited to Latin-1", "env", "PDF_FONT_PATH")
	} else if _, err := os.Stat(fontPath); err != nil {
		slog.Warn("PDF font is not readable, falling back to Helvetica", "path", fontPath, "error", err)
		fontPath = ""
	}
	return &PDFRenderer{fontPath: fontPath, compress: true}
}

// Render produces the PDF document for username's list.
func (r *PDFRenderer) Render(items []Item, username string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetCompression(r.compress)
	pdf.SetTitle("Shopping List", true)
	pdf.SetAuthor("Foodgram", true)
	pdf.SetAutoPageBreak(true, 20)

	family := "Helvetica"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if r.fontPath != "" {
		pdf.AddUTF8Font(utf8Family, "", r.fontPath)
		pdf.AddUTF8Font(utf8Family, "B", r.fontPath)
		family = utf8Family
		tr = func(s string) string { return s }
	}

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	contentWidth := pageWidth - left - right

	pdf.SetHeaderFunc(func() {
		pdf.SetFont(family, "", 10)
		pdf.SetTextColor(0, 0, 0)
		pdf.CellFormat(contentWidth, 8, tr("Foodgram: shopping list for "+username), "B", 1, "L", false, 0, "")
		pdf.Ln(4)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(family, "", 10)
		pdf.SetTextColor(0, 0, 0)
		pdf.CellFormat(contentWidth, 8, tr("Foodgram | page "+strconv.Itoa(pdf.PageNo())), "T", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	nameWidth := contentWidth * 0.65
	amountWidth := contentWidth - nameWidth

	pdf.SetFont(family, "B", 14)
	pdf.SetFillColor(128, 128, 128)
	pdf.SetTextColor(245, 245, 245)
	pdf.SetDrawColor(0, 0, 0)
	pdf.CellFormat(nameWidth, 10, "Ingredients", "1", 0, "C", true, 0, "")
	pdf.CellFormat(amountWidth, 10, "Amount", "1", 1, "C", true, 0, "")

	pdf.SetFont(family, "", 12)
	pdf.SetFillColor(245, 245, 220)
	pdf.SetTextColor(0, 0, 0)
	for _, item := range items {
		pdf.CellFormat(nameWidth, 8, tr(item.Name), "1", 0, "C", true, 0, "")
		pdf.CellFormat(amountWidth, 8, tr(FormatAmount(item)), "1", 1, "C", true, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render shopping list pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// FormatAmount renders the amount column, e.g. "8 g".
func FormatAmount(item Item) string {
	return strconv.Itoa(item.Amount) + " " + item.Unit
}
