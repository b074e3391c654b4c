package infra

// pdf.go renders invoices and invoice reports with go-pdf/fpdf.
// Amounts are printed rounded to two decimals; stored values are not touched.

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"invoicing/internal/billing"
	"invoicing/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// Letterhead is the issuing company printed on documents. Invoice-level
// company fields win over it.
type Letterhead struct {
	Name    string
	Address string
	Email   string
	Phone   string
}

func (l Letterhead) forInvoice(inv *model.Invoice) Letterhead {
	pick := func(v *string, fallback string) string {
		if v != nil && *v != "" {
			return *v
		}
		return fallback
	}
	return Letterhead{
		Name:    pick(inv.CompanyName, l.Name),
		Address: pick(inv.CompanyAddress, l.Address),
		Email:   pick(inv.CompanyEmail, l.Email),
		Phone:   pick(inv.CompanyPhone, l.Phone),
	}
}

// RenderInvoicePDF returns the invoice as an A4 PDF document.
func RenderInvoicePDF(inv *model.Invoice, head Letterhead) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30
	company := head.forInvoice(inv)

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW/2, 8, tr(company.Name), "", 0, "L", false, 0, "")
	pdf.CellFormat(contentW/2, 8, "INVOICE", "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, line := range []string{company.Address, company.Email, company.Phone} {
		if line != "" {
			pdf.CellFormat(contentW, 5, tr(line), "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(4)

	// ── Invoice / client block ────────────────────────────────────────────────
	half := contentW / 2
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(half, 6, "Bill to", "", 0, "L", false, 0, "")
	pdf.CellFormat(half, 6, "Invoice "+inv.Number, "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(half, 5, tr(inv.ClientName), "", 0, "L", false, 0, "")
	pdf.CellFormat(half, 5, "Date: "+inv.Date, "", 1, "R", false, 0, "")
	due := ""
	if inv.DueDate != nil {
		due = "Due: " + *inv.DueDate
	}
	details := ""
	if inv.ClientDetails != nil {
		details = *inv.ClientDetails
	}
	pdf.CellFormat(half, 5, tr(details), "", 0, "L", false, 0, "")
	pdf.CellFormat(half, 5, due, "", 1, "R", false, 0, "")
	pdf.CellFormat(contentW, 5, "Status: "+string(inv.PaymentStatus), "", 1, "R", false, 0, "")
	pdf.Ln(4)

	// ── Items ────────────────────────────────────────────────────────────────
	widths := []float64{contentW * 0.40, contentW * 0.10, contentW * 0.15, contentW * 0.10, contentW * 0.10, contentW * 0.15}
	headers := []string{"Description", "Qty", "Unit price", "Tax %", "Disc %", "Amount"}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(235, 235, 235)
	for i, h := range headers {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 7, h, "B", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, it := range inv.Items {
		pdf.CellFormat(widths[0], 6, tr(truncate(it.Description, 60)), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, it.Quantity.String(), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 6, money(it.UnitPrice), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, it.TaxPercent.String(), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 6, it.DiscountPercent.String(), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[5], 6, money(it.Amount()), "", 1, "R", false, 0, "")
	}
	pdf.Ln(2)
	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(2)

	// ── Totals ───────────────────────────────────────────────────────────────
	writeTotals(pdf, contentW, inv.Totals())

	if inv.Notes != nil && *inv.Notes != "" {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(contentW, 5, "Notes", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(contentW, 5, tr(*inv.Notes), "", "L", false)
	}
	if inv.Terms != nil && *inv.Terms != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(contentW, 5, "Terms", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(contentW, 5, tr(*inv.Terms), "", "L", false)
	}

	return output(pdf)
}

// WriteInvoicePDF renders inv into dir and returns the file path.
func WriteInvoicePDF(inv *model.Invoice, head Letterhead, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	data, err := RenderInvoicePDF(inv, head)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, InvoiceFileName(inv))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return path, nil
}

// InvoiceFileName is the download/attachment name for inv.
func InvoiceFileName(inv *model.Invoice) string {
	return fmt.Sprintf("invoice_%s.pdf", inv.Number)
}

// RenderReportPDF prints one row per invoice followed by the overall totals.
func RenderReportPDF(title string, invoices []model.Invoice, head Letterhead) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(12, 12, 12)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 24

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentW, 8, tr(head.Name+" - "+title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, fmt.Sprintf("%d invoices", len(invoices)), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	widths := []float64{contentW * 0.12, contentW * 0.28, contentW * 0.10, contentW * 0.10, contentW * 0.10, contentW * 0.10, contentW * 0.10, contentW * 0.10}
	headers := []string{"Number", "Client", "Date", "Status", "Subtotal", "Tax", "Discount", "Total"}
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(235, 235, 235)
	for i, h := range headers {
		align := "R"
		if i < 4 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 6, h, "B", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	var all []billing.Totals
	pdf.SetFont("Helvetica", "", 8)
	for i := range invoices {
		inv := &invoices[i]
		t := inv.Totals()
		all = append(all, t)
		pdf.CellFormat(widths[0], 5, inv.Number, "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 5, tr(truncate(inv.ClientName, 45)), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 5, inv.Date, "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[3], 5, string(inv.PaymentStatus), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[4], 5, money(t.Subtotal), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[5], 5, money(t.TotalTax), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[6], 5, money(t.TotalDiscount), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[7], 5, money(t.GrandTotal), "", 1, "R", false, 0, "")
	}
	pdf.Ln(2)
	pdf.Line(12, pdf.GetY(), pageW-12, pdf.GetY())
	pdf.Ln(2)
	writeTotals(pdf, contentW, sumTotals(all))

	return output(pdf)
}

func writeTotals(pdf *fpdf.Fpdf, contentW float64, t billing.Totals) {
	label := contentW * 0.80
	value := contentW * 0.20
	r := t.Rounded()
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(label, 5, "Subtotal", "", 0, "R", false, 0, "")
	pdf.CellFormat(value, 5, r.Subtotal.StringFixed(2), "", 1, "R", false, 0, "")
	pdf.CellFormat(label, 5, "Tax", "", 0, "R", false, 0, "")
	pdf.CellFormat(value, 5, r.TotalTax.StringFixed(2), "", 1, "R", false, 0, "")
	pdf.CellFormat(label, 5, "Discount", "", 0, "R", false, 0, "")
	pdf.CellFormat(value, 5, "-"+r.TotalDiscount.StringFixed(2), "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(label, 7, "Total", "", 0, "R", false, 0, "")
	pdf.CellFormat(value, 7, r.GrandTotal.StringFixed(2), "", 1, "R", false, 0, "")
}

func sumTotals(list []billing.Totals) billing.Totals {
	var sum billing.Totals
	for _, t := range list {
		sum.Subtotal = sum.Subtotal.Add(t.Subtotal)
		sum.TotalTax = sum.TotalTax.Add(t.TotalTax)
		sum.TotalDiscount = sum.TotalDiscount.Add(t.TotalDiscount)
		sum.GrandTotal = sum.GrandTotal.Add(t.GrandTotal)
	}
	return sum
}

func output(pdf *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render: %w", err)
	}
	return buf.Bytes(), nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
