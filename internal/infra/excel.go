package infra

import (
	"bytes"
	"fmt"

	"invoicing/internal/model"

	"github.com/xuri/excelize/v2"
)

// InvoicesSheet is the worksheet name of exported workbooks.
const InvoicesSheet = "Invoices"

var invoiceColumns = []string{
	"Number", "Client", "Date", "Due date", "Status",
	"Subtotal", "Tax", "Discount", "Grand total", "Items",
}

// RenderInvoicesXLSX writes one row per invoice. Amount cells hold numbers
// rounded to two decimals so spreadsheets can sum them.
func RenderInvoicesXLSX(invoices []model.Invoice) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", InvoicesSheet); err != nil {
		return nil, fmt.Errorf("excel: rename sheet: %w", err)
	}

	for i, title := range invoiceColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(InvoicesSheet, cell, title); err != nil {
			return nil, fmt.Errorf("excel: header %s: %w", cell, err)
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		lastHeader, _ := excelize.CoordinatesToCellName(len(invoiceColumns), 1)
		_ = f.SetCellStyle(InvoicesSheet, "A1", lastHeader, bold)
	}

	for r := range invoices {
		inv := &invoices[r]
		t := inv.Totals().Rounded()
		due := ""
		if inv.DueDate != nil {
			due = *inv.DueDate
		}
		row := []any{
			inv.Number, inv.ClientName, inv.Date, due, string(inv.PaymentStatus),
			t.Subtotal.InexactFloat64(), t.TotalTax.InexactFloat64(),
			t.TotalDiscount.InexactFloat64(), t.GrandTotal.InexactFloat64(),
			len(inv.Items),
		}
		start, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(InvoicesSheet, start, &row); err != nil {
			return nil, fmt.Errorf("excel: row %d: %w", r+2, err)
		}
	}

	_ = f.SetColWidth(InvoicesSheet, "A", "A", 14)
	_ = f.SetColWidth(InvoicesSheet, "B", "B", 32)
	_ = f.SetColWidth(InvoicesSheet, "C", "E", 12)
	_ = f.SetColWidth(InvoicesSheet, "F", "I", 14)

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("excel: write: %w", err)
	}
	return buf.Bytes(), nil
}
