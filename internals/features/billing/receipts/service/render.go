package service

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// Document is everything printed on a receipt.
type Document struct {
	ReceiptNo   string
	IssuedAt    time.Time
	PaidOn      time.Time
	PaymentID   int64
	InvoiceID   int64
	PayerName   string
	PayerEmail  string
	BatchName   string
	AmountCents int64
	Currency    string
	Mode        string
	Reference   string
}

// FormatAmount renders minor units as "INR 500.00".
func FormatAmount(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s %s%d.%02d", strings.ToUpper(currency), sign, cents/100, cents%100)
}

func RenderPDF(d *Document) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Receipt "+d.ReceiptNo, false)
	pdf.SetCreator("tuitionhub", false)
	pdf.SetCreationDate(d.IssuedAt)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, "Payment Receipt", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	row := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(50, 8, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 8, value, "", 1, "L", false, 0, "")
	}
	row("Receipt No", d.ReceiptNo)
	row("Issued", d.IssuedAt.Format("02 Jan 2006"))
	row("Paid on", d.PaidOn.Format("02 Jan 2006"))
	row("Received from", nonEmpty(d.PayerName, "-"))
	if d.PayerEmail != "" {
		row("Email", d.PayerEmail)
	}
	pdf.Ln(4)

	// line item table
	pdf.SetFillColor(235, 235, 235)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(130, 9, "Description", "1", 0, "L", true, 0, "")
	pdf.CellFormat(0, 9, "Amount", "1", 1, "R", true, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	desc := fmt.Sprintf("Tuition fee, invoice #%d", d.InvoiceID)
	if d.BatchName != "" {
		desc += " (" + d.BatchName + ")"
	}
	pdf.CellFormat(130, 9, desc, "1", 0, "L", false, 0, "")
	pdf.CellFormat(0, 9, FormatAmount(d.AmountCents, d.Currency), "1", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(130, 9, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(0, 9, FormatAmount(d.AmountCents, d.Currency), "1", 1, "R", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 11)
	row("Payment method", d.Mode)
	if d.Reference != "" {
		row("Reference", d.Reference)
	}
	row("Payment ID", fmt.Sprintf("%d", d.PaymentID))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

func nonEmpty(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
