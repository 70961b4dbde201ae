package interfaces

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	invoiceapp "parkbill/internal/invoicing/application"
	invoicing "parkbill/internal/invoicing/domain"
)

// BuildInvoicePDF renders one account's invoice as a PDF page.
func BuildInvoicePDF(invoice *invoicing.Invoice, business invoiceapp.BusinessConfig) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	renderInvoicePage(pdf, invoice, business)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildInvoiceBatchPDF renders a cycle's invoices, one page per account.
func BuildInvoiceBatchPDF(invoices []invoicing.Invoice, business invoiceapp.BusinessConfig) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	for i := range invoices {
		pdf.AddPage()
		renderInvoicePage(pdf, &invoices[i], business)
	}
	if len(invoices) == 0 {
		pdf.AddPage()
		pdf.Cell(0, 8, "No invoices for this cycle")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderInvoicePage(pdf *gofpdf.Fpdf, invoice *invoicing.Invoice, business invoiceapp.BusinessConfig) {
	row := invoice.Details

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, business.Name)
	pdf.Ln(7)
	pdf.SetFont("Arial", "", 10)
	if business.AddressLine1 != "" {
		pdf.Cell(0, 5, business.AddressLine1)
		pdf.Ln(5)
	}
	if business.AddressLine2 != "" {
		pdf.Cell(0, 5, business.AddressLine2)
		pdf.Ln(5)
	}
	if business.ContactPhone != "" {
		pdf.Cell(0, 5, business.ContactPhone)
		pdf.Ln(5)
	}
	if business.ContactEmail != "" {
		pdf.Cell(0, 5, business.ContactEmail)
		pdf.Ln(5)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 7, "Invoice")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 5, fmt.Sprintf("Customer: %s", row.CustomerID()))
	pdf.Ln(5)
	pdf.Cell(0, 5, fmt.Sprintf("Invoice date: %s", invoice.InvoiceDate.Format("2006-01-02")))
	pdf.Ln(5)
	pdf.Cell(0, 5, fmt.Sprintf("Due date: %s", invoice.StatementDate.Format("2006-01-02")))
	pdf.Ln(8)

	addr1, addr2 := row.AddressLines()
	pdf.Cell(0, 5, row.TenantName)
	pdf.Ln(5)
	if addr1 != "" {
		pdf.Cell(0, 5, addr1)
		pdf.Ln(5)
	}
	if addr2 != "" {
		pdf.Cell(0, 5, addr2)
		pdf.Ln(5)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(30, 6, "Date", "1", 0, "C", false, 0, "")
	pdf.CellFormat(110, 6, "Description", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Amount", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, line := range row.Lines(invoice.InvoiceDate) {
		pdf.CellFormat(30, 6, line.Date.Format("2006-01-02"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(110, 6, line.Description, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", line.Amount), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(140, 6, "Total due", "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", invoice.AmountDue), "1", 0, "R", false, 0, "")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 9)
	if footnote := row.OtherRentFootnote(); footnote != "" {
		pdf.Cell(0, 5, footnote)
		pdf.Ln(5)
	}
	if instruction := business.PaymentInstruction(); instruction != "" {
		pdf.Cell(0, 5, instruction)
		pdf.Ln(5)
	}
}

// BuildInvoiceXLSX renders a cycle's invoices as a workbook: one summary
// sheet plus one line sheet per account.
func BuildInvoiceXLSX(invoices []invoicing.Invoice, business invoiceapp.BusinessConfig) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	f.SetSheetName("Sheet1", summarySheet)

	_ = f.SetCellValue(summarySheet, "A1", business.Name)
	_ = f.SetCellValue(summarySheet, "A3", "Customer")
	_ = f.SetCellValue(summarySheet, "B3", "Tenant")
	_ = f.SetCellValue(summarySheet, "C3", "Statement Date")
	_ = f.SetCellValue(summarySheet, "D3", "Amount Due")
	for i, invoice := range invoices {
		rowNum := i + 4
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", rowNum), invoice.Details.CustomerID())
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", rowNum), invoice.TenantName)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("C%d", rowNum), invoice.StatementDate.Format("2006-01-02"))
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("D%d", rowNum), invoice.AmountDue)
	}

	for _, invoice := range invoices {
		sheet := invoice.Details.CustomerID()
		if sheet == "" {
			sheet = invoice.AccountID.String()[:8]
		}
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
		_ = f.SetCellValue(sheet, "A1", invoice.TenantName)
		_ = f.SetCellValue(sheet, "A2", "Due date")
		_ = f.SetCellValue(sheet, "B2", invoice.StatementDate.Format("2006-01-02"))
		_ = f.SetCellValue(sheet, "A4", "Date")
		_ = f.SetCellValue(sheet, "B4", "Description")
		_ = f.SetCellValue(sheet, "C4", "Amount")
		for i, line := range invoice.Details.Lines(invoice.InvoiceDate) {
			rowNum := i + 5
			_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", rowNum), line.Date.Format("2006-01-02"))
			_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", rowNum), line.Description)
			_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", rowNum), line.Amount)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
