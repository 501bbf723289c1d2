package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"

	"github.com/tallyapp/tally/pkg/money"
)

// RenderPDF lays the statement out as an A4 document: a summary block,
// the per-member balances, the settle-up plan, and the expense listing.
func RenderPDF(st *Statement) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(14, 14, 14)
	pdf.AddPage()

	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Group Statement: "+trimTo(st.Group.Name, 60))
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	pdf.Cell(0, 6, fmt.Sprintf("Expenses recorded: %d", st.TotalCount))
	pdf.Ln(5)
	pdf.Cell(0, 6, "Total spent: "+money.Format(st.TotalSpent))
	pdf.Ln(10)

	pdf.SetDrawColor(200, 200, 200)
	renderBalances(pdf, st)
	renderTransfers(pdf, st)
	renderExpenses(pdf, st)

	pdf.SetY(-18)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 10, "Generated "+time.Now().UTC().Format(time.RFC3339), "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render statement pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func sectionHeader(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(20, 20, 20)
	pdf.Cell(0, 8, title)
	pdf.Ln(8)
}

func renderBalances(pdf *gofpdf.Fpdf, st *Statement) {
	sectionHeader(pdf, "Balances")

	colW := []float64{92, 90}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(245, 245, 245)
	pdf.CellFormat(colW[0], 8, "MEMBER", "1", 0, "L", true, 0, "")
	pdf.CellFormat(colW[1], 8, "NET", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(30, 30, 30)
	for _, b := range st.Balances {
		pdf.CellFormat(colW[0], 8, trimTo(b.Name, 60), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colW[1], 8, money.Format(b.Net), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(6)
}

func renderTransfers(pdf *gofpdf.Fpdf, st *Statement) {
	sectionHeader(pdf, "Settle-Up Plan")

	if len(st.Transfers) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.SetTextColor(80, 80, 80)
		pdf.Cell(0, 8, "Everyone is settled.")
		pdf.Ln(12)
		return
	}

	names := make(map[int64]string, len(st.Balances))
	for _, b := range st.Balances {
		names[b.UserID] = b.Name
	}
	label := func(userID int64) string {
		if name, ok := names[userID]; ok {
			return name
		}
		return fmt.Sprintf("User %d", userID)
	}

	colW := []float64{68, 68, 46}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(245, 245, 245)
	pdf.SetTextColor(20, 20, 20)
	pdf.CellFormat(colW[0], 8, "FROM", "1", 0, "L", true, 0, "")
	pdf.CellFormat(colW[1], 8, "TO", "1", 0, "L", true, 0, "")
	pdf.CellFormat(colW[2], 8, "AMOUNT", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(30, 30, 30)
	for _, t := range st.Transfers {
		pdf.CellFormat(colW[0], 8, trimTo(label(t.FromUserID), 40), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colW[1], 8, trimTo(label(t.ToUserID), 40), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colW[2], 8, money.Format(t.Amount), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(6)
}

func renderExpenses(pdf *gofpdf.Fpdf, st *Statement) {
	sectionHeader(pdf, "Expenses")

	colW := []float64{26, 80, 46, 30}
	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(245, 245, 245)
		pdf.SetTextColor(20, 20, 20)
		pdf.CellFormat(colW[0], 8, "DATE", "1", 0, "C", true, 0, "")
		pdf.CellFormat(colW[1], 8, "DESCRIPTION", "1", 0, "L", true, 0, "")
		pdf.CellFormat(colW[2], 8, "PAID BY", "1", 0, "L", true, 0, "")
		pdf.CellFormat(colW[3], 8, "AMOUNT", "1", 1, "R", true, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(30, 30, 30)
	}
	header()

	for _, e := range st.Expenses {
		if pdf.GetY() > 270 {
			pdf.AddPage()
			header()
		}
		pdf.CellFormat(colW[0], 8, e.Date.Format("2006-01-02"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colW[1], 8, trimTo(e.Description, 50), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colW[2], 8, trimTo(e.PayerName, 28), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colW[3], 8, money.Format(e.Amount), "1", 1, "R", false, 0, "")
	}

	if st.TotalCount > len(st.Expenses) {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, 8, fmt.Sprintf("and %d older expenses not shown", st.TotalCount-len(st.Expenses)), "1", 1, "C", false, 0, "")
	}
}

func trimTo(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
