package interfaces

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	charging "blastcharge/internal/charging/domain"
)

// BuildChargeSheetPDF renders a charge sheet for a hole's column.
func BuildChargeSheetPDF(column *charging.HoleCharging) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Charge Sheet")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Entity: %s", column.EntityName))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Hole: %s", column.HoleID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Diameter (mm): %.1f", column.HoleDiameterMm))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Length (m): %.2f", column.HoleLength))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Explosive Mass (kg): %.2f", column.TotalExplosiveMass()))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Updated: %s", column.UpdatedAt.Format(time.RFC3339)))
	pdf.Ln(8)

	// Decks table
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(30, 6, "Type", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Product", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Top (m)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Base (m)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Mass (kg)", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, deck := range column.Decks {
		pdf.CellFormat(30, 6, string(deck.Type), "1", 0, "C", false, 0, "")
		pdf.CellFormat(50, 6, deck.Product.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%.2f", deck.TopDepth), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%.2f", deck.BaseDepth), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", deck.ExplosiveMass(column.HoleDiameterMm)), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	if len(column.Primers) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(30, 6, "Primer", "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, "Depth (m)", "1", 0, "C", false, 0, "")
		pdf.CellFormat(60, 6, "Detonator", "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, "Delay (ms)", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 10)
		for i, primer := range column.Primers {
			pdf.CellFormat(30, 6, fmt.Sprintf("%d", i+1), "1", 0, "C", false, 0, "")
			pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", primer.LengthFromCollar), "1", 0, "R", false, 0, "")
			pdf.CellFormat(60, 6, primer.Detonator.ProductRef, "1", 0, "L", false, 0, "")
			pdf.CellFormat(30, 6, fmt.Sprintf("%.0f", primer.Detonator.DelayMs), "1", 0, "R", false, 0, "")
			pdf.Ln(-1)
		}
	}

	var buf bytes.Buffer
	err := pdf.Output(&buf)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildChargeSheetXLSX renders a charge sheet workbook for a column.
func BuildChargeSheetXLSX(column *charging.HoleCharging) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	decksSheet := "decks"
	primersSheet := "primers"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(decksSheet)
	f.NewSheet(primersSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Charge Sheet")
	_ = f.SetCellValue(summarySheet, "A3", "Entity")
	_ = f.SetCellValue(summarySheet, "B3", column.EntityName)
	_ = f.SetCellValue(summarySheet, "A4", "Hole")
	_ = f.SetCellValue(summarySheet, "B4", column.HoleID)
	_ = f.SetCellValue(summarySheet, "A5", "Diameter (mm)")
	_ = f.SetCellValue(summarySheet, "B5", column.HoleDiameterMm)
	_ = f.SetCellValue(summarySheet, "A6", "Length (m)")
	_ = f.SetCellValue(summarySheet, "B6", column.HoleLength)
	_ = f.SetCellValue(summarySheet, "A7", "Explosive Mass (kg)")
	_ = f.SetCellValue(summarySheet, "B7", column.TotalExplosiveMass())
	_ = f.SetCellValue(summarySheet, "A8", "Deck Count")
	_ = f.SetCellValue(summarySheet, "B8", len(column.Decks))
	_ = f.SetCellValue(summarySheet, "A9", "Primer Count")
	_ = f.SetCellValue(summarySheet, "B9", len(column.Primers))

	_ = f.SetCellValue(decksSheet, "A1", "Type")
	_ = f.SetCellValue(decksSheet, "B1", "Product")
	_ = f.SetCellValue(decksSheet, "C1", "Top (m)")
	_ = f.SetCellValue(decksSheet, "D1", "Base (m)")
	_ = f.SetCellValue(decksSheet, "E1", "Length (m)")
	_ = f.SetCellValue(decksSheet, "F1", "Scaling")
	_ = f.SetCellValue(decksSheet, "G1", "Mass (kg)")
	for i, deck := range column.Decks {
		row := i + 2
		_ = f.SetCellValue(decksSheet, fmt.Sprintf("A%d", row), string(deck.Type))
		_ = f.SetCellValue(decksSheet, fmt.Sprintf("B%d", row), deck.Product.Name)
		_ = f.SetCellValue(decksSheet, fmt.Sprintf("C%d", row), deck.TopDepth)
		_ = f.SetCellValue(decksSheet, fmt.Sprintf("D%d", row), deck.BaseDepth)
		_ = f.SetCellValue(decksSheet, fmt.Sprintf("E%d", row), deck.Length())
		_ = f.SetCellValue(decksSheet, fmt.Sprintf("F%d", row), string(deck.Scaling))
		_ = f.SetCellValue(decksSheet, fmt.Sprintf("G%d", row), deck.ExplosiveMass(column.HoleDiameterMm))
	}

	_ = f.SetCellValue(primersSheet, "A1", "Depth (m)")
	_ = f.SetCellValue(primersSheet, "B1", "Detonator")
	_ = f.SetCellValue(primersSheet, "C1", "Booster")
	_ = f.SetCellValue(primersSheet, "D1", "Delay (ms)")
	_ = f.SetCellValue(primersSheet, "E1", "Assigned Deck")
	for i, primer := range column.Primers {
		row := i + 2
		_ = f.SetCellValue(primersSheet, fmt.Sprintf("A%d", row), primer.LengthFromCollar)
		_ = f.SetCellValue(primersSheet, fmt.Sprintf("B%d", row), primer.Detonator.ProductRef)
		_ = f.SetCellValue(primersSheet, fmt.Sprintf("C%d", row), primer.Booster.ProductRef)
		_ = f.SetCellValue(primersSheet, fmt.Sprintf("D%d", row), primer.Detonator.DelayMs)
		_ = f.SetCellValue(primersSheet, fmt.Sprintf("E%d", row), primer.AssignedDeckID)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
