// Package report renders human-readable companions to the machine-facing
// CSV file set: a PDF summary of an expansion run and an XLSX workbook of the
// emitted input tables.
package report

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"gridswitch/internal/convert/export"
	"gridswitch/internal/solution"
	"gridswitch/internal/tables"
)

// BuildRunReportPDF renders a summary of the optimizer's build decisions.
func BuildRunReportPDF(periods []export.Period, decisions solution.BuildDecisions) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Capacity Expansion Run Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	for _, p := range periods {
		pdf.Cell(0, 6, fmt.Sprintf("Investment period %d (%d-%d)", p.Year, p.Start, p.End))
		pdf.Ln(5)
	}
	pdf.Ln(4)

	writeFamily := func(title string, builds []solution.Build) {
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, fmt.Sprintf("%s (%d decisions)", title, len(builds)))
		pdf.Ln(7)
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(40, 6, "Year", "1", 0, "C", false, 0, "")
		pdf.CellFormat(60, 6, "Entity", "1", 0, "C", false, 0, "")
		pdf.CellFormat(60, 6, "Capacity (MW/MWh)", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
		sorted := make([]solution.Build, len(builds))
		copy(sorted, builds)
		sort.Slice(sorted, func(i, j int) bool {
			if sorted[i].Year != sorted[j].Year {
				return sorted[i].Year < sorted[j].Year
			}
			return sorted[i].Tag < sorted[j].Tag
		})
		for _, b := range sorted {
			pdf.CellFormat(40, 6, fmt.Sprintf("%d", b.Year), "1", 0, "C", false, 0, "")
			pdf.CellFormat(60, 6, b.Tag, "1", 0, "C", false, 0, "")
			pdf.CellFormat(60, 6, fmt.Sprintf("%.2f", b.Capacity), "1", 0, "R", false, 0, "")
			pdf.Ln(-1)
		}
		pdf.Ln(4)
	}
	writeFamily("Generation builds", decisions.Gen)
	writeFamily("Transmission upgrades", decisions.Tx)
	writeFamily("Storage builds", decisions.Storage)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildInputWorkbook renders the emitted input tables as one XLSX workbook,
// one sheet per table, for review outside the optimizer.
func BuildInputWorkbook(inputTables []*tables.Table) ([]byte, error) {
	f := excelize.NewFile()
	for i, t := range inputTables {
		sheet := t.Name
		if i == 0 {
			f.SetSheetName("Sheet1", sheet)
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				return nil, err
			}
		}
		for col, name := range t.Header {
			cell, err := excelize.CoordinatesToCellName(col+1, 1)
			if err != nil {
				return nil, err
			}
			_ = f.SetCellValue(sheet, cell, name)
		}
		for row, cells := range t.Rows {
			for col, value := range cells {
				cell, err := excelize.CoordinatesToCellName(col+1, row+2)
				if err != nil {
					return nil, err
				}
				_ = f.SetCellValue(sheet, cell, value)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
