package report

import (
	"bytes"
	"testing"

	"gridswitch/internal/convert/export"
	"gridswitch/internal/solution"
	"gridswitch/internal/tables"
)

func TestBuildRunReportPDF(t *testing.T) {
	periods := []export.Period{
		{Year: 2030, Start: 2025, End: 2035},
		{Year: 2040, Start: 2036, End: 2045},
	}
	decisions := solution.BuildDecisions{
		Gen: []solution.Build{
			{Year: 2040, Tag: "g2i", Capacity: 10},
			{Year: 2030, Tag: "g1i", Capacity: 50},
		},
		Tx: []solution.Build{{Year: 2030, Tag: "1ac", Capacity: 60}},
	}
	pdf, err := BuildRunReportPDF(periods, decisions)
	if err != nil {
		t.Fatalf("BuildRunReportPDF: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("output is not a PDF, starts with %q", pdf[:8])
	}
}

func TestBuildRunReportPDFEmptyDecisions(t *testing.T) {
	pdf, err := BuildRunReportPDF(nil, solution.BuildDecisions{})
	if err != nil {
		t.Fatalf("BuildRunReportPDF: %v", err)
	}
	if len(pdf) == 0 {
		t.Fatal("empty PDF output")
	}
}

func TestBuildInputWorkbook(t *testing.T) {
	periods := tables.New("periods", "INVESTMENT_PERIOD", "period_start", "period_end")
	periods.MustAppend("2030", "2025", "2035")
	fuels := tables.New("fuels", "fuel", "co2_intensity", "upstream_co2_intensity")
	fuels.MustAppend("Coal", ".", ".")

	book, err := BuildInputWorkbook([]*tables.Table{periods, fuels})
	if err != nil {
		t.Fatalf("BuildInputWorkbook: %v", err)
	}
	// XLSX files are zip archives.
	if !bytes.HasPrefix(book, []byte("PK")) {
		t.Fatalf("output is not an xlsx archive, starts with %q", book[:4])
	}
}
