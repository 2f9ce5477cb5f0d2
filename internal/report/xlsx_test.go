package report

import (
	"errors"
	"strings"
	"testing"
	"time"

	"orderbot/internal/domain"

	"github.com/tealeg/xlsx/v3"
)

func readSheet(t *testing.T, content []byte) [][]string {
	t.Helper()
	file, err := xlsx.OpenBinary(content)
	if err != nil {
		t.Fatalf("open rendered workbook: %v", err)
	}
	if len(file.Sheets) != 1 {
		t.Fatalf("expected exactly one sheet, got %d", len(file.Sheets))
	}
	sheet := file.Sheets[0]
	var rows [][]string
	for r := 0; r < sheet.MaxRow; r++ {
		var values []string
		for c := 0; c < sheet.MaxCol; c++ {
			cell, err := sheet.Cell(r, c)
			if err != nil {
				t.Fatalf("read cell %d,%d: %v", r, c, err)
			}
			values = append(values, cell.Value)
		}
		rows = append(rows, values)
	}
	return rows
}

func assertHeader(t *testing.T, rows [][]string) {
	t.Helper()
	if len(rows) == 0 {
		t.Fatal("rendered sheet has no header row")
	}
	if strings.Join(rows[0], ",") != "name,date,products" {
		t.Fatalf("header = %v, want name,date,products", rows[0])
	}
}

func TestRenderRecords(t *testing.T) {
	day := time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC)
	records := []domain.OrderRecord{
		{PersonName: "Alice Real", Date: day, ProductName: "oat milk"},
		{PersonName: "Bob Real", Date: day.AddDate(0, 0, 1), ProductName: "coffee beans"},
	}

	rep, err := NewRenderer("kitchen_orders.xlsx").Render(records)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if rep.Filename != "kitchen_orders.xlsx" {
		t.Fatalf("unexpected filename %q", rep.Filename)
	}

	rows := readSheet(t, rep.Content)
	assertHeader(t, rows)
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d rows", len(rows))
	}
	if rows[1][0] != "Alice Real" || rows[1][1] != "08/04/2025" || rows[1][2] != "oat milk" {
		t.Fatalf("unexpected first row: %v", rows[1])
	}
	if rows[2][2] != "coffee beans" {
		t.Fatalf("unexpected second row: %v", rows[2])
	}
}

func TestRenderEmptyKeepsColumns(t *testing.T) {
	for _, records := range [][]domain.OrderRecord{nil, {}} {
		rep, err := NewRenderer("empty.xlsx").Render(records)
		if err != nil {
			t.Fatalf("Render(empty) returned error: %v", err)
		}
		rows := readSheet(t, rep.Content)
		assertHeader(t, rows)
		if len(rows) != 1 {
			t.Fatalf("expected only the header row, got %d rows", len(rows))
		}
	}
}

func TestRenderFillsMissingFields(t *testing.T) {
	rep, err := NewRenderer("partial.xlsx").Render([]domain.OrderRecord{
		{ProductName: "bread"},
		{PersonName: "Carol"},
	})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	rows := readSheet(t, rep.Content)
	assertHeader(t, rows)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if len(rows[1]) != 3 || rows[1][0] != "" || rows[1][1] != "" || rows[1][2] != "bread" {
		t.Fatalf("missing fields must render as empty cells, got %v", rows[1])
	}
	if rows[2][0] != "Carol" || rows[2][2] != "" {
		t.Fatalf("unexpected second row: %v", rows[2])
	}
}

func TestRenderColumnStructureIsStable(t *testing.T) {
	records := []domain.OrderRecord{{PersonName: "Dan", Date: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), ProductName: "tea"}}
	r := NewRenderer("stable.xlsx")

	first, err := r.Render(records)
	if err != nil {
		t.Fatalf("first render: %v", err)
	}
	second, err := r.Render(records)
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	a, b := readSheet(t, first.Content), readSheet(t, second.Content)
	if len(a) != len(b) {
		t.Fatalf("row count differs between renders: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if strings.Join(a[i], "|") != strings.Join(b[i], "|") {
			t.Fatalf("row %d differs between renders: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestRenderFaultReturnsErrorWorkbook(t *testing.T) {
	r := &Renderer{Filename: "broken.xlsx", SheetName: strings.Repeat("x", 40)}

	rep, err := r.Render([]domain.OrderRecord{{PersonName: "Eve", ProductName: "jam"}})
	var renderErr *domain.RenderError
	if !errors.As(err, &renderErr) {
		t.Fatalf("expected RenderError, got %v", err)
	}
	if len(rep.Content) == 0 {
		t.Fatal("render fault must still return a workbook")
	}
	if rep.Filename != "broken.xlsx" {
		t.Fatalf("unexpected filename %q", rep.Filename)
	}
	rows := readSheet(t, rep.Content)
	if len(rows) != 2 || rows[0][0] != "error" || rows[1][0] == "" {
		t.Fatalf("expected single error row workbook, got %v", rows)
	}
}
