package report

import (
	"bytes"
	"fmt"
	"log"
	"strings"

	"orderbot/internal/domain"

	"github.com/tealeg/xlsx/v3"
)

// Columns is the fixed schema of every rendered report, in order.
var Columns = []string{"name", "date", "products"}

const defaultSheetName = "Sheet1"

type Report struct {
	Filename string
	Content  []byte
}

type Renderer struct {
	Filename  string
	SheetName string
}

func NewRenderer(filename string) *Renderer {
	return &Renderer{Filename: filename, SheetName: defaultSheetName}
}

// Render always returns a workbook. When building the real report fails the
// content is a one-row workbook describing the fault and the error is a
// *domain.RenderError.
func (r *Renderer) Render(records []domain.OrderRecord) (rep Report, err error) {
	rep.Filename = r.filename()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic while rendering: %v", p)
		}
		if err != nil {
			log.Printf("report render error records=%d: %v", len(records), err)
			rep.Content = errorWorkbook(err)
			err = &domain.RenderError{Err: err}
		}
	}()

	rep.Content, err = r.renderRecords(records)
	if err == nil {
		log.Printf("report rendered records=%d size=%d file=%s", len(records), len(rep.Content), rep.Filename)
	}
	return rep, err
}

func (r *Renderer) renderRecords(records []domain.OrderRecord) ([]byte, error) {
	file := xlsx.NewFile()
	sheetName := r.SheetName
	if sheetName == "" {
		sheetName = defaultSheetName
	}
	sheet, err := file.AddSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("adding sheet: %w", err)
	}

	writeRow(sheet, Columns)
	for _, rec := range records {
		writeRow(sheet, recordCells(rec))
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// recordCells lines a record up with Columns; missing fields become "".
func recordCells(rec domain.OrderRecord) []string {
	date := ""
	if !rec.Date.IsZero() {
		date = rec.Date.Format(domain.ReportDateLayout)
	}
	return []string{
		strings.TrimSpace(rec.PersonName),
		date,
		strings.TrimSpace(rec.ProductName),
	}
}

func writeRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func errorWorkbook(cause error) []byte {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(defaultSheetName)
	if err != nil {
		return nil
	}
	writeRow(sheet, []string{"error"})
	writeRow(sheet, []string{cause.Error()})
	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil
	}
	return buf.Bytes()
}

func (r *Renderer) filename() string {
	if strings.TrimSpace(r.Filename) == "" {
		return "orders.xlsx"
	}
	return r.Filename
}
