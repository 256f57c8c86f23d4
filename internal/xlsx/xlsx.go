// Package xlsx inspects workbooks downloaded from the export surface before
// they are written to disk, so a corrupt payload is reported instead of
// saved silently.
package xlsx

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// SheetInfo summarizes one worksheet.
type SheetInfo struct {
	Name string
	Rows int
	Cols int
}

// Summary describes a decoded workbook.
type Summary struct {
	Sheets []SheetInfo
}

// Decode base64-decodes an export payload.
func Decode(payloadBase64 string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(payloadBase64)
	if err != nil {
		return nil, fmt.Errorf("decode workbook payload: %w", err)
	}
	return b, nil
}

// Inspect opens the workbook bytes and summarizes each sheet.
func Inspect(data []byte) (*Summary, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var sum Summary
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		cols := 0
		for _, row := range rows {
			if len(row) > cols {
				cols = len(row)
			}
		}
		sum.Sheets = append(sum.Sheets, SheetInfo{Name: name, Rows: len(rows), Cols: cols})
	}
	return &sum, nil
}
