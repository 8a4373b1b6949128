package service

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/kitchenops/backend/internal/domain"
)

// SalesSheet is the worksheet name of the XLSX export
const SalesSheet = "Sales"

// ExportSalesXLSX writes the filtered records as a workbook with one sheet
// holding the same columns as the CSV export
func (s *SalesService) ExportSalesXLSX(ctx context.Context, w io.Writer, filter domain.SalesFilter) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SalesSheet); err != nil {
		return fmt.Errorf("%w: xlsx: %w", domain.ErrInternal, err)
	}
	sw, err := f.NewStreamWriter(SalesSheet)
	if err != nil {
		return fmt.Errorf("%w: xlsx: %w", domain.ErrInternal, err)
	}

	header := make([]interface{}, len(ExportHeader))
	for i, h := range ExportHeader {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("%w: xlsx: %w", domain.ErrInternal, err)
	}

	catalog := newNames(s.repo)
	rowNo := 2
	err = s.eachSale(ctx, filter, func(rec domain.SalesRecord) error {
		cells := exportRow(ctx, rec, catalog)
		values := make([]interface{}, len(cells))
		for i, c := range cells {
			values[i] = c
		}
		// numeric columns stay numeric in the sheet
		values[3] = rec.Item.ID
		values[5] = rec.Quantity
		values[6] = rec.UnitPrice.InexactFloat64()
		values[7] = rec.TotalPrice.InexactFloat64()
		values[9] = rec.Weekday
		if rec.Temperature != nil {
			values[11] = *rec.Temperature
		}

		cell, err := excelize.CoordinatesToCellName(1, rowNo)
		if err != nil {
			return fmt.Errorf("%w: xlsx: %w", domain.ErrInternal, err)
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("%w: xlsx: %w", domain.ErrInternal, err)
		}
		rowNo++
		return nil
	})
	if err != nil {
		return err
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("%w: xlsx: %w", domain.ErrInternal, err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("%w: xlsx: %w", domain.ErrInternal, err)
	}
	return nil
}
