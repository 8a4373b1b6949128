package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kitchenops/backend/internal/domain"
	"github.com/kitchenops/backend/internal/repository/memory"
)

const importFixture = `data;tipo_item;item_id;quantidade;valor_unitario;periodo_dia;clima;temperatura;evento_especial
2024-03-01;menu_item;1;3;12,50;almoco;sol;28,5;
2024-03-02;menu_item;1;4;12.50;jantar;;;
2024-03-03;dish;2;1;30,00;;chuva;19;carnaval
2024-03-04;dish;2;2;30;;;;
2024-03-05;menu_item;1;5;12,5;;;;
2024-03-06;MENU_ITEM;1;6;12,50;;;;
2024-03-07;dish;2;0;30,00;;;;
2024-13-40;menu_item;1;3;12,50;;;;
2024-03-08;menu_item;1;abc;12,50;;;;
2024-03-09;menu_item;99;3;12,50;;;;
`

func TestImportSalesCSV_ToleratesBadRows(t *testing.T) {
	repo := newRepo()
	svc := NewSalesService(repo, nil, quietLogger())

	summary, err := svc.ImportSalesCSV(context.Background(), strings.NewReader(importFixture))
	if err != nil {
		t.Fatalf("ImportSalesCSV: %v", err)
	}
	if summary.Imported != 7 || summary.Skipped != 3 {
		t.Fatalf("summary=%+v, want 7 imported 3 skipped", summary)
	}
	if len(summary.Errors) != 3 || summary.Errors[0].Line != 9 || summary.Errors[2].Line != 11 {
		t.Fatalf("row errors: %+v", summary.Errors)
	}

	page, err := svc.ListSales(context.Background(), domain.SalesFilter{}, domain.Pagination{})
	if err != nil {
		t.Fatalf("ListSales: %v", err)
	}
	if page.Total != 7 {
		t.Fatalf("stored %d records, want 7", page.Total)
	}
	for _, rec := range page.Items {
		if rec.Date.Equal(day("2024-03-01")) {
			if !rec.UnitPrice.Equal(rec.UnitPrice.Round(2)) || rec.UnitPrice.String() != "12.5" {
				t.Fatalf("comma decimal not parsed: %s", rec.UnitPrice)
			}
			if rec.Temperature == nil || *rec.Temperature != 28.5 {
				t.Fatalf("temperature=%v", rec.Temperature)
			}
			if rec.ItemName != "Feijoada" || rec.PeriodOfDay != "almoco" {
				t.Fatalf("unexpected record: %+v", rec)
			}
		}
	}
}

func TestImportSalesCSV_RoundTrip(t *testing.T) {
	src := newRepo()
	svc := NewSalesService(src, nil, quietLogger())
	if _, err := svc.ImportSalesCSV(context.Background(), strings.NewReader(importFixture)); err != nil {
		t.Fatalf("ImportSalesCSV: %v", err)
	}

	item := domain.Dish(moquecaID)
	filter := domain.SalesFilter{Item: &item}
	var buf bytes.Buffer
	if err := svc.ExportSalesCSV(context.Background(), &buf, filter); err != nil {
		t.Fatalf("ExportSalesCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != strings.Join(ExportHeader, ";") {
		t.Fatalf("header=%q", lines[0])
	}
	if len(lines) != 4 {
		t.Fatalf("want header + 3 dish rows, got %d lines", len(lines))
	}
	if !strings.Contains(buf.String(), ";30.00;60.00;") {
		t.Fatalf("prices not fixed to 2 decimals:\n%s", buf.String())
	}

	dst := NewSalesService(newRepo(), nil, quietLogger())
	summary, err := dst.ImportSalesCSV(context.Background(), &buf)
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if summary.Imported != 3 || summary.Skipped != 0 {
		t.Fatalf("round trip summary=%+v", summary)
	}
}

func TestImportSalesCSV_HeaderProblems(t *testing.T) {
	svc := NewSalesService(newRepo(), nil, quietLogger())

	_, err := svc.ImportSalesCSV(context.Background(), strings.NewReader(""))
	assertKind(t, err, domain.KindParse)

	_, err = svc.ImportSalesCSV(context.Background(), strings.NewReader("data;tipo_item;item_id;quantidade\n2024-03-01;dish;2;1\n"))
	assertKind(t, err, domain.KindParse)
}

func TestImportSalesCSV_HolidayAndEnglishHeaders(t *testing.T) {
	repo := newRepo()
	svc := NewSalesService(repo, nil, quietLogger())
	body := "Date;Type;Item_ID;Quantity;Unit Price;Is_Holiday\n2024-04-21;dish;2;3;41,90;sim\n2024-04-22;dish;2;3;41,90;talvez\n"

	summary, err := svc.ImportSalesCSV(context.Background(), strings.NewReader(body))
	if err != nil {
		t.Fatalf("ImportSalesCSV: %v", err)
	}
	if summary.Imported != 1 || summary.Skipped != 1 {
		t.Fatalf("summary=%+v", summary)
	}
	page, _ := svc.ListSales(context.Background(), domain.SalesFilter{}, domain.Pagination{})
	if len(page.Items) != 1 || !page.Items[0].IsHoliday || page.Items[0].TotalPrice.String() != "125.7" {
		t.Fatalf("unexpected record: %+v", page.Items)
	}
}

func TestImportSalesCSV_SkipsOutOfRangeRows(t *testing.T) {
	repo := newRepo()
	svc := NewSalesService(repo, nil, quietLogger())
	body := "data;tipo_item;item_id;quantidade;valor_unitario\n" +
		"2024-03-01;dish;2;3;1,00\n" +
		"2024-03-01;dish;2;3000000000;1,00\n" +
		"2024-03-02;dish;2;1;12345678901,00\n" +
		"2024-03-02;dish;2;2;1,00\n"

	summary, err := svc.ImportSalesCSV(context.Background(), strings.NewReader(body))
	if err != nil {
		t.Fatalf("ImportSalesCSV: %v", err)
	}
	if summary.Imported != 2 || summary.Skipped != 2 {
		t.Fatalf("summary=%+v, want 2 imported 2 skipped", summary)
	}
	if summary.Errors[0].Line != 3 || summary.Errors[1].Line != 4 {
		t.Fatalf("row errors: %+v", summary.Errors)
	}
	if !strings.Contains(summary.Errors[0].Reason, "quantity") {
		t.Fatalf("reason=%q", summary.Errors[0].Reason)
	}
}

type failingInsertRepo struct {
	*memory.Repository
}

func (failingInsertRepo) InsertSales(context.Context, []*domain.SalesRecord) (int, error) {
	return 0, errors.New("connection reset")
}

func TestImportSalesCSV_StoreFailureAborts(t *testing.T) {
	svc := NewSalesService(failingInsertRepo{newRepo()}, nil, quietLogger())
	_, err := svc.ImportSalesCSV(context.Background(), strings.NewReader(importFixture))
	assertKind(t, err, domain.KindInternal)
}

func TestParseDecimal(t *testing.T) {
	cases := []struct {
		in   string
		want string
		err  bool
	}{
		{in: "12,50", want: "12.5"},
		{in: "12.50", want: "12.5"},
		{in: "1.234,56", want: "1234.56"},
		{in: "1,234.56", want: "1234.56"},
		{in: " 7 ", want: "7"},
		{in: "abc", err: true},
	}
	for _, c := range cases {
		got, err := parseDecimal(c.in)
		if c.err {
			if err == nil {
				t.Fatalf("%q: expected error", c.in)
			}
			continue
		}
		if err != nil || got.String() != c.want {
			t.Fatalf("%q: got %s, %v want %s", c.in, got, err, c.want)
		}
	}
}

func TestExportSalesXLSX(t *testing.T) {
	repo := newRepo()
	svc := NewSalesService(repo, nil, quietLogger())
	if _, err := svc.ImportSalesCSV(context.Background(), strings.NewReader(importFixture)); err != nil {
		t.Fatalf("ImportSalesCSV: %v", err)
	}

	var buf bytes.Buffer
	item := domain.MenuItem(feijoadaID)
	if err := svc.ExportSalesXLSX(context.Background(), &buf, domain.SalesFilter{Item: &item}); err != nil {
		t.Fatalf("ExportSalesXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(SalesSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("want header + 4 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ";") != strings.Join(ExportHeader, ";") {
		t.Fatalf("header=%v", rows[0])
	}
	if rows[1][4] != "Feijoada" {
		t.Fatalf("item name cell=%q", rows[1][4])
	}
}
