package excel

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"shrimp/domain/market"
	"shrimp/internal/errors"
)

// Workbook header names, exactly as the monthly templates state them.
const (
	headerEmissionDate = "FEC_EMISION"
	headerClientCode   = "COD_CLIENTE"
	headerSKU          = "COD_SKU"
	headerTons         = "TON"
	headerDate         = "Fecha"
)

// sheet holds one parsed worksheet: the header row mapped to column index,
// plus the raw data rows.
type sheet struct {
	cols map[string]int
	rows [][]string
}

// readFirstSheet opens the workbook and reads its first worksheet.
func readFirstSheet(r io.Reader) (*sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.InvalidInput(fmt.Sprintf("cannot open workbook: %v", err))
	}
	defer f.Close()

	name := f.GetSheetName(0)
	if name == "" {
		return nil, errors.InvalidInput("workbook has no sheets")
	}
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, errors.InvalidInput(fmt.Sprintf("cannot read sheet %s: %v", name, err))
	}
	if len(rows) < 2 {
		return nil, errors.InvalidInput("workbook must have a header row and at least one data row")
	}

	cols := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		cols[strings.TrimSpace(h)] = i
	}
	return &sheet{cols: cols, rows: rows[1:]}, nil
}

// cell returns the named column of a row, empty string when the row is
// ragged short.
func (s *sheet) cell(row []string, header string) (string, error) {
	idx, ok := s.cols[header]
	if !ok {
		return "", errors.InvalidInput(fmt.Sprintf("workbook missing column %q", header))
	}
	if idx >= len(row) {
		return "", nil
	}
	return strings.TrimSpace(row[idx]), nil
}

func (s *sheet) dateCell(row []string, header string) (time.Time, error) {
	raw, err := s.cell(row, header)
	if err != nil {
		return time.Time{}, err
	}
	return parseDate(raw, header)
}

func (s *sheet) floatCell(row []string, header string) (float64, error) {
	raw, err := s.cell(row, header)
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return 0, errors.InvalidInput(fmt.Sprintf("column %q: %q is not a number", header, raw))
	}
	return v, nil
}

func (s *sheet) intCell(row []string, header string) (int, error) {
	v, err := s.floatCell(row, header)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// dateLayouts are the cell formats the templates show up with, depending on
// how the source system exported them.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01-02-06",
	"1/2/06 15:04",
	"01/02/2006",
	"2/1/2006",
}

// excelEpoch is day zero of Excel's 1900 date system.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

func parseDate(raw, header string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.InvalidInput(fmt.Sprintf("column %q: empty date", header))
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	// Cells without a date style come through as serial numbers.
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		t := excelEpoch.AddDate(0, 0, int(serial))
		return t, nil
	}
	return time.Time{}, errors.InvalidInput(fmt.Sprintf("column %q: cannot parse date %q", header, raw))
}

// ReadSales parses a monthly sales workbook.
func ReadSales(r io.Reader) ([]market.SaleEntry, error) {
	s, err := readFirstSheet(r)
	if err != nil {
		return nil, err
	}

	entries := make([]market.SaleEntry, 0, len(s.rows))
	for _, row := range s.rows {
		var e market.SaleEntry
		if e.Date, err = s.dateCell(row, headerEmissionDate); err != nil {
			return nil, err
		}
		if e.ClientCode, err = s.intCell(row, headerClientCode); err != nil {
			return nil, err
		}
		if e.SKU, err = s.cell(row, headerSKU); err != nil {
			return nil, err
		}
		if e.Tons, err = s.floatCell(row, headerTons); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ReadRawMaterials parses a monthly raw-materials workbook.
func ReadRawMaterials(r io.Reader) ([]market.RawMaterialEntry, error) {
	s, err := readFirstSheet(r)
	if err != nil {
		return nil, err
	}

	entries := make([]market.RawMaterialEntry, 0, len(s.rows))
	for _, row := range s.rows {
		var e market.RawMaterialEntry
		if e.Date, err = s.dateCell(row, headerDate); err != nil {
			return nil, err
		}
		if e.USDLecithin, err = s.floatCell(row, "Total USD Lecitina"); err != nil {
			return nil, err
		}
		if e.PoundsLecithin, err = s.floatCell(row, "Libras Neto Lecitina"); err != nil {
			return nil, err
		}
		if e.USDSoy, err = s.floatCell(row, "Total USD Soya"); err != nil {
			return nil, err
		}
		if e.PoundsSoy, err = s.floatCell(row, "Libras Neto Soya"); err != nil {
			return nil, err
		}
		if e.USDWheat, err = s.floatCell(row, "Total USD Trigo"); err != nil {
			return nil, err
		}
		if e.PoundsWheat, err = s.floatCell(row, "Libras Neto Trigo"); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ReadShrimpPrices parses a monthly shrimp price-list workbook.
func ReadShrimpPrices(r io.Reader) ([]market.PriceEntry, error) {
	s, err := readFirstSheet(r)
	if err != nil {
		return nil, err
	}

	entries := make([]market.PriceEntry, 0, len(s.rows))
	for _, row := range s.rows {
		var e market.PriceEntry
		if e.Date, err = s.dateCell(row, headerDate); err != nil {
			return nil, err
		}
		for i, bracket := range market.ShrimpPriceBrackets {
			if e.Prices[i], err = s.floatCell(row, bracket); err != nil {
				return nil, err
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ReadShareOfWallet parses a monthly share-of-wallet workbook.
func ReadShareOfWallet(r io.Reader) ([]market.ShareOfWalletRecord, error) {
	s, err := readFirstSheet(r)
	if err != nil {
		return nil, err
	}

	entries := make([]market.ShareOfWalletRecord, 0, len(s.rows))
	for _, row := range s.rows {
		var e market.ShareOfWalletRecord
		if e.Period, err = s.dateCell(row, headerEmissionDate); err != nil {
			return nil, err
		}
		if e.ClientCode, err = s.intCell(row, headerClientCode); err != nil {
			return nil, err
		}
		if e.PotentialGroup, err = s.floatCell(row, "POTENCIAL_GRUPO"); err != nil {
			return nil, err
		}
		if e.NicovitaShare, err = s.floatCell(row, "NICOVITA"); err != nil {
			return nil, err
		}
		if e.MaxAchievableShare, err = s.floatCell(row, "SOW_MAX_ALCANZABLE"); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ReadExports parses a monthly exports workbook.
func ReadExports(r io.Reader) ([]market.ExportEntry, error) {
	s, err := readFirstSheet(r)
	if err != nil {
		return nil, err
	}

	entries := make([]market.ExportEntry, 0, len(s.rows))
	for _, row := range s.rows {
		var e market.ExportEntry
		if e.Date, err = s.dateCell(row, headerDate); err != nil {
			return nil, err
		}
		if e.TotalPounds, err = s.floatCell(row, "Total LB"); err != nil {
			return nil, err
		}
		if e.TotalFOB, err = s.floatCell(row, "Total FOB"); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
