package ars

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/sig-0/bnarates/storage/types"
)

// DefaultLabel is the currency label of the USD row
const DefaultLabel = "Dolar U.S.A"

// pageDateLayout is the D/M/YYYY layout of the page dates
const pageDateLayout = "2/1/2006"

var (
	ErrNoDate   = errors.New("date marker not found")
	ErrNoRate   = errors.New("sell rate not found")
	ErrNotFound = errors.New("no row for the requested date")
)

var fechaRe = regexp.MustCompile(`Fecha:\s*(\d{1,2}/\d{1,2}/\d{4})`)

// ExtractCurrent extracts the date and sell rate from the current value page.
// The first row with at least 3 cells holding the label wins,
// its third cell being the sell rate
func ExtractCurrent(doc Document, label string) (*types.RateRecord, error) {
	date, err := extractPageDate(doc)
	if err != nil {
		return nil, err
	}

	for _, table := range doc.Tables() {
		for _, cells := range table {
			if len(cells) < 3 || !slices.Contains(cells, label) {
				continue
			}

			rate, ok := ParseRate(cells[2])
			if !ok {
				return nil, fmt.Errorf("%w: unparsable sell cell %q", ErrNoRate, cells[2])
			}

			return &types.RateRecord{
				Date:     types.FormatDate(date),
				RateSell: rate,
				Source:   types.SourceCurrent,
			}, nil
		}
	}

	return nil, fmt.Errorf("%w: no %q row", ErrNoRate, label)
}

// extractPageDate finds the first "Fecha: D/M/YYYY" text node
func extractPageDate(doc Document) (time.Time, error) {
	for _, text := range doc.Texts() {
		match := fechaRe.FindStringSubmatch(text)
		if match == nil {
			continue
		}

		date, err := time.Parse(pageDateLayout, match[1])
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: invalid date %q", ErrNoDate, match[1])
		}

		return date, nil
	}

	return time.Time{}, ErrNoDate
}

// ExtractHistorical extracts the sell rate for the target date from the historical page.
// A row qualifies with at least 4 cells, the label among them and the target date
// contained in the fourth cell. Candidates whose sell cell does not parse are skipped
func ExtractHistorical(doc Document, label string, target time.Time, query string) (float64, error) {
	forms := dateForms(target, query)

	for _, table := range doc.Tables() {
		for _, cells := range table {
			if len(cells) < 4 || !slices.Contains(cells, label) {
				continue
			}

			if !containsAny(cells[3], forms) {
				continue
			}

			if rate, ok := ParseRate(cells[2]); ok {
				return rate, nil
			}
		}
	}

	return 0, fmt.Errorf("%w: %s", ErrNotFound, types.FormatDate(target))
}

// dateForms returns the renderings of the date the historical page is known to use
func dateForms(date time.Time, query string) []string {
	var (
		d = date.Day()
		m = int(date.Month())
		y = date.Year()
	)

	forms := []string{
		fmt.Sprintf("%02d/%02d/%d", d, m, y),
		fmt.Sprintf("%d/%d/%d", d, m, y),
		fmt.Sprintf("%02d/%d/%d", d, m, y),
		fmt.Sprintf("%d/%02d/%d", d, m, y),
		types.FormatDate(date),
	}

	if query != "" {
		forms = append(forms, query)
	}

	return forms
}

// containsAny matches by substring, so a form can also match
// inside a longer cell
func containsAny(cell string, forms []string) bool {
	for _, form := range forms {
		if strings.Contains(cell, form) {
			return true
		}
	}

	return false
}
