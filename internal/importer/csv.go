// Package importer parses CSV bank statements into ledger transactions.
package importer

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caioniehues/obsidian-money-manager/internal/model"
	"github.com/shopspring/decimal"
)

// dateLayouts are tried in order when parsing the date column.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
}

// Result summarizes a CSV import.
type Result struct {
	Transactions []model.Transaction
	Skipped      int
}

// CSVReader parses header-driven CSV statements. Recognized columns:
// id, date, description, amount, category, type, status. Date,
// description, and amount are required; the rest are optional.
type CSVReader struct{}

// NewCSVReader creates a CSV statement reader.
func NewCSVReader() *CSVReader {
	return &CSVReader{}
}

// Parse reads the full CSV stream. Malformed rows are skipped with a
// warning rather than aborting the batch; the skip count is reported in
// the result.
func (r *CSVReader) Parse(_ context.Context, reader io.Reader) (*Result, error) {
	cr := csv.NewReader(reader)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"date", "description", "amount"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("CSV header missing required column %q", required)
		}
	}

	result := &Result{}
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			slog.Warn("skipping malformed CSV row", "line", line, "error", err)
			result.Skipped++
			continue
		}

		txn, err := r.parseRecord(record, columns, line)
		if err != nil {
			slog.Warn("skipping unparsable CSV row", "line", line, "error", err)
			result.Skipped++
			continue
		}
		result.Transactions = append(result.Transactions, txn)
	}

	return result, nil
}

func (r *CSVReader) parseRecord(record []string, columns map[string]int, line int) (model.Transaction, error) {
	field := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	date, err := parseDate(field("date"))
	if err != nil {
		return model.Transaction{}, err
	}

	// Statement amounts are exact decimals; parse them as such and
	// convert to float64 once, at the model boundary.
	amount, err := decimal.NewFromString(field("amount"))
	if err != nil {
		return model.Transaction{}, fmt.Errorf("invalid amount %q: %w", field("amount"), err)
	}

	txnType := model.TypeExpense
	if amount.IsPositive() {
		txnType = model.TypeIncome
	}
	switch strings.ToLower(field("type")) {
	case "income":
		txnType = model.TypeIncome
	case "expense":
		txnType = model.TypeExpense
	}

	status := model.StatusPaid
	if strings.ToLower(field("status")) == "pending" {
		status = model.StatusPending
	}

	description := field("description")
	if description == "" {
		return model.Transaction{}, fmt.Errorf("empty description")
	}

	magnitude, _ := amount.Abs().Float64()
	if magnitude == 0 {
		return model.Transaction{}, fmt.Errorf("zero amount")
	}

	id := field("id")
	if id == "" {
		id = generateID(date, amount, description, line)
	}

	txn := model.Transaction{
		ID:          id,
		Date:        date,
		Description: description,
		Amount:      magnitude,
		Category:    field("category"),
		Type:        txnType,
		Status:      status,
	}
	if err := txn.Validate(); err != nil {
		return model.Transaction{}, err
	}

	return txn, nil
}

func parseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if date, err := time.Parse(layout, value); err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

// generateID derives a stable transaction ID for rows without one. The
// line number keeps legitimate same-day duplicates distinct.
func generateID(date time.Time, amount decimal.Decimal, description string, line int) string {
	data := fmt.Sprintf("%s:%s:%s:%d", date.Format("2006-01-02"), amount.String(), description, line)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("csv-%x", hash[:8])
}
