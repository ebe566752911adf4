// Package csvimport turns untrusted CSV exports into validated transaction
// drafts and applies them to the ledger in one batch.
package csvimport

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"fintrack/internal/core"
)

// Recognised header names. Lookup ignores case and column order.
const (
	ColDate        = "date"
	ColAccount     = "account"
	ColType        = "type"
	ColCategory    = "category"
	ColDescription = "description"
	ColAmount      = "amount"
)

// RowError describes a rejected row. Row is the physical line number; the
// header is line 1.
type RowError struct {
	Row    int    `json:"row"`
	Field  string `json:"field,omitempty"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("Row %d: %s", e.Row, e.Reason)
	}
	return fmt.Sprintf("Row %d: Invalid %s %q: %s", e.Row, e.Field, e.Value, e.Reason)
}

// NoValidRowsError fails an import in which every row was rejected.
type NoValidRowsError struct {
	Errors []RowError
}

func (e *NoValidRowsError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, re := range e.Errors {
		msgs[i] = re.Error()
	}
	if len(msgs) == 0 {
		return "no data rows to import"
	}
	return "no valid rows to import: " + strings.Join(msgs, "; ")
}

func (e *NoValidRowsError) Is(target error) bool { return target == core.ErrValidation }

// Result holds the accepted drafts next to the rejected rows.
type Result struct {
	Drafts []core.Draft `json:"drafts"`
	Rows   []int        `json:"rows"` // line number of each draft
	Errors []RowError   `json:"errors"`
}

// maxLineBytes bounds a single physical line.
const maxLineBytes = 1 << 20

// Parse reads a CSV document one physical line at a time, so an unbalanced
// quote spoils only its own row. Bad rows are collected in Result.Errors and
// never stop the parse; a missing header or amount column does. Rows without a
// date are dated today. When no row is valid the error is a *NoValidRowsError.
func Parse(r io.Reader, accounts []core.Account, today time.Time) (Result, error) {
	var res Result
	if len(accounts) == 0 {
		return res, core.Invalid("account", "create an account before importing")
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var cols map[string]int
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSuffix(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		record, err := splitLine(text)

		if cols == nil {
			if err != nil {
				return res, core.Invalid("csv", fmt.Sprintf("header: %v", err))
			}
			cols = columns(record)
			if _, ok := cols[ColAmount]; !ok {
				return res, core.Invalid("csv", "missing amount column")
			}
			continue
		}

		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: line, Reason: err.Error()})
			continue
		}
		if blank(record) {
			continue
		}
		d, rerr := parseRow(cols, record, accounts, today)
		if rerr != nil {
			rerr.Row = line
			res.Errors = append(res.Errors, *rerr)
			continue
		}
		res.Drafts = append(res.Drafts, d)
		res.Rows = append(res.Rows, line)
	}
	if err := sc.Err(); err != nil {
		return res, core.Invalid("csv", fmt.Sprintf("read: %v", err))
	}
	if cols == nil {
		return res, core.Invalid("csv", "missing header row")
	}

	if len(res.Drafts) == 0 {
		return res, &NoValidRowsError{Errors: res.Errors}
	}
	return res, nil
}

// splitLine parses one line as a CSV record. Quoted fields may hold commas
// but not line breaks.
func splitLine(text string) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	record, err := cr.Read()
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return nil, perr.Err
	}
	return record, err
}

func columns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	return cols
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseRow(cols map[string]int, record []string, accounts []core.Account, today time.Time) (core.Draft, *RowError) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	rawAmount := get(ColAmount)
	amount, err := core.ParseAmount(rawAmount)
	if err != nil {
		return core.Draft{}, &RowError{Field: ColAmount, Value: rawAmount, Reason: "must be a positive number"}
	}

	date := core.DateOf(today)
	if raw := get(ColDate); raw != "" {
		date, err = core.ParseDate(raw)
		if err != nil {
			return core.Draft{}, &RowError{Field: ColDate, Value: raw, Reason: "not a valid calendar date"}
		}
	}

	acc := ResolveAccount(accounts, get(ColAccount))

	category := get(ColCategory)
	if category == "" {
		category = core.OtherCategory
	}

	d := core.Draft{
		AccountID:   acc.ID,
		Kind:        core.ParseTransactionKind(get(ColType)),
		Amount:      amount,
		Category:    category,
		Description: get(ColDescription),
		Date:        date,
	}
	if err := d.Validate(); err != nil {
		var ve *core.ValidationError
		if errors.As(err, &ve) {
			return core.Draft{}, &RowError{Field: ve.Field, Reason: ve.Reason}
		}
		return core.Draft{}, &RowError{Reason: err.Error()}
	}
	return d, nil
}

// ResolveAccount picks the account a row refers to: an exact name match
// ignoring case, then the first name containing the text ignoring case, then
// the first account. accounts must not be empty.
func ResolveAccount(accounts []core.Account, name string) core.Account {
	name = strings.ToLower(strings.TrimSpace(name))
	if name != "" {
		for _, a := range accounts {
			if strings.ToLower(a.Name) == name {
				return a
			}
		}
		for _, a := range accounts {
			if strings.Contains(strings.ToLower(a.Name), name) {
				return a
			}
		}
	}
	return accounts[0]
}
