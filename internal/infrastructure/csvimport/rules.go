// Package csvimport reads categorization rules from CSV uploads.
package csvimport

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/posledger/backend/internal/domain/possync"
)

// File-level errors. Row-level problems are collected as RowErrors instead.
var (
	// ErrEmptyFile is returned when the upload contains no bytes
	ErrEmptyFile = errors.New("CSV file is empty")

	// ErrInvalidEncoding is returned when the content is not valid UTF-8
	ErrInvalidEncoding = errors.New("invalid file encoding, expected UTF-8")

	// ErrMissingHeader is returned when the header row is absent or lacks
	// the required columns
	ErrMissingHeader = errors.New("CSV file missing header row with keyword and category columns")

	// ErrNoDataRows is returned when the file has a header but no rules
	ErrNoDataRows = errors.New("CSV file contains no rule rows")
)

// Column names recognized in the header row, matched case-insensitively.
const (
	colKeyword  = "keyword"
	colCategory = "category"
	colSystem   = "system"
	colPriority = "priority"
)

// Keyword and category are stored in varchar(100) columns.
const maxFieldLength = 100

// RowError describes why a single rule row was rejected
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Error implements the error interface
func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column %q: %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// Result holds the outcome of parsing a rule file. Rules contains only the
// rows that passed validation; RowErrors explains every rejected row up to
// the configured limit.
type Result struct {
	Rules     []possync.CategoryRule
	RowErrors []RowError
	TotalRows int
}

// Valid reports whether every data row produced a rule
func (r *Result) Valid() bool {
	return len(r.RowErrors) == 0
}

type parserConfig struct {
	delimiter rune
	maxErrors int
}

// Option configures rule parsing
type Option func(*parserConfig)

// WithDelimiter sets the field delimiter, comma by default
func WithDelimiter(d rune) Option {
	return func(c *parserConfig) { c.delimiter = d }
}

// WithMaxErrors caps how many row errors are collected before parsing
// stops reporting, 100 by default
func WithMaxErrors(n int) Option {
	return func(c *parserConfig) {
		if n > 0 {
			c.maxErrors = n
		}
	}
}

// ParseRules reads categorization rules for one tenant from CSV content.
// Expected columns: keyword, category, optional system, optional priority.
// Each accepted row becomes a CategoryRule with a fresh ID. File-level
// problems return an error; per-row problems land in Result.RowErrors and
// the remaining rows are still parsed.
func ParseRules(r io.Reader, tenantID uuid.UUID, opts ...Option) (*Result, error) {
	cfg := parserConfig{delimiter: ',', maxErrors: 100}
	for _, opt := range opts {
		opt(&cfg)
	}

	buf := bufio.NewReader(r)
	if err := checkEncoding(buf); err != nil {
		return nil, err
	}

	reader := csv.NewReader(buf)
	reader.Comma = cfg.delimiter
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	columns, err := readHeader(reader)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	// keyword+system pairs seen so far, for duplicate detection within the file
	seen := make(map[string]int)
	line := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.addError(cfg.maxErrors, RowError{Row: line, Message: "malformed CSV row: " + err.Error()})
			continue
		}
		if isBlank(record) {
			continue
		}
		result.TotalRows++

		rule, rowErrs := buildRule(record, columns, tenantID, line)
		if len(rowErrs) > 0 {
			for _, re := range rowErrs {
				result.addError(cfg.maxErrors, re)
			}
			continue
		}

		key := duplicateKey(rule)
		if first, dup := seen[key]; dup {
			result.addError(cfg.maxErrors, RowError{
				Row:     line,
				Column:  colKeyword,
				Message: fmt.Sprintf("duplicate of row %d", first),
				Value:   rule.Keyword,
			})
			continue
		}
		seen[key] = line

		result.Rules = append(result.Rules, rule)
	}

	if result.TotalRows == 0 {
		return nil, ErrNoDataRows
	}
	return result, nil
}

// checkEncoding strips a UTF-8 BOM and rejects non-UTF-8 content
func checkEncoding(buf *bufio.Reader) error {
	head, err := buf.Peek(3)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if len(head) == 0 {
		return ErrEmptyFile
	}
	if len(head) >= 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
		_, _ = buf.Discard(3)
	}

	const checkSize = 4096
	content, err := buf.Peek(checkSize)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if len(content) == 0 {
		return ErrEmptyFile
	}
	if !utf8.Valid(content) {
		return ErrInvalidEncoding
	}
	return nil
}

// readHeader maps recognized column names to their positions
func readHeader(reader *csv.Reader) (map[string]int, error) {
	record, err := reader.Read()
	if err == io.EOF {
		return nil, ErrMissingHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := make(map[string]int, len(record))
	for i, name := range record {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := columns[colKeyword]; !ok {
		return nil, ErrMissingHeader
	}
	if _, ok := columns[colCategory]; !ok {
		return nil, ErrMissingHeader
	}
	return columns, nil
}

func buildRule(record []string, columns map[string]int, tenantID uuid.UUID, line int) (possync.CategoryRule, []RowError) {
	var errs []RowError

	keyword := field(record, columns, colKeyword)
	if keyword == "" {
		errs = append(errs, RowError{Row: line, Column: colKeyword, Message: "keyword is required"})
	} else if len(keyword) > maxFieldLength {
		errs = append(errs, RowError{Row: line, Column: colKeyword, Message: "keyword exceeds 100 characters", Value: keyword})
	}

	category := field(record, columns, colCategory)
	if category == "" {
		errs = append(errs, RowError{Row: line, Column: colCategory, Message: "category is required"})
	} else if len(category) > maxFieldLength {
		errs = append(errs, RowError{Row: line, Column: colCategory, Message: "category exceeds 100 characters", Value: category})
	}

	rule := possync.CategoryRule{
		ID:       uuid.New(),
		TenantID: tenantID,
		Keyword:  keyword,
		Category: category,
	}

	if raw := field(record, columns, colSystem); raw != "" {
		system := possync.POSSystem(strings.ToUpper(raw))
		if !system.IsValid() {
			errs = append(errs, RowError{Row: line, Column: colSystem, Message: "unknown POS system", Value: raw})
		} else {
			rule.System = &system
		}
	}

	if raw := field(record, columns, colPriority); raw != "" {
		priority, err := strconv.Atoi(raw)
		if err != nil || priority < 0 {
			errs = append(errs, RowError{Row: line, Column: colPriority, Message: "priority must be a non-negative integer", Value: raw})
		} else {
			rule.Priority = priority
		}
	}

	return rule, errs
}

func field(record []string, columns map[string]int, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func duplicateKey(rule possync.CategoryRule) string {
	key := strings.ToLower(rule.Keyword)
	if rule.System != nil {
		key += "|" + rule.System.String()
	}
	return key
}

func (r *Result) addError(max int, err RowError) {
	if len(r.RowErrors) < max {
		r.RowErrors = append(r.RowErrors, err)
	}
}
