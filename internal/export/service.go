package export

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/rpattn/billingapi/internal/query"
	"github.com/rpattn/billingapi/internal/schema"
)

// Format selects the file encoding of an export.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

// ParseFormat accepts "csv" (the default) and "xlsx".
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, raw)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Source is a list pipeline that can be walked in windows.
type Source interface {
	Descriptor() *schema.Descriptor
	Scan(ctx context.Context, params query.ListParams, batch, limit int, fn func(query.Selection, []query.Record) error) error
}

// Service writes filtered, sorted and projected lists as files.
type Service struct {
	batchSize int
	maxRows   int
	logger    *zap.Logger
}

type Option func(*Service)

func WithBatchSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

func WithMaxRows(rows int) Option {
	return func(s *Service) {
		if rows > 0 {
			s.maxRows = rows
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(opts ...Option) *Service {
	s := &Service{
		batchSize: 500,
		maxRows:   50000,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Write runs the list pipeline of src and encodes every row into w. Nothing
// is written to w when the request is rejected.
func (s *Service) Write(ctx context.Context, src Source, params query.ListParams, format Format, w io.Writer) (int, error) {
	switch format {
	case FormatCSV:
		return s.writeCSV(ctx, src, params, w)
	case FormatXLSX:
		return s.writeXLSX(ctx, src, params, w)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func (s *Service) writeCSV(ctx context.Context, src Source, params query.ListParams, w io.Writer) (int, error) {
	buffered := bufio.NewWriterSize(w, 64<<10)
	csvWriter := csv.NewWriter(buffered)

	rowsExported := 0
	var row []string
	err := src.Scan(ctx, params, s.batchSize, s.maxRows, func(sel query.Selection, records []query.Record) error {
		if row == nil {
			row = make([]string, len(sel))
			if err := csvWriter.Write(sel); err != nil {
				return fmt.Errorf("write header: %w", err)
			}
		}
		for _, rec := range records {
			for i, path := range sel {
				row[i] = formatValue(lookup(rec, path))
			}
			if err := csvWriter.Write(row); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
			rowsExported++
		}
		csvWriter.Flush()
		if err := csvWriter.Error(); err != nil {
			return fmt.Errorf("flush rows: %w", err)
		}
		if err := buffered.Flush(); err != nil {
			return fmt.Errorf("flush buffered rows: %w", err)
		}
		return ctx.Err()
	})
	if err != nil {
		return rowsExported, err
	}

	if row == nil {
		// No rows matched; still emit the header line.
		if err := csvWriter.Write(headerFor(src.Descriptor(), params)); err != nil {
			return 0, fmt.Errorf("write header: %w", err)
		}
	}
	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return rowsExported, fmt.Errorf("final flush: %w", err)
	}
	if err := buffered.Flush(); err != nil {
		return rowsExported, fmt.Errorf("final buffered flush: %w", err)
	}
	s.logger.Info("export completed",
		zap.String("entity", src.Descriptor().Name()),
		zap.String("format", string(FormatCSV)),
		zap.Int("rows", rowsExported))
	return rowsExported, nil
}

func (s *Service) writeXLSX(ctx context.Context, src Source, params query.ListParams, w io.Writer) (int, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := src.Descriptor().Name()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return 0, fmt.Errorf("name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return 0, fmt.Errorf("open stream writer: %w", err)
	}

	rowsExported := 0
	nextRow := 1
	writeRow := func(values []any) error {
		cell, err := excelize.CoordinatesToCellName(1, nextRow)
		if err != nil {
			return err
		}
		nextRow++
		return sw.SetRow(cell, values)
	}

	headerWritten := false
	err = src.Scan(ctx, params, s.batchSize, s.maxRows, func(sel query.Selection, records []query.Record) error {
		if !headerWritten {
			if err := writeRow(headerCells(sel)); err != nil {
				return fmt.Errorf("write header: %w", err)
			}
			headerWritten = true
		}
		for _, rec := range records {
			values := make([]any, len(sel))
			for i, path := range sel {
				values[i] = cellValue(lookup(rec, path))
			}
			if err := writeRow(values); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
			rowsExported++
		}
		return ctx.Err()
	})
	if err != nil {
		return rowsExported, err
	}
	if !headerWritten {
		if err := writeRow(headerCells(headerFor(src.Descriptor(), params))); err != nil {
			return 0, fmt.Errorf("write header: %w", err)
		}
	}

	if err := sw.Flush(); err != nil {
		return rowsExported, fmt.Errorf("flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return rowsExported, fmt.Errorf("write workbook: %w", err)
	}
	s.logger.Info("export completed",
		zap.String("entity", sheet),
		zap.String("format", string(FormatXLSX)),
		zap.Int("rows", rowsExported))
	return rowsExported, nil
}

// FileName builds the download name for an export of desc.
func FileName(desc *schema.Descriptor, format Format, now time.Time) string {
	return fmt.Sprintf("%s-%s.%s", desc.Route(), now.UTC().Format("20060102-150405"), format)
}

func headerFor(desc *schema.Descriptor, params query.ListParams) []string {
	sel := query.ParseSelection(params.Fields)
	if len(sel) == 0 {
		sel = query.AllScalars(desc)
	}
	return sel
}

func headerCells(sel []string) []any {
	cells := make([]any, len(sel))
	for i, name := range sel {
		cells[i] = name
	}
	return cells
}

// lookup resolves a selection path against a projected record, descending
// one level for "Relation.Field" paths. Keys match case-insensitively.
func lookup(rec query.Record, path string) any {
	head, rest, dotted := strings.Cut(path, ".")
	v := get(rec, head)
	if !dotted {
		return v
	}
	nested, ok := v.(query.Record)
	if !ok {
		return nil
	}
	return get(nested, rest)
}

func get(rec query.Record, key string) any {
	if v, ok := rec[key]; ok {
		return v
	}
	for k, v := range rec {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return nil
}

func cellValue(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case string, bool, int64, float64:
		return v
	default:
		return formatValue(v)
	}
}

func formatValue(value any) string {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	case json.Number:
		return v.String()
	case float32, float64, int, int32, int64:
		return fmt.Sprintf("%v", v)
	case query.Record:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	default:
		return fmt.Sprintf("%v", v)
	}
}
