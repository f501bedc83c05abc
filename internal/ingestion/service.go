package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rpattn/billingapi/internal/auth"
	"github.com/rpattn/billingapi/internal/schema"
)

// Target creates records of one entity type.
type Target interface {
	Descriptor() *schema.Descriptor
	Create(ctx context.Context, entity any) (uuid.UUID, error)
}

// Request describes an uploaded file.
type Request struct {
	FileName       string
	HeaderRowIndex *int
	DryRun         bool
	Data           io.Reader
}

// RowError reports why one data row was not imported.
type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Summary returns ingestion level metrics.
type Summary struct {
	TotalRows      int         `json:"totalRows"`
	ValidRows      int         `json:"validRows"`
	InvalidRows    int         `json:"invalidRows"`
	CreatedIDs     []uuid.UUID `json:"createdIds"`
	IgnoredColumns []string    `json:"ignoredColumns"`
	Errors         []RowError  `json:"errors"`
	DryRun         bool        `json:"dryRun"`
}

// Service imports tabular files through the regular create path.
type Service struct {
	logger *zap.Logger
}

func NewService(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger}
}

// Import reads the uploaded file and creates one record per data row. The
// header row names fields; columns that are unknown, relations, or stamped
// by the server are ignored. Rows with uncoercible cells are reported and
// skipped. With DryRun set nothing is created.
func (s *Service) Import(ctx context.Context, target Target, req Request) (Summary, error) {
	summary := Summary{
		CreatedIDs:     []uuid.UUID{},
		IgnoredColumns: []string{},
		Errors:         []RowError{},
		DryRun:         req.DryRun,
	}
	desc := target.Descriptor()

	if _, err := auth.Authorize(ctx, desc.Name(), auth.ActionCreate); err != nil {
		return summary, err
	}
	if req.Data == nil {
		return summary, errors.New("data reader is required")
	}

	payload, err := io.ReadAll(req.Data)
	if err != nil {
		return summary, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(payload) == 0 {
		return summary, errors.New("file is empty")
	}

	table, err := parseTable(req.FileName, payload, req.HeaderRowIndex)
	if err != nil {
		return summary, err
	}

	columns := make([]*schema.Field, len(table.headers))
	for i, header := range table.headers {
		f, ok := desc.Field(header)
		if !ok || !f.IsScalar() || f.Role != schema.RoleNone || !f.Mutable {
			if header != "" {
				summary.IgnoredColumns = append(summary.IgnoredColumns, header)
			}
			continue
		}
		columns[i] = f
	}
	summary.TotalRows = len(table.rows)

	for rowIdx, row := range table.rows {
		rowNumber := table.rowNumbers[rowIdx]
		entity := desc.NewEntity()

		if rowErr := fillRow(entity, columns, row); rowErr != nil {
			rowErr.Row = rowNumber
			summary.Errors = append(summary.Errors, *rowErr)
			summary.InvalidRows++
			continue
		}

		if req.DryRun {
			summary.ValidRows++
			continue
		}

		id, err := target.Create(ctx, entity)
		if err != nil {
			s.logger.Warn("import row failed",
				zap.String("entity", desc.Name()), zap.Int("row", rowNumber), zap.Error(err))
			summary.Errors = append(summary.Errors, RowError{Row: rowNumber, Message: fmt.Sprintf("failed to create record: %v", err)})
			summary.InvalidRows++
			continue
		}
		summary.CreatedIDs = append(summary.CreatedIDs, id)
		summary.ValidRows++
	}

	s.logger.Info("import completed",
		zap.String("entity", desc.Name()),
		zap.Int("total", summary.TotalRows),
		zap.Int("valid", summary.ValidRows),
		zap.Int("invalid", summary.InvalidRows),
		zap.Bool("dryRun", req.DryRun))
	return summary, nil
}

func fillRow(entity any, columns []*schema.Field, row []string) *RowError {
	for colIdx, f := range columns {
		if f == nil {
			continue
		}
		raw := strings.TrimSpace(row[colIdx])
		if raw == "" {
			continue
		}
		v, err := schema.CoerceField(f, raw)
		if err != nil {
			return &RowError{Field: f.Name, Message: err.Error()}
		}
		if err := f.Assign(entity, v); err != nil {
			return &RowError{Field: f.Name, Message: err.Error()}
		}
	}
	return nil
}
