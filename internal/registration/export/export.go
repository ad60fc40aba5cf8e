// Package export renders registrations as an XLSX workbook.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"escuela/internal/platform/metrics"
	"escuela/internal/registration/models"
	dErrors "escuela/pkg/domain-errors"
)

const (
	// ContentType is the media type of the generated workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	SheetName = "Inscripciones"

	timestampLayout = "02/01/2006, 15:04:05"
)

type column struct {
	header string
	width  float64
}

var columns = []column{
	{"No.", 5},
	{"Nombre", 35},
	{"Cedula", 15},
	{"Telefono", 15},
	{"Ciudad", 20},
	{"Departamento", 20},
	{"Profesion", 25},
	{"Nombre Emprendimiento", 30},
	{"Redes Sociales", 35},
	{"Retos del Emprendimiento", 50},
	{"Fecha Registro", 20},
}

// Headers returns the header row in column order.
func Headers() []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.header
	}
	return out
}

// Exporter builds spreadsheets of registrations.
type Exporter struct {
	location *time.Location
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Exporter)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Exporter) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Exporter) {
		e.metrics = m
	}
}

// New constructs an Exporter that renders timestamps in loc. A nil loc
// means UTC.
func New(loc *time.Location, opts ...Option) *Exporter {
	if loc == nil {
		loc = time.UTC
	}
	e := &Exporter{location: loc, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Write serializes regs in the given order: one header row, then one row per
// record with a 1-based sequence number in the first column. On failure no
// bytes are returned.
func (e *Exporter) Write(ctx context.Context, regs []*models.Registration) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			e.logger.WarnContext(ctx, "failed to close workbook", "error", err)
		}
	}()

	if err := e.fill(f, regs); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeExport, "failed to build workbook")
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeExport, "failed to serialize workbook")
	}

	if e.metrics != nil {
		e.metrics.ObserveExport(start)
	}
	return buf.Bytes(), nil
}

func (e *Exporter) fill(f *excelize.File, regs []*models.Registration) error {
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for i, c := range columns {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, name, name, c.width); err != nil {
			return fmt.Errorf("set width of column %s: %w", name, err)
		}
	}

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c.header
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, r := range regs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			i + 1,
			r.FullName,
			r.IDNumber,
			r.Phone,
			r.City,
			r.Department,
			r.Profession,
			r.VentureName,
			r.SocialMedia,
			r.VentureChallenges,
			r.RegisteredAt.In(e.location).Format(timestampLayout),
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	return nil
}

// FileName derives the attachment name for a department export.
func FileName(department string) string {
	if department == models.AllDepartments {
		return "inscripciones_todos.xlsx"
	}
	return "inscripciones_" + strings.Join(strings.Fields(department), "_") + ".xlsx"
}
