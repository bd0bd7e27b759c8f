package audit

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"stillwater/internal/models"
)

// ExportStore reads trail entries for a time window.
type ExportStore interface {
	AuditEntries(ctx context.Context, from, to time.Time) ([]models.AuditEntry, error)
}

// Exporter renders the audit trail as an XLSX workbook.
type Exporter struct {
	store ExportStore
}

func NewExporter(store ExportStore) *Exporter {
	return &Exporter{store: store}
}

var exportColumns = []string{
	"ID", "Action", "User", "Entity", "Type", "IP", "User Agent", "Details", "Created At",
}

// WriteXLSX writes all entries in [from, to) to w as a single-sheet
// workbook with a bold header row.
func (e *Exporter) WriteXLSX(ctx context.Context, from, to time.Time, w io.Writer) error {
	entries, err := e.store.AuditEntries(ctx, from, to)
	if err != nil {
		return fmt.Errorf("load audit entries: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Audit"
	f.SetSheetName("Sheet1", sheet)

	for i, col := range exportColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		start, _ := excelize.CoordinatesToCellName(1, 1)
		end, _ := excelize.CoordinatesToCellName(len(exportColumns), 1)
		_ = f.SetCellStyle(sheet, start, end, style)
	}

	for i, entry := range entries {
		user := ""
		if entry.UserID != nil {
			user = *entry.UserID
		}
		row := []interface{}{
			entry.ID, entry.Action, user, entry.EntityID, entry.EntityType,
			entry.IPAddress, entry.UserAgent, string(entry.Details),
			entry.CreatedAt.Format(time.RFC3339),
		}
		for j, val := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ExportFilename names a monthly export, e.g. "audit_2026-08.xlsx".
func ExportFilename(t time.Time) string {
	return fmt.Sprintf("audit_%s.xlsx", t.Format("2006-01"))
}
