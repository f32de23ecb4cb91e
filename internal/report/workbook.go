package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/labia/internal/models"
)

// Sheet names of the run workbook.
const (
	SheetSummary = "Resumen"
	SheetFiles   = "Archivos"
	SheetFailed  = "Fallidos"
)

func writeWorkbook(path string, run *models.IngestionRun) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return err
	}
	for _, name := range []string{SheetFiles, SheetFailed} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %q: %w", name, err)
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	c := run.Counts
	summary := [][]interface{}{
		{"Campo", "Valor"},
		{"Ejecución", run.ID},
		{"Modo", string(run.Mode)},
		{"Colección", run.Collection},
		{"Reinicio", yesNo(run.Reset)},
		{"Entradas borradas", run.ResetCount},
		{"Cancelada", yesNo(run.Cancelled)},
		{"Inicio", run.StartedAt.Format("2006-01-02 15:04:05")},
		{"Fin", run.FinishedAt.Format("2006-01-02 15:04:05")},
		{"Archivos", c.FilesTotal},
		{"Archivos procesados", c.FilesProcessed},
		{"Archivos fallidos", c.FilesFailed},
		{"Archivos omitidos", c.FilesSkipped},
		{"Fragmentos creados", c.ChunksCreated},
		{"Fragmentos fallidos", c.ChunksFailed},
		{"Tablas procesadas", c.TablesProcessed},
	}
	if err := writeRows(f, SheetSummary, summary, bold); err != nil {
		return err
	}

	files := [][]interface{}{{"Archivo", "Código", "Estado", "Páginas", "Fragmentos", "Tablas",
		"Fragmentos fallidos", "Baja confianza", "Segundos", "Motivo", "Notas"}}
	for _, o := range run.Outcomes {
		files = append(files, []interface{}{o.File, o.DocumentCode, string(o.Status), o.Pages, o.Chunks,
			o.Tables, o.FailedChunks, yesNo(o.LowConfidence), o.Duration.Seconds(), o.Reason,
			strings.Join(o.Notes, "; ")})
	}
	if err := writeRows(f, SheetFiles, files, bold); err != nil {
		return err
	}

	failed := [][]interface{}{{"Archivo", "Motivo"}}
	for _, ff := range run.FailedFiles() {
		failed = append(failed, []interface{}{ff.File, ff.Reason})
	}
	if err := writeRows(f, SheetFailed, failed, bold); err != nil {
		return err
	}

	for _, sheet := range []string{SheetSummary, SheetFiles, SheetFailed} {
		if err := f.SetColWidth(sheet, "A", "A", 40); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

// writeRows writes rows from A1 and styles the first one as a header.
func writeRows(f *excelize.File, sheet string, rows [][]interface{}, header int) error {
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, header)
}

func yesNo(b bool) string {
	if b {
		return "Sí"
	}
	return "No"
}
