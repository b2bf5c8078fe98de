package reports

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"airwave/internal/domain"
	"airwave/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// ScheduleReporter renders the rental schedule as an Excel grid: one row
// per catalog entry, one column per day.
type ScheduleReporter struct {
	repo       domain.Repository
	exportPath string
	logger     *zerolog.Logger
}

func NewScheduleReporter(repo domain.Repository, exportPath string, logger *zerolog.Logger) *ScheduleReporter {
	return &ScheduleReporter{
		repo:       repo,
		exportPath: exportPath,
		logger:     logger,
	}
}

// ExportSchedule writes the schedule for [startDate, endDate] to a new
// xlsx file and returns its path.
func (r *ScheduleReporter) ExportSchedule(ctx context.Context, startDate, endDate time.Time) (string, error) {
	if err := os.MkdirAll(r.exportPath, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	dailyBookings, err := r.repo.GetDailyBookings(ctx, startDate, endDate)
	if err != nil {
		return "", fmt.Errorf("error getting bookings: %v", err)
	}

	entries, err := r.repo.GetActiveCatalog(ctx)
	if err != nil {
		return "", fmt.Errorf("error getting catalog: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Schedule"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Rental schedule: %s - %s",
		startDate.Format(models.DateLayout), endDate.Format(models.DateLayout)))

	dateCols := r.writeDateHeaders(f, sheetName, startDate, endDate)
	r.writeEntryHeaders(f, sheetName, entries)
	r.writeBookingCells(f, sheetName, dailyBookings, entries, dateCols)

	_ = f.SetColWidth(sheetName, "A", "A", 28)
	for i := 'B'; i <= 'Z'; i++ {
		_ = f.SetColWidth(sheetName, string(i), string(i), 20)
	}

	lastCol, _ := excelize.ColumnNumberToName(len(dateCols) + 1)
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("schedule_%s_to_%s.xlsx",
		startDate.Format(models.DateLayout), endDate.Format(models.DateLayout))
	filePath := filepath.Join(r.exportPath, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	r.logger.Info().Str("file_path", filePath).Msg("schedule report created")
	return filePath, nil
}

func (r *ScheduleReporter) writeDateHeaders(f *excelize.File, sheetName string, startDate, endDate time.Time) map[string]int {
	col := 2
	current := startDate
	dateCols := make(map[string]int)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for !current.After(endDate) {
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = f.SetCellValue(sheetName, cell, current.Format("01-02"))
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
		dateCols[current.Format(models.DateLayout)] = col

		col++
		current = current.AddDate(0, 0, 1)
	}
	return dateCols
}

func (r *ScheduleReporter) writeEntryHeaders(f *excelize.File, sheetName string, entries []*models.CatalogEntry) {
	style, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})

	row := 3
	for _, entry := range entries {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		label := entry.Name
		if entry.Pooled != nil {
			label = fmt.Sprintf("%s (%d walkies)", entry.Name, entry.Pooled.UnitCount)
		}
		_ = f.SetCellValue(sheetName, cell, label)
		_ = f.SetCellStyle(sheetName, cell, cell, style)
		row++
	}
}

func (r *ScheduleReporter) writeBookingCells(
	f *excelize.File, sheetName string,
	dailyBookings map[string][]*models.Booking,
	entries []*models.CatalogEntry,
	dateCols map[string]int,
) {
	for dateKey, col := range dateCols {
		byEntry := make(map[string][]*models.Booking)
		for _, booking := range dailyBookings[dateKey] {
			byEntry[booking.CatalogID] = append(byEntry[booking.CatalogID], booking)
		}

		row := 3
		for _, entry := range entries {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			entryBookings := byEntry[entry.ID]

			var cellValue string
			for _, booking := range entryBookings {
				if !models.BlocksAllocation(booking.Status) {
					continue
				}
				cellValue += fmt.Sprintf("%s [%s]", booking.CustomerName, booking.Status)
				if booking.UnitSerial != "" {
					cellValue += " #" + booking.UnitSerial
				}
				cellValue += "\n"
			}
			if cellValue == "" {
				cellValue = "free"
			}
			_ = f.SetCellValue(sheetName, cell, cellValue)

			if styleID, err := r.cellStyle(f, entryBookings); err == nil {
				_ = f.SetCellStyle(sheetName, cell, cell, styleID)
			}
			row++
		}
	}
}

// cellStyle colors a day cell: white when free, yellow when a pending
// booking holds it, green when all holders are confirmed or active.
func (r *ScheduleReporter) cellStyle(f *excelize.File, bookings []*models.Booking) (int, error) {
	base := excelize.Alignment{Horizontal: "left", Vertical: "top", WrapText: true}

	holding := 0
	hasPending := false
	for _, booking := range bookings {
		if !models.BlocksAllocation(booking.Status) {
			continue
		}
		holding++
		if booking.Status == models.StatusPending {
			hasPending = true
		}
	}

	color := "#FFFFFF"
	switch {
	case holding == 0:
	case hasPending:
		color = "#FFEB9C"
	default:
		color = "#C6EFCE"
	}

	return f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &base,
	})
}
