package api

import (
	"fmt"
	"net/http"
	"time"

	"fonteyn/internal/models"

	"github.com/xuri/excelize/v2"
)

const exportSheetName = "Bookings"

// defaultExportWindow ограничивает выгрузку без явного периода
const defaultExportWindow = 30 * 24 * time.Hour

// handleExport streams an Excel workbook of bookings whose stay intersects
// the requested window. Admin only.
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request, userID int64) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	user, err := s.auth.UserByID(ctx, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage_failure")
		return
	}
	if !s.isAdmin(user.Username) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	start, end, err := exportWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date_range")
		return
	}

	bookings, err := s.bookings.BookingsForExport(ctx, start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage_failure")
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheetName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage_failure")
		return
	}
	f.SetActiveSheet(index)

	headers := []string{"ID", "User ID", "Room", "Check-in", "Check-out", "Total cost", "Created"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(exportSheetName, cell, header)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	_ = f.SetCellStyle(exportSheetName, "A1", lastHeader, headerStyle)

	for i, booking := range bookings {
		row := i + 2
		_ = f.SetCellValue(exportSheetName, fmt.Sprintf("A%d", row), booking.ID)
		_ = f.SetCellValue(exportSheetName, fmt.Sprintf("B%d", row), booking.UserID)
		_ = f.SetCellValue(exportSheetName, fmt.Sprintf("C%d", row), booking.RoomName)
		_ = f.SetCellValue(exportSheetName, fmt.Sprintf("D%d", row), booking.StartDate.Format(models.DateLayout))
		_ = f.SetCellValue(exportSheetName, fmt.Sprintf("E%d", row), booking.EndDate.Format(models.DateLayout))
		_ = f.SetCellValue(exportSheetName, fmt.Sprintf("F%d", row), booking.TotalCost)
		_ = f.SetCellValue(exportSheetName, fmt.Sprintf("G%d", row), booking.CreatedAt.Format("02.01.2006 15:04"))
	}

	_ = f.SetColWidth(exportSheetName, "A", "B", 10)
	_ = f.SetColWidth(exportSheetName, "C", "C", 25)
	_ = f.SetColWidth(exportSheetName, "D", "E", 14)
	_ = f.SetColWidth(exportSheetName, "F", "F", 12)
	_ = f.SetColWidth(exportSheetName, "G", "G", 20)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("bookings_%s_to_%s.xlsx",
		start.Format(models.DateLayout), end.Format(models.DateLayout))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))

	if err := f.Write(w); err != nil {
		s.logger.Error().Err(err).Msg("export write failed")
		return
	}
	s.logger.Info().Str("file", fileName).Int("bookings", len(bookings)).Msg("export generated")
}

func (s *HTTPServer) isAdmin(username string) bool {
	for _, admin := range s.cfg.Admins {
		if admin == username {
			return true
		}
	}
	return false
}

func exportWindow(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	now := time.Now()

	start := now.Add(-defaultExportWindow)
	end := now
	var err error

	if v := q.Get("start_date"); v != "" {
		if start, err = time.Parse(models.DateLayout, v); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if v := q.Get("end_date"); v != "" {
		if end, err = time.Parse(models.DateLayout, v); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end before start")
	}
	return start, end, nil
}
