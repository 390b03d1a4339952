package api

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/apex/log"
)

// ExportHandler produces the structured session snapshot: current stats plus
// monitoring configuration, timestamped.
func (app *App) ExportHandler(w http.ResponseWriter, r *http.Request) {
	session := app.Pipeline.Tracker().Session()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"exported_at": time.Now().Format(time.RFC3339),
		"session":     session,
		"monitor":     app.Monitor.Status(),
	})
}

// ExportCSVHandler produces the flat delimited snapshot: one header row and
// one data row.
func (app *App) ExportCSVHandler(w http.ResponseWriter, r *http.Request) {
	session := app.Pipeline.Tracker().Session()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="maskwatch-session.csv"`)

	writer := csv.NewWriter(w)
	records := [][]string{
		{"timestamp", "with_mask", "without_mask", "mask_weared_incorrect", "capture_count"},
		{
			time.Now().Format(time.RFC3339),
			strconv.Itoa(session.WithMask),
			strconv.Itoa(session.WithoutMask),
			strconv.Itoa(session.IncorrectMask),
			strconv.Itoa(session.Captures),
		},
	}
	if err := writer.WriteAll(records); err != nil {
		log.WithError(err).Error("failed to write csv export")
	}
}
