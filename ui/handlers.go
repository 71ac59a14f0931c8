package ui

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"shrimp/adapters/excel"
	"shrimp/domain/market"
	"shrimp/internal/errors"
)

// maxUploadBytes bounds workbook uploads.
const maxUploadBytes = 32 << 20

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePredict runs (or replays) the four-week forecast for ?date=.
func (a *App) handlePredict(w http.ResponseWriter, r *http.Request) {
	target, err := parseDateParam(r, "date")
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := a.prediction.Run(r.Context(), target)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleExport returns the forecast as an Excel workbook.
func (a *App) handleExport(w http.ResponseWriter, r *http.Request) {
	target, err := parseDateParam(r, "date")
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := a.prediction.Run(r.Context(), target)
	if err != nil {
		writeError(w, err)
		return
	}

	report, err := excel.WriteReport(result.Weeks)
	if err != nil {
		writeError(w, err)
		return
	}

	filename := fmt.Sprintf("reporte_prediccion_%s.xlsx", target.Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(report); err != nil {
		log.Printf("[ui] export write failed: %v", err)
	}
}

// handleBounds returns the valid target-date range for predictions.
func (a *App) handleBounds(w http.ResponseWriter, r *http.Request) {
	min, max, err := a.prediction.DateBounds(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"min": min.Format("2006-01-02"),
		"max": max.Format("2006-01-02"),
	})
}

// handleHistory serves the month-over-month sales comparison.
func (a *App) handleHistory(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		writeError(w, errors.InvalidInput("year must be an integer"))
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, errors.InvalidInput("month must be an integer"))
		return
	}

	filter := market.HistoricFilter{
		Year:   year,
		Month:  time.Month(month),
		Stage:  r.URL.Query().Get("stage"),
		Client: r.URL.Query().Get("client"),
	}
	result, err := a.history.Get(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleClients lists the training snapshot's clients in slot order.
func (a *App) handleClients(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.prediction.Clients())
}

// handleUpload ingests one monthly workbook for {source}.
func (a *App) handleUpload(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, errors.InvalidInput("expected multipart form with a file field"))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, errors.InvalidInput("missing file field"))
		return
	}
	defer file.Close()

	result, err := a.upload.Ingest(r.Context(), source, file)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func parseDateParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, errors.InvalidInput(fmt.Sprintf("missing %s parameter", name))
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, errors.InvalidInput(fmt.Sprintf("%s must be YYYY-MM-DD", name))
	}
	return t, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[ui] response encode failed: %v", err)
	}
}

// errorBody is the wire shape of every error response.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		log.Printf("[ui] %s: %v", code, err)
	}
	writeJSON(w, status, errorBody{Code: code, Message: err.Error()})
}

func statusFor(code string) int {
	switch code {
	case errors.CodeInvalidInput:
		return http.StatusBadRequest
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeUploadConflict:
		return http.StatusConflict
	case errors.CodeInsufficientHistory:
		return http.StatusUnprocessableEntity
	case errors.CodeSourceUnavailable:
		return http.StatusServiceUnavailable
	case errors.CodeInferenceError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
