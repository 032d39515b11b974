package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/wingservice/privateschool/pkg/form"
	"github.com/wingservice/privateschool/pkg/registry"
)

type handler struct {
	cfg    Config
	store  *Store
	logger *slog.Logger
}

// NewHandler assembles the registry HTTP surface with its middleware chain.
func NewHandler(cfg Config, store *Store, logger *slog.Logger) http.Handler {
	h := &handler{cfg: cfg, store: store, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("GET /readyz", h.handleReady)
	mux.Handle("POST /v1/registrations", Auth(cfg, http.HandlerFunc(h.handleSubmit)))

	var root http.Handler = mux
	root = CORS(cfg, root)
	root = Recover(logger, root)
	root = AccessLog(logger, root)
	root = RequestID(root)
	return root
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Error("readiness check failed", "error", err)
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}

func (h *handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)

	var rec form.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, registry.ApiResponse{
			Message: "Request body is not a valid registration.",
		})
		return
	}
	// Re-derive the level invariant server-side; clients are not trusted to.
	rec = form.Merge(rec, nil)

	if errs := validateRecord(rec); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, registry.ApiResponse{
			Message: "Some details are missing or invalid.",
			Errors:  errs,
		})
		return
	}

	exists, err := h.store.SchoolCodeExists(r.Context(), rec.SchoolCode)
	if err != nil {
		h.logger.Error("school code lookup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, registry.ApiResponse{
			Message: "Failed to store the registration.",
		})
		return
	}
	if exists {
		writeJSON(w, http.StatusConflict, registry.ApiResponse{
			Message: "A school with this code is already registered.",
			Errors: map[string]string{
				form.KeySchoolCode: "a school with this code is already registered",
			},
		})
		return
	}

	id := uuid.NewString()
	if err := h.store.InsertRegistration(r.Context(), id, rec); err != nil {
		h.logger.Error("insert registration failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, registry.ApiResponse{
			Message: "Failed to store the registration.",
		})
		return
	}

	h.logger.Info("registration stored", "row_id", id, "district", rec.District)
	writeJSON(w, http.StatusOK, registry.ApiResponse{
		Success: true,
		Message: "Registration submitted successfully.",
		RowID:   id,
	})
}

// validateRecord returns per-field messages keyed by the wire field name.
func validateRecord(rec form.Record) map[string]string {
	errs := make(map[string]string)

	for _, f := range form.FieldOrder {
		if strings.TrimSpace(rec.Get(f.Key)) == "" {
			errs[f.Key] = f.Label + " is required"
		}
	}
	if rec.Level != "" && rec.Level != form.LevelPrimary && rec.Level != form.LevelUpperPrimary {
		errs[form.KeyLevel] = "school level must be \"" + form.LevelPrimary + "\" or \"" + form.LevelUpperPrimary + "\""
	}
	if rec.Email != "" && !strings.Contains(rec.Email, "@") {
		errs[form.KeyEmail] = "email address looks invalid"
	}
	if rec.Phone != "" && countDigits(rec.Phone) < 10 {
		errs[form.KeyPhone] = "phone number looks invalid"
	}

	for _, f := range form.AttachmentOrder {
		if f.Key == form.KeyCertUpperPrimary && rec.Level != form.LevelUpperPrimary {
			continue
		}
		value := rec.Get(f.Key)
		if value == "" {
			errs[f.Key] = f.Label + " is required"
			continue
		}
		if _, _, err := form.ParseDataURI(value); err != nil {
			errs[f.Key] = f.Label + " is not a valid attachment"
		}
	}
	return errs
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
