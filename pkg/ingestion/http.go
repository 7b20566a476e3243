package ingestion

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/planscore/pkg/common/logger"
)

const multipartMemory = 8 << 20

type HTTPHandler struct {
	service *Service
	maxBody int64
}

func NewHTTPHandler(service *Service, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/plans/import", h.handleImport).Methods(http.MethodPost)
	router.HandleFunc("/plans/import/{id}", h.handleStatus).Methods(http.MethodGet)
}

// handleImport takes a multipart form with a "patients" file and an optional
// "dvh" file. The "source" field defaults to "upload".
func (h *HTTPHandler) handleImport(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		logger.Log.WithError(err).Warn("invalid import payload")
		http.Error(w, "invalid multipart body", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	req := ImportRequest{Source: r.FormValue("source")}
	if req.Source == "" {
		req.Source = SourceUpload
	}

	patients, err := formFile(r, "patients")
	if err != nil {
		http.Error(w, "patients file required", http.StatusBadRequest)
		return
	}
	defer patients.Close()
	req.Patients = patients

	dvh, err := formFile(r, "dvh")
	switch {
	case err == nil:
		defer dvh.Close()
		req.DVH = dvh
	case !errors.Is(err, http.ErrMissingFile):
		http.Error(w, "unreadable dvh file", http.StatusBadRequest)
		return
	}

	resp, err := h.service.Import(r.Context(), req)
	if err != nil {
		if IsValidationError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Log.WithError(err).Error("failed to import plans")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

func formFile(r *http.Request, field string) (multipart.File, error) {
	f, _, err := r.FormFile(field)
	return f, err
}

func (h *HTTPHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rec, err := h.service.Status(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "import not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to fetch import status")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}
