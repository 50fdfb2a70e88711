// Package api - HTTP API of the visit record service
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/alwitt/goutils"
	"github.com/alwitt/karte/models"
	"github.com/alwitt/karte/service"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultRequestIDHeader request header carrying the caller's request ID
const DefaultRequestIDHeader = "Request-ID"

// ErrorResponse response of a failed call
type ErrorResponse struct {
	goutils.RestAPIBaseResponse
	// Violations violated field rules of the request
	Violations []models.FieldViolation `json:"violations,omitempty"`
}

// RecordResponse response carrying one record row
type RecordResponse struct {
	goutils.RestAPIBaseResponse
	Record models.Record `json:"record"`
}

// RecordViewResponse response carrying one record with its document
type RecordViewResponse struct {
	goutils.RestAPIBaseResponse
	Record service.RecordView `json:"record"`
}

// RecordListResponse response carrying a record listing
type RecordListResponse struct {
	goutils.RestAPIBaseResponse
	Records []service.RecordView `json:"records"`
}

// RecordHandler HTTP handler of the visit record endpoints
type RecordHandler struct {
	goutils.RestAPIHandler
	records   service.RecordService
	validator *validator.Validate
}

/*
NewRecordHandler define a new visit record HTTP handler

	@param records service.RecordService - the record service
	@param requestIDHeader string - request header carrying the request ID; empty for the default
	@param logLevel goutils.HTTPRequestLogLevel - request logging level
	@returns the handler
*/
func NewRecordHandler(
	records service.RecordService, requestIDHeader string, logLevel goutils.HTTPRequestLogLevel,
) (*RecordHandler, error) {
	if records == nil {
		return nil, fmt.Errorf("record handler requires a record service")
	}
	if requestIDHeader == "" {
		requestIDHeader = DefaultRequestIDHeader
	}
	validate, err := models.NewValidator()
	if err != nil {
		return nil, err
	}
	return &RecordHandler{
		RestAPIHandler: goutils.RestAPIHandler{
			Component: goutils.Component{
				LogTags: log.Fields{"module": "api", "component": "record-handler"},
				LogTagModifiers: []goutils.LogMetadataModifier{
					goutils.ModifyLogMetadataByRestRequestParam,
				},
			},
			CallRequestIDHeaderField: &requestIDHeader,
			DoNotLogHeaders:          map[string]bool{"Authorization": true, "Cookie": true},
			LogLevel:                 logLevel,
		},
		records:   records,
		validator: validate,
	}, nil
}

/*
NewRouter build the router of the HTTP API

	@param handler *RecordHandler - visit record handler
	@param gatherer prometheus.Gatherer - source of the metrics served at /metrics
	@returns the router
*/
func NewRouter(handler *RecordHandler, gatherer prometheus.Gatherer) *mux.Router {
	router := mux.NewRouter()

	v1 := router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/alive", handler.LoggingMiddleware(handler.Alive)).Methods(http.MethodGet)
	v1.HandleFunc("/records", handler.LoggingMiddleware(handler.CreateRecord)).
		Methods(http.MethodPost)
	v1.HandleFunc("/records", handler.LoggingMiddleware(handler.ListRecords)).
		Methods(http.MethodGet)
	v1.HandleFunc("/records/{recordID}", handler.LoggingMiddleware(handler.GetRecord)).
		Methods(http.MethodGet)
	v1.HandleFunc("/records/{recordID}", handler.LoggingMiddleware(handler.UpdateRecord)).
		Methods(http.MethodPut)
	v1.HandleFunc("/records/{recordID}", handler.LoggingMiddleware(handler.DeleteRecord)).
		Methods(http.MethodDelete)

	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return router
}

func (h *RecordHandler) writeResponse(
	ctx context.Context, w http.ResponseWriter, code int, resp interface{},
) {
	if err := h.WriteRESTResponse(w, code, resp, nil); err != nil {
		log.WithError(err).WithFields(h.GetLogTagsForContext(ctx)).Error("Failed to write response")
	}
}

func (h *RecordHandler) writeBadRequest(
	ctx context.Context, w http.ResponseWriter, message string, detail string,
) {
	h.writeResponse(ctx, w, http.StatusBadRequest, ErrorResponse{
		RestAPIBaseResponse: h.GetStdRESTErrorMsg(ctx, http.StatusBadRequest, message, detail),
	})
}

// writeError map a record service error onto a response
func (h *RecordHandler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var validationErr *service.ValidationFailure
	switch {
	case errors.As(err, &validationErr):
		h.writeResponse(ctx, w, http.StatusBadRequest, ErrorResponse{
			RestAPIBaseResponse: h.GetStdRESTErrorMsg(
				ctx, http.StatusBadRequest, "invalid record", validationErr.Error(),
			),
			Violations: validationErr.Violations,
		})
	case errors.Is(err, service.ErrRecordNotFound):
		h.writeResponse(ctx, w, http.StatusNotFound, ErrorResponse{
			RestAPIBaseResponse: h.GetStdRESTErrorMsg(
				ctx, http.StatusNotFound, "record not found", "",
			),
		})
	default:
		log.WithError(err).WithFields(h.GetLogTagsForContext(ctx)).Error("Record operation failed")
		var persistErr *service.PersistenceFailure
		message := "internal error"
		if errors.As(err, &persistErr) {
			message = persistErr.Error()
		}
		h.writeResponse(ctx, w, http.StatusInternalServerError, ErrorResponse{
			RestAPIBaseResponse: h.GetStdRESTErrorMsg(
				ctx, http.StatusInternalServerError, message, "",
			),
		})
	}
}

// Alive liveness probe
func (h *RecordHandler) Alive(w http.ResponseWriter, r *http.Request) {
	h.writeResponse(r.Context(), w, http.StatusOK, h.GetStdRESTSuccessMsg(r.Context()))
}

// CreateRecord handle POST /v1/records
func (h *RecordHandler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var input models.NewVisitRecord
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeBadRequest(ctx, w, "malformed request body", err.Error())
		return
	}

	// Callers of the API must always name the visit date. Without one, the note is
	// checked here so the missing date is reported along with every other violation.
	if input.VisitDate == "" {
		if err := h.validator.Struct(&input.ClinicalNote); err != nil {
			if violations := models.ToFieldViolations(err); violations != nil {
				h.writeError(ctx, w, &service.ValidationFailure{Violations: violations})
				return
			}
		}
		h.writeError(ctx, w, &service.ValidationFailure{
			Violations: []models.FieldViolation{{
				Field: "visit_date", Rule: "required", Message: "visit_date is required",
			}},
		})
		return
	}

	record, err := h.records.CreateRecord(ctx, input, nil)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	h.writeResponse(
		ctx, w, http.StatusCreated,
		RecordResponse{RestAPIBaseResponse: h.GetStdRESTSuccessMsg(ctx), Record: record},
	)
}

// ListRecords handle GET /v1/records
func (h *RecordHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.writeBadRequest(ctx, w, "limit must be a positive integer", raw)
			return
		}
		limit = parsed
	}

	views, err := h.records.ListRecords(ctx, limit, nil)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	h.writeResponse(
		ctx, w, http.StatusOK,
		RecordListResponse{RestAPIBaseResponse: h.GetStdRESTSuccessMsg(ctx), Records: views},
	)
}

// GetRecord handle GET /v1/records/{recordID}
func (h *RecordHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recordID := mux.Vars(r)["recordID"]

	view, err := h.records.GetRecordForEdit(ctx, recordID, nil)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	h.writeResponse(
		ctx, w, http.StatusOK,
		RecordViewResponse{RestAPIBaseResponse: h.GetStdRESTSuccessMsg(ctx), Record: view},
	)
}

// UpdateRecord handle PUT /v1/records/{recordID}
func (h *RecordHandler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recordID := mux.Vars(r)["recordID"]

	var update models.RecordUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.writeBadRequest(ctx, w, "malformed request body", err.Error())
		return
	}

	record, err := h.records.UpdateRecord(ctx, recordID, update, nil)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	h.writeResponse(
		ctx, w, http.StatusOK,
		RecordResponse{RestAPIBaseResponse: h.GetStdRESTSuccessMsg(ctx), Record: record},
	)
}

// DeleteRecord handle DELETE /v1/records/{recordID}
func (h *RecordHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recordID := mux.Vars(r)["recordID"]

	if err := h.records.DeleteRecord(ctx, recordID, nil); err != nil {
		h.writeError(ctx, w, err)
		return
	}
	h.writeResponse(ctx, w, http.StatusOK, h.GetStdRESTSuccessMsg(ctx))
}
