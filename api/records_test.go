package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alwitt/goutils"
	"github.com/alwitt/karte/api"
	"github.com/alwitt/karte/db"
	"github.com/alwitt/karte/models"
	"github.com/alwitt/karte/service"
	"github.com/alwitt/karte/storage"
	"github.com/apex/log"
	"github.com/apex/log/handlers/memory"
	"github.com/gorilla/mux"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/logger"
)

type apiHarness struct {
	persistence db.Client
	router      *mux.Router
}

func newAPIHarness(t *testing.T) apiHarness {
	assert := assert.New(t)
	utCtx := context.Background()

	testDB := fmt.Sprintf("/tmp/karte_ut_%s.db", ulid.Make().String())
	persistence, err := db.NewConnection(db.GetSqliteDialector(testDB), logger.Error)
	assert.Nil(err)
	assert.Nil(persistence.RunSQLInTransaction(utCtx, db.DefineTables))
	t.Cleanup(func() { _ = persistence.Close() })

	registry := prometheus.NewRegistry()
	metrics, err := service.NewMetrics(registry)
	assert.Nil(err)

	records, err := service.NewRecordService(utCtx, service.RecordServiceParams{
		Persistence: persistence,
		Documents:   storage.NewMemoryStore(),
		Metrics:     metrics,
	})
	assert.Nil(err)

	handler, err := api.NewRecordHandler(records, "", goutils.HTTPLogLevelDEBUG)
	assert.Nil(err)

	return apiHarness{persistence: persistence, router: api.NewRouter(handler, registry)}
}

func (h apiHarness) call(method, path string, body interface{}) *httptest.ResponseRecorder {
	return h.callWithRequestID(method, path, body, "req-"+ulid.Make().String())
}

func (h apiHarness) callWithRequestID(
	method, path string, body interface{}, requestID string,
) *httptest.ResponseRecorder {
	var payload bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&payload).Encode(body)
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set(api.DefaultRequestIDHeader, requestID)
	resp := httptest.NewRecorder()
	h.router.ServeHTTP(resp, req)
	return resp
}

func apiTestNote(patientName, patientID, visitDate string) models.NewVisitRecord {
	return models.NewVisitRecord{
		ClinicalNote: models.ClinicalNote{
			PatientName:  patientName,
			PatientID:    patientID,
			VisitDate:    visitDate,
			Prescription: "アムロジピン 5mg",
			Subjective:   "頭痛",
			Objective:    "BP 150/95",
			Assessment:   "高血圧",
			Plan:         "2週間後再診",
		},
	}
}

func TestAPIRecordLifecycle(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	uut := newAPIHarness(t)

	// Case 0: liveness
	{
		resp := uut.call(http.MethodGet, "/v1/alive", nil)
		assert.Equal(http.StatusOK, resp.Code)
		assert.NotEmpty(resp.Header().Get(api.DefaultRequestIDHeader))
	}

	// Case 1: create
	var created api.RecordResponse
	{
		resp := uut.call(http.MethodPost, "/v1/records", apiTestNote("山田太郎", "P-001", "2024-05-01"))
		assert.Equal(http.StatusCreated, resp.Code)
		assert.Nil(json.Unmarshal(resp.Body.Bytes(), &created))
		assert.True(created.Success)
		assert.NotEmpty(created.RequestID)
		assert.Equal("山田太郎", created.Record.PatientName)
		assert.Equal("2024-05-01", created.Record.VisitDate)
	}

	// Case 2: list
	{
		resp := uut.call(http.MethodGet, "/v1/records?limit=10", nil)
		assert.Equal(http.StatusOK, resp.Code)
		var listed api.RecordListResponse
		assert.Nil(json.Unmarshal(resp.Body.Bytes(), &listed))
		assert.Len(listed.Records, 1)
		assert.Equal(created.Record.ID, listed.Records[0].Record.ID)
		assert.Equal(service.DocumentStatusOK, listed.Records[0].Status)
		assert.Equal("2024-05-01 | 山田太郎", listed.Records[0].Summary)
	}

	// Case 3: get
	{
		resp := uut.call(http.MethodGet, "/v1/records/"+created.Record.ID, nil)
		assert.Equal(http.StatusOK, resp.Code)
		var fetched api.RecordViewResponse
		assert.Nil(json.Unmarshal(resp.Body.Bytes(), &fetched))
		assert.NotNil(fetched.Record.Note)
		assert.Equal("頭痛", fetched.Record.Note.Subjective)
	}

	// Case 4: update
	{
		subjective := "頭痛 軽快"
		resp := uut.call(
			http.MethodPut, "/v1/records/"+created.Record.ID, models.RecordUpdate{Subjective: &subjective},
		)
		assert.Equal(http.StatusOK, resp.Code)

		resp = uut.call(http.MethodGet, "/v1/records/"+created.Record.ID, nil)
		var fetched api.RecordViewResponse
		assert.Nil(json.Unmarshal(resp.Body.Bytes(), &fetched))
		assert.Equal("頭痛 軽快", fetched.Record.Note.Subjective)
	}

	// Case 5: delete
	{
		resp := uut.call(http.MethodDelete, "/v1/records/"+created.Record.ID, nil)
		assert.Equal(http.StatusOK, resp.Code)

		resp = uut.call(http.MethodGet, "/v1/records/"+created.Record.ID, nil)
		assert.Equal(http.StatusNotFound, resp.Code)
	}

	// Case 6: metrics exposed
	{
		resp := uut.call(http.MethodGet, "/metrics", nil)
		assert.Equal(http.StatusOK, resp.Code)
		assert.Contains(resp.Body.String(), "karte_record_operations_total")
	}
}

func TestAPIRejectsInvalidInput(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	uut := newAPIHarness(t)

	// Case 0: missing visit date
	{
		resp := uut.call(http.MethodPost, "/v1/records", apiTestNote("山田太郎", "P-001", ""))
		assert.Equal(http.StatusBadRequest, resp.Code)
		var failed api.ErrorResponse
		assert.Nil(json.Unmarshal(resp.Body.Bytes(), &failed))
		assert.False(failed.Success)
		assert.NotNil(failed.Error)
		assert.Equal(http.StatusBadRequest, failed.Error.Code)
		assert.Len(failed.Violations, 1)
		assert.Equal("visit_date", failed.Violations[0].Field)
	}

	// Case 1: several violations are all reported
	{
		note := apiTestNote(strings.Repeat("名", 51), "P 001", "2024-05-01")
		resp := uut.call(http.MethodPost, "/v1/records", note)
		assert.Equal(http.StatusBadRequest, resp.Code)
		var failed api.ErrorResponse
		assert.Nil(json.Unmarshal(resp.Body.Bytes(), &failed))
		assert.Len(failed.Violations, 2)
	}

	// Case 2: missing visit date is reported along with the other violations
	{
		resp := uut.call(http.MethodPost, "/v1/records", apiTestNote("", "bad id!", ""))
		assert.Equal(http.StatusBadRequest, resp.Code)
		var failed api.ErrorResponse
		assert.Nil(json.Unmarshal(resp.Body.Bytes(), &failed))
		fields := []string{}
		for _, violation := range failed.Violations {
			fields = append(fields, violation.Field)
		}
		assert.ElementsMatch([]string{"patient_name", "patient_id", "visit_date"}, fields)
	}

	// Case 3: malformed body
	{
		req := httptest.NewRequest(http.MethodPost, "/v1/records", strings.NewReader("{"))
		resp := httptest.NewRecorder()
		uut.router.ServeHTTP(resp, req)
		assert.Equal(http.StatusBadRequest, resp.Code)
	}

	// Case 4: bad listing limit
	{
		resp := uut.call(http.MethodGet, "/v1/records?limit=zero", nil)
		assert.Equal(http.StatusBadRequest, resp.Code)
	}

	// Case 5: unknown record
	{
		unknown := ulid.Make().String()
		resp := uut.call(http.MethodGet, "/v1/records/"+unknown, nil)
		assert.Equal(http.StatusNotFound, resp.Code)
		var failed api.ErrorResponse
		assert.Nil(json.Unmarshal(resp.Body.Bytes(), &failed))
		assert.Equal("record not found", failed.Error.Msg)
		assert.NotContains(resp.Body.String(), unknown)
		assert.Equal(http.StatusNotFound, uut.call(http.MethodDelete, "/v1/records/"+unknown, nil).Code)
		plan := "経過観察"
		assert.Equal(
			http.StatusNotFound,
			uut.call(http.MethodPut, "/v1/records/"+unknown, models.RecordUpdate{Plan: &plan}).Code,
		)
	}
}

func TestAPIPersistenceFailureIsGeneric(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	uut := newAPIHarness(t)
	assert.Nil(uut.persistence.Close())

	resp := uut.call(http.MethodGet, "/v1/records", nil)
	assert.Equal(http.StatusInternalServerError, resp.Code)
	var failed api.ErrorResponse
	assert.Nil(json.Unmarshal(resp.Body.Bytes(), &failed))
	assert.NotNil(failed.Error)
	assert.Equal("record list failed", failed.Error.Msg)
}

func TestAPIRequestIDReachesServiceLogs(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	captured := memory.New()
	if logger, ok := log.Log.(*log.Logger); ok {
		previous := logger.Handler
		t.Cleanup(func() { log.SetHandler(previous) })
	}
	log.SetHandler(captured)

	uut := newAPIHarness(t)

	requestID := "req-" + ulid.Make().String()
	resp := uut.callWithRequestID(
		http.MethodPost, "/v1/records", apiTestNote("山田太郎", "P-001", "2024-05-01"), requestID,
	)
	assert.Equal(http.StatusCreated, resp.Code)
	assert.Equal(requestID, resp.Header().Get(api.DefaultRequestIDHeader))

	var created api.RecordResponse
	assert.Nil(json.Unmarshal(resp.Body.Bytes(), &created))
	assert.Equal(requestID, created.RequestID)

	found := false
	for _, entry := range captured.Entries {
		if entry.Message == "Created visit record" {
			found = true
			assert.Equal(requestID, entry.Fields["request_id"])
			assert.Equal("service", entry.Fields["module"])
		}
	}
	assert.True(found)
}
