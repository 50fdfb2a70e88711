// Package service - visit record service
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alwitt/goutils"
	"github.com/alwitt/karte/db"
	"github.com/alwitt/karte/document"
	"github.com/alwitt/karte/models"
	"github.com/alwitt/karte/storage"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// DefaultListLimit number of records listed when no limit is given
const DefaultListLimit = 100

// maxNameAttempts naming attempts before giving up on finding a free document name
const maxNameAttempts = 100

// RecordService manages visit records, each a document plus a row referencing it
type RecordService interface {
	/*
		CreateRecord define a new visit record

		An empty visit date defaults to the current date.

			@param ctx context.Context - execution context
			@param input models.NewVisitRecord - the new record
			@param activeDBClient db.Database - existing database transaction
			@returns the record row
	*/
	CreateRecord(
		ctx context.Context, input models.NewVisitRecord, activeDBClient db.Database,
	) (models.Record, error)

	/*
		ListRecords list visit records newest first, each with what its document shows

		A broken document only flags its own record; it never fails the listing.

			@param ctx context.Context - execution context
			@param limit int - max number of records; 0 for the default limit
			@param activeDBClient db.Database - existing database transaction
			@returns the record views
	*/
	ListRecords(
		ctx context.Context, limit int, activeDBClient db.Database,
	) ([]RecordView, error)

	/*
		GetRecord fetch a visit record row

			@param ctx context.Context - execution context
			@param recordID string - the record ID
			@param activeDBClient db.Database - existing database transaction
			@returns the record row
	*/
	GetRecord(
		ctx context.Context, recordID string, activeDBClient db.Database,
	) (models.Record, error)

	/*
		GetRecordForEdit fetch a visit record with its decoded document

			@param ctx context.Context - execution context
			@param recordID string - the record ID
			@param activeDBClient db.Database - existing database transaction
			@returns the record view
	*/
	GetRecordForEdit(
		ctx context.Context, recordID string, activeDBClient db.Database,
	) (RecordView, error)

	/*
		UpdateRecord change fields of a visit record

		When a document field changes, the document is rewritten in place before the row
		is updated.

			@param ctx context.Context - execution context
			@param recordID string - the record ID
			@param update models.RecordUpdate - the fields to change
			@param activeDBClient db.Database - existing database transaction
			@returns the updated record row
	*/
	UpdateRecord(
		ctx context.Context, recordID string, update models.RecordUpdate, activeDBClient db.Database,
	) (models.Record, error)

	/*
		DeleteRecord delete a visit record row

		The document is kept.

			@param ctx context.Context - execution context
			@param recordID string - the record ID
			@param activeDBClient db.Database - existing database transaction
	*/
	DeleteRecord(ctx context.Context, recordID string, activeDBClient db.Database) error
}

// RecordServiceParams record service construction parameters
type RecordServiceParams struct {
	// Persistence row store client
	Persistence db.Client
	// Documents document store
	Documents storage.DocumentStore
	// Metrics service metrics
	Metrics *Metrics
	// ListLimit number of records listed when no limit is given
	ListLimit int
	// Clock time source; defaults to time.Now
	Clock func() time.Time
}

// recordServiceImpl implements RecordService
type recordServiceImpl struct {
	goutils.Component

	persistence db.Client
	documents   storage.DocumentStore
	metrics     *Metrics
	validator   *validator.Validate
	listLimit   int
	clock       func() time.Time
}

/*
NewRecordService define new visit record service

The row store is bound to the document store on first start. Later starts against a
different document store are refused, since every stored document path is only
meaningful in the store it was written to.

	@param ctx context.Context - execution context
	@param params RecordServiceParams - service parameters
	@returns service instance
*/
func NewRecordService(ctx context.Context, params RecordServiceParams) (RecordService, error) {
	logTags := log.Fields{"module": "service", "component": "record-service"}

	if params.Persistence == nil || params.Documents == nil || params.Metrics == nil {
		return nil, fmt.Errorf("record service requires persistence, document store, and metrics")
	}

	validate, err := models.NewValidator()
	if err != nil {
		return nil, err
	}

	instance := &recordServiceImpl{
		Component: goutils.Component{
			LogTags: logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		persistence: params.Persistence,
		documents:   params.Documents,
		metrics:     params.Metrics,
		validator:   validate,
		listLimit:   params.ListLimit,
		clock:       params.Clock,
	}
	if instance.listLimit <= 0 {
		instance.listLimit = DefaultListLimit
	}
	if instance.clock == nil {
		instance.clock = time.Now
	}

	// Bind to, or verify, the document store
	driver := string(params.Documents.Driver())
	locator := params.Documents.Locator()
	if dbErr := params.Persistence.UseDatabaseInTransaction(
		ctx, func(dbCtx context.Context, dbClient db.Database) error {
			sysParams, err := dbClient.GetSystemParamEntry(dbCtx)
			if err != nil {
				return err
			}

			switch sysParams.State {
			case models.SystemStatePreInit:
				if err := dbClient.MarkSystemInitializing(dbCtx, driver, locator); err != nil {
					return err
				}
			case models.SystemStateInit, models.SystemStateRunning:
				if sysParams.DocumentDriver != driver || sysParams.DocumentLocator != locator {
					return fmt.Errorf(
						"records were written to document store %s %s, not %s %s",
						sysParams.DocumentDriver, sysParams.DocumentLocator, driver, locator,
					)
				}
			}

			return dbClient.MarkSystemInitialized(dbCtx)
		},
	); dbErr != nil {
		return nil, fmt.Errorf("failed to prepare record service [%w]", dbErr)
	}

	log.WithFields(logTags).
		WithField("document_driver", driver).
		WithField("document_locator", locator).
		Info("Record service ready")

	return instance, nil
}

// validateNote check a note against every field rule, collecting all violations
func (s *recordServiceImpl) validateNote(note models.ClinicalNote) error {
	if err := s.validator.Struct(&note); err != nil {
		violations := models.ToFieldViolations(err)
		if violations == nil {
			return fmt.Errorf("note validation failed [%w]", err)
		}
		return &ValidationFailure{Violations: violations}
	}
	return nil
}

// validateNoteFields check a note, reporting only violations of the named fields
//
// Documents written before validation existed may hold empty sections; an update should
// not be refused over fields it leaves alone.
func (s *recordServiceImpl) validateNoteFields(note models.ClinicalNote, fields []string) error {
	err := s.validateNote(note)
	var failure *ValidationFailure
	if !errors.As(err, &failure) {
		return err
	}
	checked := map[string]bool{}
	for _, field := range fields {
		checked[field] = true
	}
	violations := []models.FieldViolation{}
	for _, violation := range failure.Violations {
		if checked[violation.Field] {
			violations = append(violations, violation)
		}
	}
	if len(violations) == 0 {
		return nil
	}
	return &ValidationFailure{Violations: violations}
}

// isNotFound whether the error reports an unknown record
func isNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

// rowFailure convert a row store error into the service error taxonomy
func rowFailure(operation, recordID string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("record %s [%w]", recordID, ErrRecordNotFound)
	}
	return &PersistenceFailure{Operation: operation, RecordID: recordID, Err: err}
}

// writeNewDocument store a new document under the first free name
func (s *recordServiceImpl) writeNewDocument(
	ctx context.Context, created time.Time, patientName string, content []byte,
) (string, error) {
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name := document.DocumentName(created, patientName, attempt)
		location, err := s.documents.Create(ctx, name, content)
		if err == nil {
			return location, nil
		}
		if !errors.Is(err, storage.ErrDocumentExists) {
			return "", err
		}
	}
	return "", fmt.Errorf(
		"no free document name for %s after %d attempts",
		document.DocumentName(created, patientName, 0), maxNameAttempts,
	)
}

/*
CreateRecord define a new visit record

An empty visit date defaults to the current date.

	@param ctx context.Context - execution context
	@param input models.NewVisitRecord - the new record
	@param activeDBClient db.Database - existing database transaction
	@returns the record row
*/
func (s *recordServiceImpl) CreateRecord(
	ctx context.Context, input models.NewVisitRecord, activeDBClient db.Database,
) (result models.Record, err error) {
	defer func() { s.metrics.observe(operationCreate, err) }()
	logTags := s.GetLogTagsForContext(ctx)

	now := s.clock()
	note := input.ClinicalNote
	if note.VisitDate == "" {
		note.VisitDate = now.Format(models.VisitDateLayout)
	}

	if err := s.validateNote(note); err != nil {
		return models.Record{}, err
	}

	content, err := document.Encode(note)
	if err != nil {
		return models.Record{}, &PersistenceFailure{Operation: operationCreate, Err: err}
	}

	location, err := s.writeNewDocument(ctx, now, note.PatientName, content)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Failed to write new record document")
		return models.Record{}, &PersistenceFailure{Operation: operationCreate, Err: err}
	}

	var record models.Record
	if dbErr := db.ActiveSessionWrapper(
		ctx, activeDBClient, s.persistence, func(dbCtx context.Context, dbClient db.Database) error {
			var err error
			record, err = dbClient.DefineNewRecord(dbCtx, models.NewRecordParams{
				PatientName:  note.PatientName,
				PatientID:    note.PatientID,
				VisitDate:    note.VisitDate,
				DocumentPath: location,
				Summary:      input.Summary,
				Tags:         input.Tags,
			}, now)
			return err
		},
	); dbErr != nil {
		s.metrics.OrphanDocuments().Inc()
		log.WithError(dbErr).
			WithFields(logTags).
			WithField("location", location).
			Error("Record row insert failed, document left orphaned")
		return models.Record{}, &PersistenceFailure{
			Operation: operationCreate, Location: location, OrphanDocument: true, Err: dbErr,
		}
	}

	log.WithFields(logTags).
		WithField("record_id", record.ID).
		WithField("location", location).
		Info("Created visit record")

	return record, nil
}

/*
ListRecords list visit records newest first, each with what its document shows

A broken document only flags its own record; it never fails the listing.

	@param ctx context.Context - execution context
	@param limit int - max number of records; 0 for the default limit
	@param activeDBClient db.Database - existing database transaction
	@returns the record views
*/
func (s *recordServiceImpl) ListRecords(
	ctx context.Context, limit int, activeDBClient db.Database,
) (result []RecordView, err error) {
	defer func() { s.metrics.observe(operationList, err) }()

	if limit <= 0 {
		limit = s.listLimit
	}

	var records []models.Record
	if dbErr := db.ActiveSessionWrapper(
		ctx, activeDBClient, s.persistence, func(dbCtx context.Context, dbClient db.Database) error {
			var err error
			records, err = dbClient.ListRecords(dbCtx, db.RecordQueryFilter{
				CommonListEntryQueryFilter: db.CommonListEntryQueryFilter{Limit: &limit},
			})
			return err
		},
	); dbErr != nil {
		log.WithError(dbErr).WithFields(s.GetLogTagsForContext(ctx)).Error("Failed to list records")
		return nil, &PersistenceFailure{Operation: operationList, Err: dbErr}
	}

	views := make([]RecordView, 0, len(records))
	for _, record := range records {
		views = append(views, s.presentRecord(ctx, record))
	}
	return views, nil
}

/*
GetRecord fetch a visit record row

	@param ctx context.Context - execution context
	@param recordID string - the record ID
	@param activeDBClient db.Database - existing database transaction
	@returns the record row
*/
func (s *recordServiceImpl) GetRecord(
	ctx context.Context, recordID string, activeDBClient db.Database,
) (result models.Record, err error) {
	defer func() { s.metrics.observe(operationGet, err) }()
	return s.fetchRecord(ctx, operationGet, recordID, activeDBClient)
}

// fetchRecord read a record row, mapping errors into the service error taxonomy
func (s *recordServiceImpl) fetchRecord(
	ctx context.Context, operation, recordID string, activeDBClient db.Database,
) (models.Record, error) {
	var record models.Record
	if dbErr := db.ActiveSessionWrapper(
		ctx, activeDBClient, s.persistence, func(dbCtx context.Context, dbClient db.Database) error {
			var err error
			record, err = dbClient.GetRecord(dbCtx, recordID)
			return err
		},
	); dbErr != nil {
		return models.Record{}, rowFailure(operation, recordID, dbErr)
	}
	return record, nil
}

/*
GetRecordForEdit fetch a visit record with its decoded document

	@param ctx context.Context - execution context
	@param recordID string - the record ID
	@param activeDBClient db.Database - existing database transaction
	@returns the record view
*/
func (s *recordServiceImpl) GetRecordForEdit(
	ctx context.Context, recordID string, activeDBClient db.Database,
) (result RecordView, err error) {
	defer func() { s.metrics.observe(operationGetForEdit, err) }()

	record, err := s.fetchRecord(ctx, operationGetForEdit, recordID, activeDBClient)
	if err != nil {
		return RecordView{}, err
	}
	return s.presentRecord(ctx, record), nil
}

// currentNote the note a record currently holds, and whether it came from the document
//
// When the document can not be decoded, the row supplies the identity fields.
func (s *recordServiceImpl) currentNote(
	ctx context.Context, record models.Record,
) (models.ClinicalNote, bool) {
	view := s.presentRecord(ctx, record)
	if view.Note != nil {
		return *view.Note, true
	}
	return models.ClinicalNote{
		PatientName: record.PatientName,
		PatientID:   record.PatientID,
		VisitDate:   record.VisitDate,
	}, false
}

/*
UpdateRecord change fields of a visit record

When a document field changes, the document is rewritten in place before the row
is updated. Only the identity fields and the fields the update changes are validated,
unless the current document can not be decoded.

	@param ctx context.Context - execution context
	@param recordID string - the record ID
	@param update models.RecordUpdate - the fields to change
	@param activeDBClient db.Database - existing database transaction
	@returns the updated record row
*/
func (s *recordServiceImpl) UpdateRecord(
	ctx context.Context, recordID string, update models.RecordUpdate, activeDBClient db.Database,
) (result models.Record, err error) {
	defer func() { s.metrics.observe(operationUpdate, err) }()
	logTags := s.GetLogTagsForContext(ctx)

	record, err := s.fetchRecord(ctx, operationUpdate, recordID, activeDBClient)
	if err != nil {
		return models.Record{}, err
	}

	now := s.clock()
	columns := models.RecordFieldUpdate{Summary: update.Summary, Tags: update.Tags}

	if update.TouchesNote() {
		current, decoded := s.currentNote(ctx, record)
		merged := update.ApplyTo(current)
		if decoded {
			checked := append([]string{}, models.IdentityNoteFields...)
			err = s.validateNoteFields(merged, append(checked, update.TouchedNoteFields()...))
		} else {
			// Nothing survives from an unreadable document, so the update must supply it all
			err = s.validateNote(merged)
		}
		if err != nil {
			return models.Record{}, err
		}

		content, err := document.Encode(merged)
		if err != nil {
			return models.Record{}, &PersistenceFailure{
				Operation: operationUpdate, RecordID: recordID, Err: err,
			}
		}
		if err := s.documents.Write(ctx, record.DocumentPath, content); err != nil {
			log.WithError(err).
				WithFields(logTags).
				WithField("record_id", recordID).
				WithField("location", record.DocumentPath).
				Error("Failed to rewrite record document")
			return models.Record{}, &PersistenceFailure{
				Operation: operationUpdate, RecordID: recordID, Location: record.DocumentPath, Err: err,
			}
		}

		// The row follows the document
		columns.PatientName = &merged.PatientName
		columns.PatientID = &merged.PatientID
		columns.VisitDate = &merged.VisitDate
	}

	var updated models.Record
	if dbErr := db.ActiveSessionWrapper(
		ctx, activeDBClient, s.persistence, func(dbCtx context.Context, dbClient db.Database) error {
			var err error
			updated, err = dbClient.UpdateRecord(dbCtx, recordID, columns, now)
			return err
		},
	); dbErr != nil {
		log.WithError(dbErr).
			WithFields(logTags).
			WithField("record_id", recordID).
			WithField("location", record.DocumentPath).
			Error("Failed to update record row")
		return models.Record{}, rowFailure(operationUpdate, recordID, dbErr)
	}

	log.WithFields(logTags).
		WithField("record_id", recordID).
		WithField("document_rewritten", update.TouchesNote()).
		Info("Updated visit record")

	return updated, nil
}

/*
DeleteRecord delete a visit record row

The document is kept.

	@param ctx context.Context - execution context
	@param recordID string - the record ID
	@param activeDBClient db.Database - existing database transaction
*/
func (s *recordServiceImpl) DeleteRecord(
	ctx context.Context, recordID string, activeDBClient db.Database,
) (err error) {
	defer func() { s.metrics.observe(operationDelete, err) }()

	if dbErr := db.ActiveSessionWrapper(
		ctx, activeDBClient, s.persistence, func(dbCtx context.Context, dbClient db.Database) error {
			return dbClient.DeleteRecord(dbCtx, recordID)
		},
	); dbErr != nil {
		return rowFailure(operationDelete, recordID, dbErr)
	}

	log.WithFields(s.GetLogTagsForContext(ctx)).
		WithField("record_id", recordID).
		Info("Deleted visit record row")
	return nil
}
