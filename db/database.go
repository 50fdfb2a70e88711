package db

import (
	"context"
	"fmt"
	"time"

	"github.com/alwitt/goutils"
	"github.com/alwitt/karte/models"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// CommonListEntryQueryFilter common query filter when listing data entries
type CommonListEntryQueryFilter struct {
	Limit  *int
	Offset *int
}

// SystemEventQueryFilter audit event query filter conditions
type SystemEventQueryFilter struct {
	CommonListEntryQueryFilter
	// EventTypes the specific event types to query for
	EventTypes []models.SystemEventTypeENUMType
	// EventsAfter filter for events after this timestamp
	EventsAfter *time.Time
	// EventsBefore filter for events before this timestamp
	EventsBefore *time.Time
}

// RecordQueryFilter visit record query filter conditions
type RecordQueryFilter struct {
	CommonListEntryQueryFilter
	// PatientID fetch only records of this patient
	PatientID *string
}

// Database the database handle to interacting with the data base
type Database interface {
	// ------------------------------------------------------------------------------------
	// System audit events

	/*
		ListSystemEvents list captured system events

			@param ctx context.Context - execution context
			@param filters SystemEventQueryFilter - entry listing filter
			@return list of system events
	*/
	ListSystemEvents(
		ctx context.Context, filters SystemEventQueryFilter,
	) ([]models.SystemEventAudit, error)

	// ------------------------------------------------------------------------------------
	// System parameters

	/*
		GetSystemParamEntry fetch the global singleton system parameter entry

			@param ctx context.Context - execution context
			@returns the entry
	*/
	GetSystemParamEntry(ctx context.Context) (models.SystemParams, error)

	/*
		MarkSystemInitializing mark system is initializing against a document store

			@param ctx context.Context - execution context
			@param documentDriver string - document store driver
			@param documentLocator string - document store locator
	*/
	MarkSystemInitializing(ctx context.Context, documentDriver, documentLocator string) error

	/*
		MarkSystemInitialized mark system fully initialized

			@param ctx context.Context - execution context
	*/
	MarkSystemInitialized(ctx context.Context) error

	// ------------------------------------------------------------------------------------
	// Visit records

	/*
		DefineNewRecord define new visit record row

			@param ctx context.Context - execution context
			@param params models.NewRecordParams - the record column values
			@param timestamp time.Time - creation timestamp of the record
			@returns record entry
	*/
	DefineNewRecord(
		ctx context.Context, params models.NewRecordParams, timestamp time.Time,
	) (models.Record, error)

	/*
		GetRecord fetch a visit record by ID

			@param ctx context.Context - execution context
			@param recordID string - visit record ID
			@returns record entry
	*/
	GetRecord(ctx context.Context, recordID string) (models.Record, error)

	/*
		ListRecords list visit records, newest first

			@param ctx context.Context - execution context
			@param filters RecordQueryFilter - entry listing filter
			@return list of records
	*/
	ListRecords(ctx context.Context, filters RecordQueryFilter) ([]models.Record, error)

	/*
		UpdateRecord update columns of a visit record

			@param ctx context.Context - execution context
			@param recordID string - visit record ID
			@param update models.RecordFieldUpdate - the columns to change
			@param timestamp time.Time - update timestamp of the record
			@returns the updated record entry
	*/
	UpdateRecord(
		ctx context.Context, recordID string, update models.RecordFieldUpdate, timestamp time.Time,
	) (models.Record, error)

	/*
		DeleteRecord delete a visit record row

			@param ctx context.Context - execution context
			@param recordID string - visit record ID
	*/
	DeleteRecord(ctx context.Context, recordID string) error
}

// databaseImpl implements Database
type databaseImpl struct {
	goutils.Component
	db        *gorm.DB
	validator *validator.Validate
}

// newDatabase define a new database client
func newDatabase(_ context.Context, sqlClient *gorm.DB) (Database, error) {
	logTags := log.Fields{"package": "karte", "module": "db", "component": "db-client"}

	instance := &databaseImpl{
		Component: goutils.Component{
			LogTags: logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		db:        sqlClient,
		validator: validator.New(),
	}

	if err := models.RegisterWithValidator(instance.validator); err != nil {
		return nil, fmt.Errorf("failed to install custom validation macros [%w]", err)
	}

	return instance, nil
}
