// Package karte - clinical visit records kept as Markdown documents indexed by a SQL database
package karte

import (
	"context"
	"fmt"

	"github.com/alwitt/karte/db"
	"github.com/alwitt/karte/service"
	"github.com/alwitt/karte/storage"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Params visit record service setup parameters
type Params struct {
	// DBDialector GORM dialector of the row store
	DBDialector gorm.Dialector
	// DBLogLevel SQL log level
	DBLogLevel logger.LogLevel
	// Documents document store
	Documents storage.DocumentStore
	// Registerer registry to install the service metrics into
	Registerer prometheus.Registerer
	// ListLimit number of records listed when no limit is given; 0 for the default
	ListLimit int
	// DefineTables create missing tables before starting
	DefineTables bool
}

/*
NewVisitRecordService initialize a visit record service instance.

Each instance is backed by a SQL database holding the record rows, and a document store
holding the record documents. The caller owns the returned persistence client and should
close it when done.

	@param ctx context.Context - execution context
	@param params Params - setup parameters
	@returns new service instance and its persistence client
*/
func NewVisitRecordService(
	ctx context.Context, params Params,
) (service.RecordService, db.Client, error) {
	// Prepare persistence
	persistence, err := db.NewConnection(params.DBDialector, params.DBLogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialized persistence client [%w]", err)
	}

	if params.DefineTables {
		if err := persistence.RunSQLInTransaction(ctx, db.DefineTables); err != nil {
			_ = persistence.Close()
			return nil, nil, fmt.Errorf("failed to define tables [%w]", err)
		}
	}

	registerer := params.Registerer
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	metrics, err := service.NewMetrics(registerer)
	if err != nil {
		_ = persistence.Close()
		return nil, nil, err
	}

	records, err := service.NewRecordService(ctx, service.RecordServiceParams{
		Persistence: persistence,
		Documents:   params.Documents,
		Metrics:     metrics,
		ListLimit:   params.ListLimit,
	})
	if err != nil {
		_ = persistence.Close()
		return nil, nil, fmt.Errorf("failed to initialized visit record service [%w]", err)
	}

	return records, persistence, nil
}
