package db

import (
	"context"
	"fmt"
	"time"

	"github.com/alwitt/karte/models"
	"github.com/apex/log"
	"github.com/oklog/ulid/v2"
)

/*
DefineNewRecord define new visit record row

	@param ctx context.Context - execution context
	@param params models.NewRecordParams - the record column values
	@param timestamp time.Time - creation timestamp of the record
	@returns record entry
*/
func (d *databaseImpl) DefineNewRecord(
	ctx context.Context, params models.NewRecordParams, timestamp time.Time,
) (models.Record, error) {
	if err := d.validator.Struct(&params); err != nil {
		return models.Record{}, fmt.Errorf("new record parameters are not valid [%w]", err)
	}

	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	timestamp = timestamp.UTC()

	newEntry := RecordDBEntry{
		Record: models.Record{
			ID:           ulid.Make().String(),
			PatientName:  params.PatientName,
			PatientID:    params.PatientID,
			VisitDate:    params.VisitDate,
			DocumentPath: params.DocumentPath,
			Summary:      params.Summary,
			Tags:         params.Tags,
			CreatedAt:    timestamp,
			UpdatedAt:    timestamp,
		},
	}

	if err := d.validator.Struct(&newEntry); err != nil {
		return models.Record{}, fmt.Errorf("new record is not valid [%w]", err)
	}

	if tmp := d.db.Create(&newEntry); tmp.Error != nil {
		return models.Record{}, fmt.Errorf("new record failed insert [%w]", tmp.Error)
	}

	// Record this event
	if _, err := d.defineNewSystemEvent(
		models.SystemEventTypeAddNewRecord,
		models.SystemEventRecordRelated{
			RecordID: newEntry.ID, PatientID: newEntry.PatientID, DocumentPath: newEntry.DocumentPath,
		},
		timestamp,
	); err != nil {
		return models.Record{}, fmt.Errorf(
			"failed to log add new record %s audit event [%w]", newEntry.ID, err,
		)
	}

	log.WithFields(d.GetLogTagsForContext(ctx)).
		WithField("record_id", newEntry.ID).
		Debug("Defined new record")

	return newEntry.Record, nil
}

// getRecordEntry find a visit record by ID
func (d *databaseImpl) getRecordEntry(recordID string) (RecordDBEntry, error) {
	var entry RecordDBEntry
	err := d.db.Where("id = ?", recordID).First(&entry).Error
	return entry, err
}

/*
GetRecord fetch a visit record by ID

	@param ctx context.Context - execution context
	@param recordID string - visit record ID
	@returns record entry
*/
func (d *databaseImpl) GetRecord(_ context.Context, recordID string) (models.Record, error) {
	entry, err := d.getRecordEntry(recordID)
	if err != nil {
		return models.Record{}, fmt.Errorf("failed to fetch record %s [%w]", recordID, err)
	}

	return entry.Record, nil
}

/*
ListRecords list visit records, newest first

Records sharing a creation timestamp are ordered by ID, newest first.

	@param ctx context.Context - execution context
	@param filters RecordQueryFilter - entry listing filter
	@return list of records
*/
func (d *databaseImpl) ListRecords(
	_ context.Context, filters RecordQueryFilter,
) ([]models.Record, error) {
	query := d.db.Model(&RecordDBEntry{})

	if filters.PatientID != nil {
		query = query.Where("patient_id = ?", *filters.PatientID)
	}

	if filters.Limit != nil {
		query = query.Limit(*filters.Limit)
	}
	if filters.Offset != nil {
		query = query.Offset(*filters.Offset)
	}

	query = query.Order("created_at desc").Order("id desc")

	var entries []RecordDBEntry
	if tmp := query.Find(&entries); tmp.Error != nil {
		return nil, fmt.Errorf("failed to list visit records [%w]", tmp.Error)
	}

	result := []models.Record{}
	for _, entry := range entries {
		result = append(result, entry.Record)
	}

	return result, nil
}

/*
UpdateRecord update columns of a visit record

The update timestamp always advances, even when no column changes.

	@param ctx context.Context - execution context
	@param recordID string - visit record ID
	@param update models.RecordFieldUpdate - the columns to change
	@param timestamp time.Time - update timestamp of the record
	@returns the updated record entry
*/
func (d *databaseImpl) UpdateRecord(
	ctx context.Context, recordID string, update models.RecordFieldUpdate, timestamp time.Time,
) (models.Record, error) {
	if err := d.validator.Struct(&update); err != nil {
		return models.Record{}, fmt.Errorf("record %s update is not valid [%w]", recordID, err)
	}

	entry, err := d.getRecordEntry(recordID)
	if err != nil {
		return models.Record{}, fmt.Errorf("failed to fetch record %s [%w]", recordID, err)
	}

	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	timestamp = timestamp.UTC()

	changes := map[string]interface{}{"updated_at": timestamp}
	if update.PatientName != nil {
		changes["patient_name"] = *update.PatientName
	}
	if update.PatientID != nil {
		changes["patient_id"] = *update.PatientID
	}
	if update.VisitDate != nil {
		changes["visit_date"] = *update.VisitDate
	}
	if update.Summary != nil {
		changes["summary"] = *update.Summary
	}
	if update.Tags != nil {
		changes["tags"] = *update.Tags
	}

	if tmp := d.db.Model(&entry).UpdateColumns(changes); tmp.Error != nil {
		return models.Record{}, fmt.Errorf("failed to update record %s [%w]", recordID, tmp.Error)
	}

	// Read back the stored row
	entry, err = d.getRecordEntry(recordID)
	if err != nil {
		return models.Record{}, fmt.Errorf("failed to re-read record %s [%w]", recordID, err)
	}

	// Record this event
	if _, err := d.defineNewSystemEvent(
		models.SystemEventTypeUpdateRecord,
		models.SystemEventRecordRelated{
			RecordID: entry.ID, PatientID: entry.PatientID, DocumentPath: entry.DocumentPath,
		},
		timestamp,
	); err != nil {
		return models.Record{}, fmt.Errorf(
			"failed to log update record %s audit event [%w]", recordID, err,
		)
	}

	log.WithFields(d.GetLogTagsForContext(ctx)).
		WithField("record_id", recordID).
		WithField("columns", len(changes)).
		Debug("Updated record")

	return entry.Record, nil
}

/*
DeleteRecord delete a visit record row

The associated document is not touched.

	@param ctx context.Context - execution context
	@param recordID string - visit record ID
*/
func (d *databaseImpl) DeleteRecord(_ context.Context, recordID string) error {
	entry, err := d.getRecordEntry(recordID)
	if err != nil {
		return fmt.Errorf("failed to fetch record %s [%w]", recordID, err)
	}

	if tmp := d.db.Delete(&entry); tmp.Error != nil {
		return fmt.Errorf("failed to delete record %s [%w]", recordID, tmp.Error)
	}

	// Record this event
	if _, err := d.defineNewSystemEvent(
		models.SystemEventTypeDeleteRecord,
		models.SystemEventRecordRelated{
			RecordID: entry.ID, PatientID: entry.PatientID, DocumentPath: entry.DocumentPath,
		},
		time.Time{},
	); err != nil {
		return fmt.Errorf("failed to log delete record %s audit event [%w]", recordID, err)
	}

	return nil
}
