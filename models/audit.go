package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"
)

// SystemEventTypeENUMType system event type ENUM value type
type SystemEventTypeENUMType string

const (
	// SystemEventTypeInitializing system is being initialized
	SystemEventTypeInitializing SystemEventTypeENUMType = "SYSTEM_INITIALIZING"

	// SystemEventTypeInitialized system is initialized
	SystemEventTypeInitialized SystemEventTypeENUMType = "SYSTEM_INITIALIZED"

	// SystemEventTypeAddNewRecord new visit record is being added
	SystemEventTypeAddNewRecord SystemEventTypeENUMType = "ADD_NEW_RECORD"

	// SystemEventTypeUpdateRecord visit record is updated
	SystemEventTypeUpdateRecord SystemEventTypeENUMType = "UPDATE_RECORD"

	// SystemEventTypeDeleteRecord visit record is deleted
	SystemEventTypeDeleteRecord SystemEventTypeENUMType = "DELETE_RECORD"
)

// SystemEventAudit recording of events occurring at the system level
type SystemEventAudit struct {
	// ID audit entry ID
	ID string `json:"id" gorm:"column:id;primaryKey;unique" validate:"required"`
	// EventType system event type
	EventType SystemEventTypeENUMType `json:"type" gorm:"column:type;not null" validate:"required,system_event_type"`
	// Metadata a metadata relating to the event
	Metadata datatypes.JSON `json:"metadata,omitempty" gorm:"column:metadata;default:null"`
	// CreatedAt entry creation timestamp
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt entry update timestamp
	UpdatedAt time.Time `json:"updated_at"`
}

// ParseMetadata parse the metadata based on the event type
func (a SystemEventAudit) ParseMetadata(validator *validator.Validate) (interface{}, error) {
	switch a.EventType {
	// System lifecycle events
	case SystemEventTypeInitializing:
		var parsed SystemEventInitRelated
		if err := json.Unmarshal(a.Metadata, &parsed); err != nil {
			return nil, fmt.Errorf("system event '%s' metadata parse failed [%w]", a.EventType, err)
		}
		return parsed, validator.Struct(&parsed)

	// Visit record related events
	case SystemEventTypeAddNewRecord:
		fallthrough
	case SystemEventTypeUpdateRecord:
		fallthrough
	case SystemEventTypeDeleteRecord:
		var parsed SystemEventRecordRelated
		if err := json.Unmarshal(a.Metadata, &parsed); err != nil {
			return nil, fmt.Errorf("system event '%s' metadata parse failed [%w]", a.EventType, err)
		}
		return parsed, validator.Struct(&parsed)
	}
	return nil, nil
}

// SystemEventInitRelated system event metadata related to system initialization
type SystemEventInitRelated struct {
	// DocumentDriver the document store driver the system is initialized against
	DocumentDriver string `json:"document_driver" validate:"required"`
	// DocumentLocator the document store locator the system is initialized against
	DocumentLocator string `json:"document_locator" validate:"required"`
}

// SystemEventRecordRelated system event metadata related to a visit record
type SystemEventRecordRelated struct {
	// RecordID the visit record ID
	RecordID string `json:"record_id" validate:"required,ulid"`
	// PatientID the patient of the record
	PatientID string `json:"patient_id" validate:"required"`
	// DocumentPath the document of the record
	DocumentPath string `json:"document_path" validate:"required"`
}
