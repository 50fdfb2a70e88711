// Package models - system data models
package models

import "time"

// VisitDateLayout the layout of a visit date string
const VisitDateLayout = "2006-01-02"

// Record metadata row of one clinical visit record
//
// The note content itself lives in the document referenced by DocumentPath.
type Record struct {
	// ID record ID
	ID string `json:"id" gorm:"column:id;primaryKey;unique" validate:"required,ulid"`

	// PatientName patient display name
	PatientName string `json:"patient_name" gorm:"column:patient_name;not null" validate:"required,max=50"`
	// PatientID patient identifier
	PatientID string `json:"patient_id" gorm:"column:patient_id;not null;index" validate:"required,patient_id"`
	// VisitDate visit date as YYYY-MM-DD
	VisitDate string `json:"visit_date" gorm:"column:visit_date;not null" validate:"required,datetime=2006-01-02"`

	// DocumentPath location of the associated document
	DocumentPath string `json:"document_path" gorm:"column:document_path;not null" validate:"required"`

	// Summary optional free-text summary
	Summary *string `json:"summary,omitempty" gorm:"column:summary;default:null"`
	// Tags optional comma separated tags
	Tags *string `json:"tags,omitempty" gorm:"column:tags;default:null"`

	// CreatedAt entry creation timestamp
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	// UpdatedAt entry update timestamp
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRecordParams parameters for defining a new record row
type NewRecordParams struct {
	PatientName  string  `validate:"required,max=50"`
	PatientID    string  `validate:"required,patient_id"`
	VisitDate    string  `validate:"required,datetime=2006-01-02"`
	DocumentPath string  `validate:"required"`
	Summary      *string `validate:"-"`
	Tags         *string `validate:"-"`
}

// RecordFieldUpdate partial update of the columns of a record row
//
// A nil field is left unchanged.
type RecordFieldUpdate struct {
	PatientName *string `validate:"omitempty,max=50"`
	PatientID   *string `validate:"omitempty,patient_id"`
	VisitDate   *string `validate:"omitempty,datetime=2006-01-02"`
	Summary     *string `validate:"-"`
	Tags        *string `validate:"-"`
}

// ClinicalNote the structured content of one visit record
//
// Field order is the order in which the fields are written into a document's
// metadata block.
type ClinicalNote struct {
	// PatientName patient display name
	PatientName string `json:"patient_name" yaml:"patient_name" validate:"required,max=50"`
	// PatientID patient identifier
	PatientID string `json:"patient_id" yaml:"patient_id" validate:"required,patient_id"`
	// VisitDate visit date as YYYY-MM-DD
	VisitDate string `json:"visit_date" yaml:"visit_date" validate:"required,datetime=2006-01-02"`
	// Prescription prescription text
	Prescription string `json:"prescription" yaml:"prescription" validate:"required"`
	// Subjective S section
	Subjective string `json:"S" yaml:"S" validate:"required"`
	// Objective O section
	Objective string `json:"O" yaml:"O" validate:"required"`
	// Assessment A section
	Assessment string `json:"A" yaml:"A" validate:"required"`
	// Plan P section
	Plan string `json:"P" yaml:"P" validate:"required"`
}

// NewVisitRecord input of a new visit record
type NewVisitRecord struct {
	ClinicalNote
	// Summary optional free-text summary
	Summary *string `json:"summary,omitempty"`
	// Tags optional comma separated tags
	Tags *string `json:"tags,omitempty"`
}

// RecordUpdate partial update of a visit record
//
// A nil field is left unchanged.
type RecordUpdate struct {
	PatientName  *string `json:"patient_name,omitempty"`
	PatientID    *string `json:"patient_id,omitempty"`
	VisitDate    *string `json:"visit_date,omitempty"`
	Prescription *string `json:"prescription,omitempty"`
	Subjective   *string `json:"S,omitempty"`
	Objective    *string `json:"O,omitempty"`
	Assessment   *string `json:"A,omitempty"`
	Plan         *string `json:"P,omitempty"`
	Summary      *string `json:"summary,omitempty"`
	Tags         *string `json:"tags,omitempty"`
}

// TouchesNote whether the update changes any field held in the document
func (u RecordUpdate) TouchesNote() bool {
	return u.PatientName != nil ||
		u.PatientID != nil ||
		u.VisitDate != nil ||
		u.Prescription != nil ||
		u.Subjective != nil ||
		u.Objective != nil ||
		u.Assessment != nil ||
		u.Plan != nil
}

// IdentityNoteFields note fields mirrored into the record row
var IdentityNoteFields = []string{"patient_name", "patient_id", "visit_date"}

// TouchedNoteFields field names of the note fields the update changes
func (u RecordUpdate) TouchedNoteFields() []string {
	result := []string{}
	for _, field := range []struct {
		name  string
		value *string
	}{
		{"patient_name", u.PatientName},
		{"patient_id", u.PatientID},
		{"visit_date", u.VisitDate},
		{"prescription", u.Prescription},
		{"S", u.Subjective},
		{"O", u.Objective},
		{"A", u.Assessment},
		{"P", u.Plan},
	} {
		if field.value != nil {
			result = append(result, field.name)
		}
	}
	return result
}

// ApplyTo overlay the update onto a note, returning the merged note
func (u RecordUpdate) ApplyTo(note ClinicalNote) ClinicalNote {
	overlay := func(target *string, value *string) {
		if value != nil {
			*target = *value
		}
	}
	overlay(&note.PatientName, u.PatientName)
	overlay(&note.PatientID, u.PatientID)
	overlay(&note.VisitDate, u.VisitDate)
	overlay(&note.Prescription, u.Prescription)
	overlay(&note.Subjective, u.Subjective)
	overlay(&note.Objective, u.Objective)
	overlay(&note.Assessment, u.Assessment)
	overlay(&note.Plan, u.Plan)
	return note
}

// FieldViolation one violated validation rule of an input field
type FieldViolation struct {
	// Field the input field name
	Field string `json:"field"`
	// Rule the violated rule
	Rule string `json:"rule"`
	// Message human readable description
	Message string `json:"message"`
}
