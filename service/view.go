package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/alwitt/karte/document"
	"github.com/alwitt/karte/models"
	"github.com/alwitt/karte/storage"
	"github.com/apex/log"
)

// DocumentStatus presentation status of the document of a record
type DocumentStatus string

const (
	// DocumentStatusOK the document was read and decoded
	DocumentStatusOK DocumentStatus = "ok"
	// DocumentStatusCorrupt the document exists but has no well-formed metadata block
	DocumentStatusCorrupt DocumentStatus = "corrupt_document"
	// DocumentStatusMissing no document exists at the record's document path
	DocumentStatusMissing DocumentStatus = "missing_document"
	// DocumentStatusUnreadable the document store failed to read the document
	DocumentStatusUnreadable DocumentStatus = "unreadable_document"
	// DocumentStatusMismatched the document's patient or visit date disagree with the row
	DocumentStatusMismatched DocumentStatus = "mismatched_document"
)

// RecordView a visit record merged with what its document shows
type RecordView struct {
	// Record the record row
	Record models.Record `json:"record"`
	// Status presentation status of the document
	Status DocumentStatus `json:"status"`
	// Summary one line summary, "<visit_date> | <patient_name>"
	Summary string `json:"summary"`
	// Warning describes the document problem when Status is not ok
	Warning string `json:"warning,omitempty"`
	// Note the structured fields decoded from the document
	Note *models.ClinicalNote `json:"note,omitempty"`
	// MissingKeys metadata keys absent from the document
	MissingKeys []string `json:"missing_keys,omitempty"`
	// Body the document body, verbatim
	Body string `json:"body,omitempty"`
	// Layout the recognized body layout
	Layout document.Layout `json:"layout,omitempty"`
	// RenderedBody the document body rendered as HTML
	RenderedBody string `json:"rendered_body,omitempty"`
}

func summaryLine(visitDate, patientName string) string {
	return fmt.Sprintf("%s | %s", visitDate, patientName)
}

// presentRecord read and decode the document of a record
//
// Document problems are reported through the view status, never as an error.
func (s *recordServiceImpl) presentRecord(ctx context.Context, record models.Record) RecordView {
	logTags := s.GetLogTagsForContext(ctx)
	view := RecordView{
		Record:  record,
		Status:  DocumentStatusOK,
		Summary: summaryLine(record.VisitDate, record.PatientName),
	}
	defer func() {
		s.metrics.DocumentStatus(view.Status).Inc()
	}()

	content, err := s.documents.Read(ctx, record.DocumentPath)
	if err != nil {
		if errors.Is(err, storage.ErrDocumentNotFound) {
			view.Status = DocumentStatusMissing
			view.Warning = fmt.Sprintf("document missing at %s", record.DocumentPath)
		} else {
			view.Status = DocumentStatusUnreadable
			view.Warning = fmt.Sprintf("document at %s could not be read", record.DocumentPath)
		}
		log.WithError(err).
			WithFields(logTags).
			WithField("record_id", record.ID).
			WithField("location", record.DocumentPath).
			Warn("Record document not available")
		return view
	}

	parsed, err := document.Decode(content)
	if err != nil {
		view.Status = DocumentStatusCorrupt
		view.Warning = fmt.Sprintf("document at %s is corrupt: %s", record.DocumentPath, err.Error())
		log.WithError(err).
			WithFields(logTags).
			WithField("record_id", record.ID).
			WithField("location", record.DocumentPath).
			Warn("Record document is corrupt")
		return view
	}

	view.Note = &parsed.Note
	view.MissingKeys = parsed.Missing
	view.Body = parsed.Body
	view.Layout = parsed.Layout
	view.Summary = summaryLine(parsed.Note.VisitDate, parsed.Note.PatientName)

	rendered, err := document.RenderHTML(parsed.Body)
	if err != nil {
		log.WithError(err).
			WithFields(logTags).
			WithField("record_id", record.ID).
			Warn("Failed to render record document body")
	} else {
		view.RenderedBody = rendered
	}

	if parsed.Note.PatientName != record.PatientName ||
		parsed.Note.PatientID != record.PatientID ||
		parsed.Note.VisitDate != record.VisitDate {
		view.Status = DocumentStatusMismatched
		view.Warning = fmt.Sprintf(
			"document at %s disagrees with the record on patient or visit date",
			record.DocumentPath,
		)
		log.WithFields(logTags).
			WithField("record_id", record.ID).
			WithField("location", record.DocumentPath).
			Warn("Record document does not match the record")
	}

	return view
}
