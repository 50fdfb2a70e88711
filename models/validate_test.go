package models_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/alwitt/karte/models"
	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
)

func TestClinicalNoteValidation(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	validate, err := models.NewValidator()
	assert.Nil(err)

	valid := models.ClinicalNote{
		PatientName:  strings.Repeat("名", 50),
		PatientID:    "P-001_a",
		VisitDate:    "2024-02-29",
		Prescription: "なし",
		Subjective:   "s",
		Objective:    "o",
		Assessment:   "a",
		Plan:         "p",
	}

	// Case 0: valid note
	assert.Nil(validate.Struct(&valid))

	// Case 1: every violation is reported under its JSON name
	{
		note := models.ClinicalNote{
			PatientName: strings.Repeat("名", 51),
			PatientID:   "P 001",
			VisitDate:   "2024-02-30",
		}
		violations := models.ToFieldViolations(validate.Struct(&note))
		byField := map[string]models.FieldViolation{}
		for _, violation := range violations {
			byField[violation.Field] = violation
		}
		assert.Len(violations, 8)
		assert.Equal("max", byField["patient_name"].Rule)
		assert.Equal("patient_id", byField["patient_id"].Rule)
		assert.Equal("datetime", byField["visit_date"].Rule)
		for _, field := range []string{"prescription", "S", "O", "A", "P"} {
			assert.Equal("required", byField[field].Rule, field)
			assert.Equal(field+" is required", byField[field].Message)
		}
	}

	// Case 2: patient ID character set
	for _, patientID := range []string{"P/001", "患者1", "P.001", ""} {
		note := valid
		note.PatientID = patientID
		assert.NotNil(validate.Struct(&note), patientID)
	}
}

func TestToFieldViolationsIgnoresOtherErrors(t *testing.T) {
	assert := assert.New(t)
	assert.Nil(models.ToFieldViolations(nil))
	assert.Nil(models.ToFieldViolations(errors.New("not a field error")))
}

func TestSystemStateTransitions(t *testing.T) {
	assert := assert.New(t)

	params := models.SystemParams{State: models.SystemStatePreInit}
	assert.Nil(params.ValidateNextState(models.SystemStateInit))
	assert.NotNil(params.ValidateNextState(models.SystemStateRunning))

	params.State = models.SystemStateInit
	assert.Nil(params.ValidateNextState(models.SystemStateRunning))

	params.State = models.SystemStateRunning
	assert.NotNil(params.ValidateNextState(models.SystemStatePreInit))
}

func TestRecordUpdateTouchedNoteFields(t *testing.T) {
	assert := assert.New(t)

	assert.Empty(models.RecordUpdate{}.TouchedNoteFields())

	plan := "経過観察"
	patientID := "p-1"
	summary := "summary only"
	update := models.RecordUpdate{Plan: &plan, PatientID: &patientID, Summary: &summary}
	assert.Equal([]string{"patient_id", "P"}, update.TouchedNoteFields())
	assert.True(update.TouchesNote())
	assert.False(models.RecordUpdate{Summary: &summary}.TouchesNote())
}
