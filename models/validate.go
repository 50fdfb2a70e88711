package models

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// patientIDPattern allowed characters of a patient ID
var patientIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

/*
RegisterWithValidator register with the validator this custom validation support

	@param v *validator.Validate - the validator to register against
	@return whether successful
*/
func RegisterWithValidator(v *validator.Validate) error {
	if err := v.RegisterValidation(
		"patient_id", validatePatientID,
	); err != nil {
		return err
	}

	if err := v.RegisterValidation(
		"system_state", validateSystemStateType,
	); err != nil {
		return err
	}

	if err := v.RegisterValidation(
		"system_event_type", validateSystemEventType,
	); err != nil {
		return err
	}

	return nil
}

/*
NewValidator define a validator with the custom validation support installed

Field errors are reported under the JSON name of the field when it has one.

	@return the validator
*/
func NewValidator() (*validator.Validate, error) {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := RegisterWithValidator(v); err != nil {
		return nil, fmt.Errorf("failed to install custom validation macros [%w]", err)
	}
	return v, nil
}

/*
ToFieldViolations convert a validation error into the list of violated field rules

	@param err error - error returned by the validator
	@return the violations, or nil if the error is not a field validation error
*/
func ToFieldViolations(err error) []FieldViolation {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil
	}
	result := make([]FieldViolation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		result = append(result, FieldViolation{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Message: describeViolation(fe),
		})
	}
	return result
}

func describeViolation(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "patient_id":
		return fmt.Sprintf(
			"%s may only contain letters, digits, hyphen, and underscore", fe.Field(),
		)
	case "datetime":
		return fmt.Sprintf("%s must be a date formatted as YYYY-MM-DD", fe.Field())
	}
	return fmt.Sprintf("%s failed rule '%s'", fe.Field(), fe.Tag())
}

func validatePatientID(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	return patientIDPattern.MatchString(fl.Field().String())
}

func validateSystemStateType(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	switch SystemStateENUMType(fl.Field().String()) {
	case SystemStatePreInit:
		fallthrough
	case SystemStateInit:
		fallthrough
	case SystemStateRunning:
		return true
	}
	return false
}

func validateSystemEventType(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	switch SystemEventTypeENUMType(fl.Field().String()) {
	case SystemEventTypeInitializing:
		fallthrough
	case SystemEventTypeInitialized:
		fallthrough
	case SystemEventTypeAddNewRecord:
		fallthrough
	case SystemEventTypeUpdateRecord:
		fallthrough
	case SystemEventTypeDeleteRecord:
		return true
	}
	return false
}
