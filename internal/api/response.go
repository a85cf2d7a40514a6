package api

import (
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-appointment-core/internal/apperr"
	"github.com/hackgods/clinic-appointment-core/internal/appointment"
	"github.com/hackgods/clinic-appointment-core/internal/clinical"
	"github.com/hackgods/clinic-appointment-core/internal/inventory"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// decodeBody reads a JSON body into dst and validates it. An empty body is
// accepted when optional is set.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if !(optional && errors.Is(err, io.EOF)) {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return false
		}
	}
	if err := validate.Struct(dst); err != nil {
		writeValidationError(w, err)
		return false
	}
	return true
}

func writeValidationError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
		return
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	writeError(w, http.StatusUnprocessableEntity, "validation_failed", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "required", "required_without":
		return field + " is required"
	case "uuid":
		return field + " must be a valid UUID"
	case "datetime":
		return field + " must be a date in " + fe.Param() + " format"
	case "gt", "min":
		return field + " must be at least " + fe.Param()
	case "max", "lte":
		return field + " must be at most " + fe.Param()
	}
	return field + " failed " + fe.Tag() + " check"
}

// errorCodes gives the known domain errors a stable code. The HTTP status
// comes from the error's kind.
var errorCodes = []struct {
	target error
	code   string
}{
	{appointment.ErrPatientNotFound, "patient_not_found"},
	{appointment.ErrPractitionerNotFound, "practitioner_not_found"},
	{appointment.ErrAppointmentNotFound, "appointment_not_found"},
	{appointment.ErrVitalSignsNotFound, "vital_signs_not_found"},
	{appointment.ErrScheduleConflict, "schedule_conflict"},
	{appointment.ErrScheduleBusy, "schedule_busy"},
	{appointment.ErrInvalidTransition, "invalid_status_transition"},
	{appointment.ErrNotEditable, "appointment_not_editable"},
	{appointment.ErrInvalidInput, "invalid_input"},
	{clinical.ErrNotInProgress, "appointment_not_in_progress"},
	{clinical.ErrInvalidCompletion, "invalid_completion"},
	{clinical.ErrHistoryNotFound, "clinical_history_not_found"},
	{inventory.ErrMedicationNotFound, "medication_not_found"},
	{inventory.ErrInsufficientStock, "insufficient_stock"},
	{inventory.ErrInvalidQuantity, "invalid_quantity"},
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindBadRequest:
		return http.StatusBadRequest
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	code := string(kind)
	for _, c := range errorCodes {
		if errors.Is(err, c.target) {
			code = c.code
			break
		}
	}
	writeError(w, statusFor(kind), code, err.Error())
}
