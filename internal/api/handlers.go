package api

import (
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-core/internal/appointment"
	"github.com/hackgods/clinic-appointment-core/internal/clinical"
)

func createAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if !decodeBody(w, r, &req, false) {
			return
		}

		in, err := req.toInput()
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		appt, err := svc.CreateAppointment(r.Context(), actorFrom(r.Context()), in)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, appt)
	}
}

func listAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, ok := parseFilter(w, r)
		if !ok {
			return
		}

		page, err := svc.ListAppointments(r.Context(), f)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, AppointmentListResponse{
			Items:  page.Items,
			Total:  page.Total,
			Limit:  page.Limit,
			Offset: page.Offset,
		})
	}
}

func parseFilter(w http.ResponseWriter, r *http.Request) (appointment.Filter, bool) {
	q := r.URL.Query()
	var f appointment.Filter

	for name, dst := range map[string]**uuid.UUID{
		"patient_id":      &f.PatientID,
		"practitioner_id": &f.PractitionerID,
	} {
		if v := q.Get(name); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
				return f, false
			}
			*dst = &id
		}
	}

	if v := q.Get("status"); v != "" {
		st, err := appointment.ParseStatus(v)
		if err != nil {
			writeServiceError(w, r, err)
			return f, false
		}
		f.Status = &st
	}

	for name, dst := range map[string]**time.Time{
		"date_from": &f.DateFrom,
		"date_to":   &f.DateTo,
	} {
		if v := q.Get(name); v != "" {
			d, err := parseDate(name, v)
			if err != nil {
				writeServiceError(w, r, err)
				return f, false
			}
			*dst = &d
		}
	}

	for name, dst := range map[string]*int{"limit": &f.Limit, "offset": &f.Offset} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a non-negative integer")
				return f, false
			}
			*dst = n
		}
	}
	return f, true
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		detail, err := svc.GetAppointmentDetail(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	}
}

func editAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		var req EditAppointmentRequest
		if !decodeBody(w, r, &req, false) {
			return
		}
		in, err := req.toInput()
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		appt, err := svc.EditAppointment(r.Context(), actorFrom(r.Context()), id, in)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func deleteAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		if err := svc.DeleteAppointment(r.Context(), actorFrom(r.Context()), id); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func cancelAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		var req NotesRequest
		if !decodeBody(w, r, &req, true) {
			return
		}

		appt, err := svc.CancelAppointment(r.Context(), actorFrom(r.Context()), id, req.Notes)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func checkInHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		var req VitalsRequest
		if !decodeBody(w, r, &req, true) {
			return
		}
		in := req.toInput()

		appt, vitals, err := svc.CheckIn(r.Context(), actorFrom(r.Context()), id, &in)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, CheckInResponse{Appointment: appt, VitalSigns: vitals})
	}
}

type transitionFunc func(svc *appointment.Service, r *http.Request, id uuid.UUID) (*appointment.Appointment, error)

// transitionHandler serves the body-less status moves.
func transitionHandler(svc *appointment.Service, move transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		appt, err := move(svc, r, id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func startConsultation(svc *appointment.Service, r *http.Request, id uuid.UUID) (*appointment.Appointment, error) {
	return svc.StartConsultation(r.Context(), actorFrom(r.Context()), id)
}

func markReady(svc *appointment.Service, r *http.Request, id uuid.UUID) (*appointment.Appointment, error) {
	return svc.MarkReady(r.Context(), actorFrom(r.Context()), id)
}

func completeAppointment(svc *appointment.Service, r *http.Request, id uuid.UUID) (*appointment.Appointment, error) {
	return svc.CompleteAppointment(r.Context(), actorFrom(r.Context()), id)
}

func markNoShow(svc *appointment.Service, r *http.Request, id uuid.UUID) (*appointment.Appointment, error) {
	return svc.MarkNoShow(r.Context(), actorFrom(r.Context()), id)
}

func getVitalsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		v, err := svc.GetVitals(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// updateVitalsHandler applies a patch: absent fields stay, null clears.
func updateVitalsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		var patch appointment.VitalsPatch
		if !decodeBody(w, r, &patch, false) {
			return
		}

		v, err := svc.UpdateVitals(r.Context(), actorFrom(r.Context()), id, patch)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func completeConsultationHandler(svc *clinical.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		var req CompletionRequest
		if !decodeBody(w, r, &req, false) {
			return
		}
		in, err := req.toInput()
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		bundle, err := svc.Complete(r.Context(), actorFrom(r.Context()), id, in)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, bundle)
	}
}

func getCompletionHandler(svc *clinical.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		bundle, err := svc.GetBundle(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, bundle)
	}
}

func listSlotsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		practitionerID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "id must be a valid UUID")
			return
		}

		raw := r.URL.Query().Get("date")
		if raw == "" {
			writeError(w, http.StatusBadRequest, "missing_date", "date query parameter is required")
			return
		}
		date, err := parseDate("date", raw)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		slots, err := svc.AvailableSlots(r.Context(), practitionerID, date)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		resp := SlotsResponse{
			PractitionerID: practitionerID,
			Date:           date.Format(time.DateOnly),
			Slots:          slices.Collect(slots),
		}
		if resp.Slots == nil {
			resp.Slots = []appointment.Slot{}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func appointmentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}
