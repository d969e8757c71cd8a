package server

import (
	"net/http"
	"time"

	"github.com/harrisonrobin/dayboard/pkg/apperr"
)

const defaultCalendarSpan = 7 * 24 * time.Hour

func (s *Server) dailySchedule(w http.ResponseWriter, r *http.Request) {
	loc := s.svcs.Schedule.Location()
	day, ok, err := queryTime(r, "date", loc)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if !ok {
		day = s.now().In(loc)
	}
	plan, err := s.svcs.Schedule.Daily(r.Context(), identity(r).UserID, day)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) calendarEntries(w http.ResponseWriter, r *http.Request) {
	loc := s.svcs.Schedule.Location()
	from, ok, err := queryTime(r, "from", loc)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if !ok {
		y, m, d := s.now().In(loc).Date()
		from = time.Date(y, m, d, 0, 0, 0, 0, loc)
	}
	to, ok, err := queryTime(r, "to", loc)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if !ok {
		to = from.Add(defaultCalendarSpan)
	}

	entries, err := s.svcs.Calendar.Entries(r.Context(), identity(r).UserID, from, to)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// calendarSync mirrors the calendar owner's tasks. Only the owner or an admin
// may trigger it.
func (s *Server) calendarSync(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	if id.UserID != s.svcs.Calendar.Owner() && !id.IsAdmin() {
		writeError(w, r, s.log, apperr.Forbidden("only the calendar owner can sync"))
		return
	}
	report, err := s.svcs.Calendar.Sync(r.Context())
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type energyRequest struct {
	Points int    `json:"points"`
	Note   string `json:"note"`
}

func (s *Server) energySummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svcs.Energy.Summary(r.Context(), identity(r).UserID)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) addEnergy(w http.ResponseWriter, r *http.Request) {
	var req energyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	entry, err := s.svcs.Energy.Add(r.Context(), identity(r).UserID, req.Points, req.Note)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) energyHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	entries, err := s.svcs.Energy.History(r.Context(), identity(r).UserID, limit)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
