package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/harrisonrobin/dayboard/pkg/model"
	"github.com/harrisonrobin/dayboard/pkg/service"
)

func (s *Server) listGoals(w http.ResponseWriter, r *http.Request) {
	status := model.GoalStatus(r.URL.Query().Get("status"))
	goals, err := s.svcs.Goals.List(r.Context(), identity(r).UserID, status)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

func (s *Server) createGoal(w http.ResponseWriter, r *http.Request) {
	var in service.GoalInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	goal, err := s.svcs.Goals.Create(r.Context(), identity(r).UserID, in)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, goal)
}

func (s *Server) getGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := s.svcs.Goals.Get(r.Context(), identity(r).UserID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

func (s *Server) updateGoal(w http.ResponseWriter, r *http.Request) {
	var in service.GoalInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	goal, err := s.svcs.Goals.Update(r.Context(), identity(r).UserID, mux.Vars(r)["id"], in)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

func (s *Server) deleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.svcs.Goals.Delete(r.Context(), identity(r).UserID, mux.Vars(r)["id"]); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) completeGoal(w http.ResponseWriter, r *http.Request) {
	done, err := s.svcs.Goals.Complete(r.Context(), identity(r).UserID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, done)
}
