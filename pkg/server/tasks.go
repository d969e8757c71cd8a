package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/harrisonrobin/dayboard/pkg/logger"
	"github.com/harrisonrobin/dayboard/pkg/model"
	"github.com/harrisonrobin/dayboard/pkg/service"
	"github.com/harrisonrobin/dayboard/pkg/store"
)

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.TaskFilter{
		UserID: identity(r).UserID,
		Status: model.TaskStatus(q.Get("status")),
		GoalID: q.Get("goal_id"),
		Tag:    q.Get("tag"),
	}
	due, ok, err := queryTime(r, "due_before", s.svcs.Schedule.Location())
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if ok {
		f.DueBefore = &due
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	f.Limit = store.Limit(limit)

	tasks, err := s.svcs.Tasks.List(r.Context(), f)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var in service.TaskInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	task, err := s.svcs.Tasks.Create(r.Context(), identity(r).UserID, in)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.svcs.Tasks.Get(r.Context(), identity(r).UserID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	var in service.TaskInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	task, err := s.svcs.Tasks.Update(r.Context(), identity(r).UserID, mux.Vars(r)["id"], in)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	userID, id := identity(r).UserID, mux.Vars(r)["id"]
	if err := s.svcs.Tasks.Delete(r.Context(), userID, id); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if s.svcs.Calendar.Configured() && userID == s.svcs.Calendar.Owner() {
		if err := s.svcs.Calendar.Forget(r.Context(), id); err != nil {
			logger.FromContext(r.Context(), s.log).WithError(err).WithField("task_id", id).Warn("could not remove calendar event")
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) completeTask(w http.ResponseWriter, r *http.Request) {
	done, err := s.svcs.Tasks.Complete(r.Context(), identity(r).UserID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, done)
}
