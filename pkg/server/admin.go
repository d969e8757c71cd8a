package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/harrisonrobin/dayboard/pkg/model"
	"github.com/harrisonrobin/dayboard/pkg/service"
	"github.com/harrisonrobin/dayboard/pkg/store"
)

func (s *Server) listEmails(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.EmailFilter{
		Status:   model.EmailStatus(q.Get("status")),
		Category: model.Category(q.Get("category")),
		From:     q.Get("from"),
	}
	var err error
	if f.Limit, err = queryInt(r, "limit"); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	emails, err := s.svcs.Inbox.List(r.Context(), f)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, emails)
}

func (s *Server) receiveEmail(w http.ResponseWriter, r *http.Request) {
	var in service.EmailInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	email, err := s.svcs.Inbox.Receive(r.Context(), in)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, email)
}

func (s *Server) getEmail(w http.ResponseWriter, r *http.Request) {
	email, err := s.svcs.Inbox.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, email)
}

type emailStatusRequest struct {
	Status model.EmailStatus `json:"status"`
}

func (s *Server) updateEmail(w http.ResponseWriter, r *http.Request) {
	var req emailStatusRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	email, err := s.svcs.Inbox.UpdateStatus(r.Context(), mux.Vars(r)["id"], req.Status)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, email)
}

func (s *Server) deleteEmail(w http.ResponseWriter, r *http.Request) {
	if err := s.svcs.Inbox.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type draftRequest struct {
	EmailID string `json:"email_id"`
	Tone    string `json:"tone"`
}

type draftResponse struct {
	EmailID string       `json:"email_id"`
	Draft   string       `json:"draft"`
	Email   *model.Email `json:"email"`
}

func (s *Server) generateDraft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	email, err := s.svcs.Inbox.GenerateDraft(r.Context(), req.EmailID, req.Tone)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, draftResponse{EmailID: email.ID, Draft: email.Draft, Email: email})
}

func (s *Server) sendEmail(w http.ResponseWriter, r *http.Request) {
	var in service.SendInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	email, err := s.svcs.Inbox.Send(r.Context(), in)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, email)
}

func (s *Server) listCustomers(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	customers, err := s.svcs.Inbox.Customers(r.Context(), limit)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (s *Server) getCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := s.svcs.Inbox.Customer(r.Context(), mux.Vars(r)["email"])
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}
