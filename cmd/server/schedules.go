package server

import (
	"fmt"
	"net/http"

	"github.com/collector-manager/pkg/errs"
	"github.com/collector-manager/pkg/model"
	"github.com/collector-manager/pkg/service"
	"github.com/collector-manager/pkg/store"
)

type createScheduleRequest struct {
	Name        string            `json:"name"`
	CollectorID string            `json:"collector_id"`
	Schedule    scheduleRequest   `json:"schedule"`
	Filters     map[string]any    `json:"filters"`
	CollectMode model.CollectMode `json:"collect_mode"`
}

type updateScheduleRequest struct {
	Name        *string            `json:"name"`
	CollectorID *string            `json:"collector_id"`
	Schedule    *scheduleRequest   `json:"schedule"`
	Filters     map[string]any     `json:"filters"`
	CollectMode *model.CollectMode `json:"collect_mode"`
}

func (s *Server) createSchedule(w http.ResponseWriter, r *http.Request, domainID string) {
	var req createScheduleRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	spec, err := req.Schedule.toModel()
	if err != nil {
		s.writeError(w, err)
		return
	}
	sched, err := s.svc.CreateSchedule(r.Context(), model.ScheduleParams{
		Name:        req.Name,
		CollectorID: req.CollectorID,
		Schedule:    *spec,
		Filters:     req.Filters,
		CollectMode: req.CollectMode,
		DomainID:    domainID,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sched)
}

func (s *Server) updateSchedule(w http.ResponseWriter, r *http.Request, domainID string) {
	var req updateScheduleRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	spec, err := req.Schedule.toModel()
	if err != nil {
		s.writeError(w, err)
		return
	}
	sched, err := s.svc.UpdateSchedule(r.Context(), r.PathValue("id"), domainID, model.ScheduleUpdate{
		Name:        req.Name,
		CollectorID: req.CollectorID,
		CollectMode: req.CollectMode,
		Schedule:    spec,
		Filters:     req.Filters,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

func (s *Server) getSchedule(w http.ResponseWriter, r *http.Request, domainID string) {
	sched, err := s.svc.GetSchedule(r.Context(), r.PathValue("id"), domainID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	body, err := selectFields(sched, splitList(r.URL.Query().Get("only")))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) deleteSchedule(w http.ResponseWriter, r *http.Request, domainID string) {
	if err := s.svc.DeleteSchedule(r.Context(), r.PathValue("id"), domainID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listSchedules(w http.ResponseWriter, r *http.Request, domainID string) {
	query, err := parseQuery(r, "schedule_id", "name", "collector_id", "collect_mode")
	if err != nil {
		s.writeError(w, err)
		return
	}
	only := query.Only
	query.Only, query.Minimal = nil, false
	results, total, err := s.svc.ListSchedules(r.Context(), domainID, query)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if len(only) == 0 {
		writeJSON(w, http.StatusOK, listResponse[*model.Schedule]{Results: results, TotalCount: total})
		return
	}
	docs, err := selectList(results, only)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[store.Document]{Results: docs, TotalCount: total})
}

func (s *Server) statSchedules(w http.ResponseWriter, r *http.Request, domainID string) {
	query, err := parseQuery(r, "schedule_id", "name", "collector_id", "collect_mode")
	if err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.svc.StatSchedules(r.Context(), domainID, store.StatQuery{
		Filter:  query.Filter,
		GroupBy: r.URL.Query().Get("group_by"),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) runSchedule(w http.ResponseWriter, r *http.Request, domainID string) {
	var req service.CollectRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	p, err := s.svc.RunSchedule(r.Context(), r.PathValue("id"), domainID, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	params := p.Stages[0].Params
	writeJSON(w, http.StatusAccepted, collectResponse{
		CollectorID: params.CollectorID,
		JobID:       params.JobID,
		JobTaskID:   params.JobTaskID,
	})
}

func invalidParam(name, value string) error {
	return errs.New(errs.CodeInvalidArgument, fmt.Sprintf("invalid query parameter %s=%q", name, value))
}
