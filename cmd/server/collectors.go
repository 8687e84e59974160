package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/collector-manager/pkg/model"
	"github.com/collector-manager/pkg/service"
	"github.com/collector-manager/pkg/store"
)

type pluginInfoRequest struct {
	PluginID     string            `json:"plugin_id"`
	Version      string            `json:"version"`
	Options      map[string]any    `json:"options"`
	Metadata     map[string]any    `json:"metadata"`
	UpgradeMode  model.UpgradeMode `json:"upgrade_mode"`
	SecretFilter map[string]any    `json:"secret_filter"`
}

func (p *pluginInfoRequest) toModel() (*model.PluginInfo, error) {
	if p == nil {
		return nil, nil
	}
	info, err := model.NewPluginInfo(p.PluginID, p.Version, p.UpgradeMode, p.Options, p.Metadata, p.SecretFilter)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

type scheduleRequest struct {
	Cron     string `json:"cron"`
	Interval int    `json:"interval"`
	Minutes  []int  `json:"minutes"`
	Hours    []int  `json:"hours"`
}

func (s *scheduleRequest) toModel() (*model.ScheduleSpec, error) {
	if s == nil {
		return nil, nil
	}
	spec, err := model.NewScheduleSpec(s.Cron, s.Interval, s.Minutes, s.Hours)
	if err != nil {
		return nil, err
	}
	return &spec, nil
}

type createCollectorRequest struct {
	Name       string             `json:"name"`
	Provider   string             `json:"provider"`
	Capability map[string]any     `json:"capability"`
	PluginInfo *pluginInfoRequest `json:"plugin_info"`
	Schedule   *scheduleRequest   `json:"schedule"`
	State      model.State        `json:"state"`
	Priority   *int               `json:"priority"`
	Tags       map[string]any     `json:"tags"`
}

type updateCollectorRequest struct {
	Name          *string            `json:"name"`
	PluginInfo    *pluginInfoRequest `json:"plugin_info"`
	Schedule      *scheduleRequest   `json:"schedule"`
	ClearSchedule bool               `json:"clear_schedule"`
	Priority      *int               `json:"priority"`
	Tags          map[string]any     `json:"tags"`
}

type listResponse[T any] struct {
	Results    []T `json:"results"`
	TotalCount int `json:"total_count"`
}

type collectResponse struct {
	CollectorID string `json:"collector_id"`
	JobID       string `json:"job_id"`
	JobTaskID   string `json:"job_task_id"`
}

func (s *Server) createCollector(w http.ResponseWriter, r *http.Request, domainID string) {
	var req createCollectorRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	info, err := req.PluginInfo.toModel()
	if err != nil {
		s.writeError(w, err)
		return
	}
	spec, err := req.Schedule.toModel()
	if err != nil {
		s.writeError(w, err)
		return
	}
	c, err := s.svc.CreateCollector(r.Context(), model.CollectorParams{
		Name:       req.Name,
		Provider:   req.Provider,
		Capability: req.Capability,
		PluginInfo: info,
		Schedule:   spec,
		State:      req.State,
		Priority:   req.Priority,
		Tags:       req.Tags,
		DomainID:   domainID,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) updateCollector(w http.ResponseWriter, r *http.Request, domainID string) {
	var req updateCollectorRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	info, err := req.PluginInfo.toModel()
	if err != nil {
		s.writeError(w, err)
		return
	}
	spec, err := req.Schedule.toModel()
	if err != nil {
		s.writeError(w, err)
		return
	}
	c, err := s.svc.UpdateCollector(r.Context(), r.PathValue("id"), domainID, model.CollectorUpdate{
		Name:          req.Name,
		PluginInfo:    info,
		Schedule:      spec,
		ClearSchedule: req.ClearSchedule,
		Priority:      req.Priority,
		Tags:          req.Tags,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) getCollector(w http.ResponseWriter, r *http.Request, domainID string) {
	c, err := s.svc.GetCollector(r.Context(), r.PathValue("id"), domainID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	body, err := selectFields(c, splitList(r.URL.Query().Get("only")))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) deleteCollector(w http.ResponseWriter, r *http.Request, domainID string) {
	if err := s.svc.DeleteCollector(r.Context(), r.PathValue("id"), domainID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) enableCollector(w http.ResponseWriter, r *http.Request, domainID string) {
	c, err := s.svc.EnableCollector(r.Context(), r.PathValue("id"), domainID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) disableCollector(w http.ResponseWriter, r *http.Request, domainID string) {
	c, err := s.svc.DisableCollector(r.Context(), r.PathValue("id"), domainID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) listCollectors(w http.ResponseWriter, r *http.Request, domainID string) {
	query, err := parseQuery(r, "collector_id", "name", "state", "provider", "plugin_id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	only := query.Only
	if len(only) == 0 && query.Minimal {
		only = model.CollectorMinimalFields
	}
	query.Only, query.Minimal = nil, false
	results, total, err := s.svc.ListCollectors(r.Context(), domainID, query)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if len(only) == 0 {
		writeJSON(w, http.StatusOK, listResponse[*model.Collector]{Results: results, TotalCount: total})
		return
	}
	docs, err := selectList(results, only)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[store.Document]{Results: docs, TotalCount: total})
}

func (s *Server) statCollectors(w http.ResponseWriter, r *http.Request, domainID string) {
	query, err := parseQuery(r, "collector_id", "name", "state", "provider", "plugin_id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.svc.StatCollectors(r.Context(), domainID, store.StatQuery{
		Filter:  query.Filter,
		GroupBy: r.URL.Query().Get("group_by"),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) collect(w http.ResponseWriter, r *http.Request, domainID string) {
	var req service.CollectRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	p, err := s.svc.Collect(r.Context(), r.PathValue("id"), domainID, req)
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

func (s *Server) completeCollection(w http.ResponseWriter, r *http.Request, domainID string) {
	c, err := s.svc.CompleteCollection(r.Context(), r.PathValue("id"), domainID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// parseQuery 把 URL 参数转换为查询，filterKeys 中的参数作为 eq 条件
// 支持 page / limit / sort（前缀 - 表示降序）/ only / minimal
func parseQuery(r *http.Request, filterKeys ...string) (store.Query, error) {
	values := r.URL.Query()
	var q store.Query
	for _, key := range filterKeys {
		if v := values.Get(key); v != "" {
			q.Filter = append(q.Filter, store.Condition{Key: key, Value: v, Operator: store.OpEq})
		}
	}
	if limit := values.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return q, invalidParam("limit", limit)
		}
		start := 1
		if page := values.Get("page"); page != "" {
			if start, err = strconv.Atoi(page); err != nil || start < 1 {
				return q, invalidParam("page", page)
			}
		}
		q.Page = &store.Page{Start: start, Limit: n}
	}
	if sort := values.Get("sort"); sort != "" {
		q.Sort = &store.Sort{Key: strings.TrimPrefix(sort, "-"), Desc: strings.HasPrefix(sort, "-")}
	}
	q.Only = splitList(values.Get("only"))
	q.Minimal = values.Get("minimal") == "true"
	return q, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
