package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/collector-manager/pkg/errs"
	"github.com/collector-manager/pkg/store"
)

const domainHeader = "X-Domain-Id"

// withDomain 所有业务接口必须携带租户头
func (s *Server) withDomain(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		domainID := r.Header.Get(domainHeader)
		if domainID == "" {
			s.writeError(w, errs.Newf(errs.CodeInvalidArgument, "header %s is required", domainHeader))
			return
		}
		next(w, r, domainID)
	}
}

type errorBody struct {
	Code    errs.ErrorCode `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func statusOf(code errs.ErrorCode) int {
	switch code {
	case errs.CodeNotFound:
		return http.StatusNotFound
	case errs.CodeInvalidArgument, errs.CodeUnsupportedSchedule:
		return http.StatusBadRequest
	case errs.CodeCollectorDisabled:
		return http.StatusConflict
	case errs.CodeConfigurationMissing:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var e *errs.Error
	if !errors.As(err, &e) {
		s.logger.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Code: "INTERNAL", Message: err.Error()})
		return
	}
	status := statusOf(e.Code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("code", string(e.Code)), zap.Error(err))
	}
	writeJSON(w, status, errorBody{Code: e.Code, Message: e.Error(), Details: e.Context})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeBody 解析请求体，空请求体保持零值
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errs.Wrap(errs.CodeInvalidArgument, "invalid request body", err)
	}
	return nil
}

// selectFields only 不为空时把实体转为只含这些字段的文档
func selectFields(v any, only []string) (any, error) {
	if len(only) == 0 {
		return v, nil
	}
	doc, err := store.ToDocument(v)
	if err != nil {
		return nil, err
	}
	return doc.Select(only), nil
}

func selectList[T any](items []T, only []string) ([]store.Document, error) {
	out := make([]store.Document, 0, len(items))
	for _, item := range items {
		doc, err := store.ToDocument(item)
		if err != nil {
			return nil, err
		}
		out = append(out, doc.Select(only))
	}
	return out, nil
}
