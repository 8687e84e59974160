package server

import (
	"net/http"

	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

type healthResponse struct {
	Status         string  `json:"status"`
	Load1          float64 `json:"load1"`
	Load5          float64 `json:"load5"`
	Load15         float64 `json:"load15"`
	MemUsedPercent float64 `json:"mem_used_percent"`
}

// handleHealth 健康检查，附带主机负载与内存，取数失败不影响状态
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if avg, err := load.AvgWithContext(r.Context()); err == nil {
		resp.Load1, resp.Load5, resp.Load15 = avg.Load1, avg.Load5, avg.Load15
	} else {
		s.logger.Debug("read load average failed", zap.Error(err))
	}
	if vm, err := mem.VirtualMemoryWithContext(r.Context()); err == nil {
		resp.MemUsedPercent = vm.UsedPercent
	} else {
		s.logger.Debug("read virtual memory failed", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, resp)
}

const indexHTML = `<!DOCTYPE html>
<html lang="zh-CN">
<head>
	<meta charset="UTF-8">
	<title>Collector Manager</title>
	<style>
		body { font-family: Arial, sans-serif; margin: 40px; }
		h1 { color: #333; }
		a { display: block; margin: 8px 0; font-size: 18px; }
	</style>
</head>
<body>
	<h1>Collector Manager Service</h1>
	<p>Service is running.</p>
	<h2>Available Endpoints:</h2>
	<a href="/health">/health - 健康检查</a>
	<a href="/metrics">/metrics - Prometheus 指标暴露</a>
	<p>/collectors, /schedules - 采集器与调度管理（需要 X-Domain-Id 请求头）</p>
</body>
</html>
`

// handleIndex 根路径显示 HTML 页面
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(indexHTML))
}
