// Copyright (c) 2026 Zaffran Foods. All rights reserved.
// Author: platform@zaffran.shop

// Health check handlers for liveness and readiness probes.

package api

import (
	"log/slog"
	"net/http"

	"github.com/zaffranfoods/zaffran/internal/platform/respond"
)

// ProbeTarget is one backing dependency inspected by the readiness probe.
type ProbeTarget struct {
	Name  string
	Check func() error
}

type healthHandler struct {
	targets []ProbeTarget
	logger  *slog.Logger
}

// NewHealthHandlers creates the /health and /ready http.HandlerFuncs.
// Targets with a nil Check are skipped.
func NewHealthHandlers(logger *slog.Logger, targets ...ProbeTarget) (liveness, readiness http.HandlerFunc) {
	handler := &healthHandler{targets: targets, logger: logger}
	return handler.liveness, handler.readiness
}

// liveness handles GET /health. It only proves the process is serving.
func (handler *healthHandler) liveness(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, map[string]string{"status": "ok"})
}

// readiness handles GET /ready. It pings every probe target and reports
// 503 with per-target detail when any of them is unreachable.
func (handler *healthHandler) readiness(writer http.ResponseWriter, request *http.Request) {
	type probeResult struct {
		Name  string `json:"name"`
		IsOK  bool   `json:"ok"`
		Error string `json:"error,omitempty"`
	}

	results := make([]probeResult, 0, len(handler.targets))
	isSystemReady := true

	for _, target := range handler.targets {
		if target.Check == nil {
			continue
		}

		result := probeResult{Name: target.Name, IsOK: true}
		if err := target.Check(); err != nil {
			result.IsOK = false
			result.Error = err.Error()
			isSystemReady = false
			handler.logger.Error("readiness_check_failed",
				slog.String("dependency", target.Name),
				slog.Any("error", err))
		}
		results = append(results, result)
	}

	status := "ready"
	httpStatus := http.StatusOK
	if !isSystemReady {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	respond.JSON(writer, httpStatus, map[string]any{
		"status": status,
		"checks": results,
	})
}
