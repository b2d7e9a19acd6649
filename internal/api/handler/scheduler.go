package handler

import (
	"net/http"

	"github.com/sirupsen/logrus"
)

type SchedulerStatusResponse struct {
	Running     bool   `json:"running"`
	Interval    string `json:"interval"`
	WorkerAlive bool   `json:"worker_alive"`
}

func (h *Handler) SchedulerStatus(w http.ResponseWriter, _ *http.Request) {
	status := h.scheduler.GetStatus()
	writeJSON(w, http.StatusOK, SchedulerStatusResponse{
		Running:     status.Running,
		Interval:    status.Interval.String(),
		WorkerAlive: status.WorkerAlive,
	})
}

func (h *Handler) SchedulerStart(w http.ResponseWriter, _ *http.Request) {
	if err := h.scheduler.Start(); err != nil {
		logrus.WithError(err).Error("Scheduler start failed")
		writeError(w, http.StatusInternalServerError, "could not start the scheduler", "")
		return
	}
	h.SchedulerStatus(w, nil)
}

func (h *Handler) SchedulerStop(w http.ResponseWriter, _ *http.Request) {
	if err := h.scheduler.Stop(); err != nil {
		logrus.WithError(err).Error("Scheduler stop failed")
		writeError(w, http.StatusInternalServerError, "could not stop the scheduler", "")
		return
	}
	h.SchedulerStatus(w, nil)
}
