package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/partnerhub/internal/http/response"
	"github.com/partnerhub/internal/jobs"

	"github.com/gin-gonic/gin"
)

// ListJobs 可手动触发的维护任务
func (h *Handler) ListJobs(c *gin.Context) {
	response.Success(c, gin.H{
		"jobs":        h.JobRunner.Names(),
		"async_ready": h.QueueClient.Enabled(),
	})
}

// RunJob 执行维护任务；async=true 且队列启用时投递到队列，否则同步执行
func (h *Handler) RunJob(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if !h.JobRunner.Has(name) {
		respondError(c, response.CodeNotFound, "job not found", nil)
		return
	}
	log := requestLog(c).With("job", name, "admin", getAdminSubject(c))

	async, _ := strconv.ParseBool(c.DefaultQuery("async", "false"))
	if async && h.QueueClient.Enabled() {
		taskID, err := h.QueueClient.EnqueueJob(c.Request.Context(), name, "admin:"+getAdminSubject(c))
		if err != nil {
			log.Errorw("admin_job_enqueue_failed", "error", err)
			respondError(c, response.CodeInternal, "enqueue job failed", err)
			return
		}
		log.Infow("admin_job_enqueued", "task_id", taskID)
		response.Success(c, gin.H{"job": name, "queued": true, "task_id": taskID})
		return
	}

	log.Infow("admin_job_triggered")
	report, err := h.JobRunner.Run(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, jobs.ErrUnknownJob) {
			respondError(c, response.CodeNotFound, "job not found", nil)
			return
		}
		if report != nil {
			log.Warnw("admin_job_failed", "processed", report.Processed, "failed", report.Failed)
		}
		respondServiceError(c, err)
		return
	}
	response.Success(c, report)
}
