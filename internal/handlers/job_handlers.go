package handlers

import (
	"errors"
	"net/http"

	"mailroom/internal/common"
	"mailroom/internal/jobs/background"

	"github.com/labstack/echo/v4"
)

// JobController is the part of the job scheduler exposed to admins.
type JobController interface {
	GetJobStatus() map[string]interface{}
	RunNow(name string) error
}

type JobHandlers struct {
	jobs JobController
}

func NewJobHandlers(jobs JobController) *JobHandlers {
	return &JobHandlers{jobs: jobs}
}

// ListJobs handles GET /admin/jobs
func (h *JobHandlers) ListJobs(c echo.Context) error {
	return c.JSON(http.StatusOK, h.jobs.GetJobStatus())
}

// RunJob handles POST /admin/jobs/:name/run
func (h *JobHandlers) RunJob(c echo.Context) error {
	name := c.Param("name")
	if err := h.jobs.RunNow(name); err != nil {
		if errors.Is(err, background.ErrUnknownJob) {
			return common.NewNotFoundError("job").WithDetail("name", name)
		}
		return common.NewUnexpectedError("run job", err)
	}
	return c.JSON(http.StatusAccepted, map[string]string{"job": name, "status": "triggered"})
}
