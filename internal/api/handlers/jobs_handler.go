package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/reelwork/marketplace/internal/api/types"
	"github.com/reelwork/marketplace/internal/services"
)

type JobsHandler struct {
	svc services.JobService
}

func NewJobsHandler(svc services.JobService) *JobsHandler {
	return &JobsHandler{svc: svc}
}

func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	res, err := h.svc.ListJobPosts(r.Context(), services.ListJobPostsInput{
		Status: q.Get("status"),
		Search: q.Get("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.JobPostListResponse{
		JobPosts: res.JobPosts,
		Pagination: types.Pagination{
			Total:      res.Total,
			Page:       res.Page,
			Limit:      res.Limit,
			TotalPages: res.TotalPages,
		},
	})
}

func (h *JobsHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	var req types.JobPostCreateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	deadline, err := time.Parse(time.RFC3339, req.Deadline)
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "Invalid deadline")
		return
	}

	jp, err := h.svc.CreateJobPost(r.Context(), p.UserID, services.CreateJobPostInput{
		Title:           req.Title,
		Description:     req.Description,
		FileFormat:      req.FileFormat,
		Budget:          req.Budget,
		Deadline:        deadline,
		VideoAttachment: req.VideoAttachment,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, jp)
}

func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "Invalid job post ID")
	if !ok {
		return
	}
	jp, err := h.svc.GetJobPost(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jp)
}

func (h *JobsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id", "Invalid job post ID")
	if !ok {
		return
	}
	if err := h.svc.DeleteJobPost(r.Context(), id, p.UserID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.MessageResponse{Message: "Job post deleted successfully"})
}

// Apply checks authentication before it looks at the path.
func (h *JobsHandler) Apply(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id", "Invalid job post ID")
	if !ok {
		return
	}
	var req types.ApplyRequest
	if r.ContentLength != 0 && !decodeAndValidate(w, r, &req) {
		return
	}

	ja, err := h.svc.Apply(r.Context(), id, p.UserID, req.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ja)
}

func (h *JobsHandler) Close(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id", "Invalid job post ID")
	if !ok {
		return
	}
	jp, err := h.svc.CloseJobPost(r.Context(), id, p.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jp)
}

func (h *JobsHandler) Applications(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id", "Invalid job post ID")
	if !ok {
		return
	}
	apps, err := h.svc.ListApplications(r.Context(), id, p.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}
