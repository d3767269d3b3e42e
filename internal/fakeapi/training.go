package fakeapi

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-pkgz/rest"

	"github.com/dmitrijs2005/trainctl/internal/client/dataset"
	"github.com/dmitrijs2005/trainctl/internal/client/models"
)

func (s *Server) handleStartTraining(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r)

	var in models.TrainingRequest
	if err := rest.DecodeJSON(r, &in); err != nil {
		writeValidation(w, "body", "JSON decode error")
		return
	}

	if in.CSVFile == "" {
		if _, ok := in.Parameters["data"]; !ok {
			writeDetail(w, http.StatusBadRequest, DetailNoData)
			return
		}
	} else if _, err := dataset.Header([]byte(in.CSVFile)); err != nil {
		writeDetail(w, http.StatusBadRequest, DetailInvalidCSV)
		return
	}

	now := s.stamp()

	s.mu.Lock()
	s.nextJobID++
	var version int64 = 1
	for _, j := range s.jobs {
		if j.UserID == u.id {
			version++
		}
	}
	job := &models.Job{
		ID:           s.nextJobID,
		UserID:       u.id,
		ModelVersion: version,
		Status:       models.JobStatusRunning,
		Parameters:   in.Parameters,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.jobs[job.ID] = job
	out := *job
	s.mu.Unlock()

	s.log.Info(r.Context(), "training started", "job_id", job.ID, "user", u.email)
	rest.EncodeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTraining(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r)
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeValidation(w, "training_id", "Input should be a valid integer")
		return
	}

	s.mu.Lock()
	job, ok := s.jobs[id]
	var out models.Job
	if ok {
		out = *job
	}
	s.mu.Unlock()

	if !ok || out.UserID != u.id {
		writeDetail(w, http.StatusNotFound, DetailNotFound)
		return
	}
	rest.EncodeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	jobs := s.jobsOf(userFrom(r))

	sum := models.Summary{Count: len(jobs)}
	completed := 0
	for _, j := range jobs {
		if j.Status == models.JobStatusCompleted {
			completed++
		}
	}
	if len(jobs) > 0 {
		sum.LastTraining = jobs[0].CreatedAt
		sum.SuccessRate = float64(completed) / float64(len(jobs)) * 100
	}
	rest.EncodeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	rest.EncodeJSON(w, http.StatusOK, s.jobsOf(userFrom(r)))
}

// jobsOf lists the jobs of u, newest first.
func (s *Server) jobsOf(u *user) []models.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]models.Job, 0)
	for _, j := range s.jobs {
		if j.UserID == u.id {
			jobs = append(jobs, *j)
		}
	}
	slices.SortFunc(jobs, func(a, b models.Job) int {
		if c := b.CreatedAt.Compare(a.CreatedAt.Time); c != 0 {
			return c
		}
		return int(b.ID - a.ID)
	})
	return jobs
}

// complete marks job id as finished.
func (s *Server) complete(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok || job.Status != models.JobStatusRunning {
		return
	}
	job.Status = models.JobStatusCompleted
	job.Results = map[string]any{"accuracy": 0.93, "target_column": strings.TrimSpace(asString(job.Parameters["target_column"]))}
	job.UpdatedAt = s.stamp()
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
