package web

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"maintlog/store"
)

// filterRequest mirrors the saved-filter JSON, so a stored filter can
// be replayed directly against the search endpoint.
type filterRequest struct {
	DateFrom     string   `json:"date_from"`
	DateTo       string   `json:"date_to"`
	RecentDays   int      `json:"recent_days"`
	JobType      string   `json:"job_type"`
	Department   string   `json:"department"`
	WONumber     string   `json:"wo_number"`
	PermitNumber string   `json:"permit_number"`
	Keyword      string   `json:"keyword"`
	ActualStart  string   `json:"actual_start"`
	Tags         []string `json:"tags"`
	FatherTags   []string `json:"father_tags"`
	Units        []string `json:"units"`
	Trains       []string `json:"trains"`
}

func (f filterRequest) toFilter() store.JobFilter {
	return store.JobFilter{
		DateFrom:     f.DateFrom,
		DateTo:       f.DateTo,
		RecentDays:   f.RecentDays,
		JobType:      f.JobType,
		Department:   f.Department,
		WONumber:     f.WONumber,
		PermitNumber: f.PermitNumber,
		Keyword:      f.Keyword,
		ActualStart:  f.ActualStart,
		Tags:         f.Tags,
		FatherTags:   f.FatherTags,
		Units:        f.Units,
		Trains:       f.Trains,
	}
}

func (s *Server) searchJobsHandler(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	rows, total, err := s.store.ListJobs(req.toFilter(), time.Now())
	if err != nil {
		s.log.Error().Err(err).Msg("job search failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []store.JobRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":  rows,
		"total": total,
	})
}

func (s *Server) createJobHandler(w http.ResponseWriter, r *http.Request) {
	var job store.JobReport
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	job.ObjectTag = strings.ToUpper(strings.TrimSpace(job.ObjectTag))
	if job.ObjectTag == "" || job.Date == "" {
		http.Error(w, "object_tag and date are required", http.StatusBadRequest)
		return
	}

	id := identity(r.Context())
	job.RegisteredBy = store.Registrant(id.Username, id.Machine)
	job.RegisteredDate = time.Now().Format("2006-01-02")

	jobIndex, err := s.store.InsertJob(job)
	if err != nil {
		s.log.Error().Err(err).Str("tag", job.ObjectTag).Msg("insert job failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	job.JobIndex = jobIndex
	s.log.Info().Int("job", jobIndex).Str("tag", job.ObjectTag).
		Str("user", id.Username).Msg("job registered")
	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) getJobHandler(w http.ResponseWriter, r *http.Request) {
	jobIndex, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid job index", http.StatusBadRequest)
		return
	}
	job, found, err := s.store.GetJob(jobIndex)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) updateJobHandler(w http.ResponseWriter, r *http.Request) {
	jobIndex, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid job index", http.StatusBadRequest)
		return
	}
	var job store.JobReport
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	job.JobIndex = jobIndex

	existing, found, err := s.store.GetJob(jobIndex)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	id := identity(r.Context())
	if !CanModify(id.Username, id.IsAdmin, existing.RegisteredBy, existing.RegisteredDate, time.Now()) {
		http.Error(w, "You can only edit your own reports within a week of registration", http.StatusForbidden)
		return
	}

	if err := s.store.UpdateJob(job, store.Registrant(id.Username, id.Machine), time.Now()); err != nil {
		s.log.Error().Err(err).Int("job", jobIndex).Msg("update job failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.log.Info().Int("job", jobIndex).Str("user", id.Username).Msg("job updated")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) deleteJobHandler(w http.ResponseWriter, r *http.Request) {
	jobIndex, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid job index", http.StatusBadRequest)
		return
	}

	existing, found, err := s.store.GetJob(jobIndex)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !found {
		// Already gone; deleting again is harmless.
		w.WriteHeader(http.StatusOK)
		return
	}

	id := identity(r.Context())
	if !CanModify(id.Username, id.IsAdmin, existing.RegisteredBy, existing.RegisteredDate, time.Now()) {
		http.Error(w, "You can only delete your own reports within a week of registration", http.StatusForbidden)
		return
	}

	if _, err := s.store.DeleteJob(jobIndex); err != nil {
		s.log.Error().Err(err).Int("job", jobIndex).Msg("delete job failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.log.Info().Int("job", jobIndex).Str("user", id.Username).Msg("job deleted")
	w.WriteHeader(http.StatusOK)
}

var exportHeader = []string{
	"job_indx", "date", "object_tag", "job_type", "department", "wo_number",
	"permit_number", "status", "actual_start", "job_description", "keywords",
	"performed_action", "employee", "route", "registered_by", "registered_date",
	"anomaly", "action_list",
}

func (s *Server) exportJobsHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JobIndexes []int `json:"job_indexes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if len(req.JobIndexes) == 0 {
		http.Error(w, "No jobs selected", http.StatusBadRequest)
		return
	}

	jobs, err := s.store.JobsByIndexes(req.JobIndexes)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="jobs-%s.csv"`, time.Now().Format("2006-01-02")))
	cw := csv.NewWriter(w)
	cw.Write(exportHeader)
	for _, j := range jobs {
		cw.Write([]string{
			strconv.Itoa(j.JobIndex), j.Date, j.ObjectTag, j.JobType,
			j.Department, j.WONumber, j.PermitNumber, j.Status, j.ActualStart,
			j.Description, j.Keywords, j.PerformedAction, j.Employee, j.Route,
			j.RegisteredBy, j.RegisteredDate,
			strconv.FormatBool(j.Anomaly), strconv.FormatBool(j.ActionList),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		s.log.Error().Err(err).Msg("csv export failed")
	}
}

// pmGroup is one route visit: every preventive report filed for the
// same route on the same day.
type pmGroup struct {
	Date  string            `json:"date"`
	Route string            `json:"route"`
	Jobs  []store.JobReport `json:"jobs"`
}

func (s *Server) pmJobsHandler(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.store.ListPMJobs(r.URL.Query().Get("department"), 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var groups []pmGroup
	index := make(map[string]int)
	for _, j := range jobs {
		key := j.Date + "\x00" + j.Route
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, pmGroup{Date: j.Date, Route: j.Route})
		}
		groups[i].Jobs = append(groups[i].Jobs, j)
	}
	if groups == nil {
		groups = []pmGroup{}
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) relatedJobsHandler(w http.ResponseWriter, r *http.Request) {
	tag := mux.Vars(r)["tag"]
	department := r.URL.Query().Get("department")
	if department == "" {
		http.Error(w, "department is required", http.StatusBadRequest)
		return
	}
	jobs, err := s.store.RecentRelatedJobs(tag, department, 2)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if jobs == nil {
		jobs = []store.JobReport{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) searchRelatedHandler(w http.ResponseWriter, r *http.Request) {
	tag := mux.Vars(r)["tag"]
	q := r.URL.Query()
	keyword := q.Get("q")
	if keyword == "" {
		http.Error(w, "q is required", http.StatusBadRequest)
		return
	}
	jobs, err := s.store.SearchRelatedJobs(tag, q.Get("department"), keyword, 5)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if jobs == nil {
		jobs = []store.JobReport{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) lastJobHandler(w http.ResponseWriter, r *http.Request) {
	tag := mux.Vars(r)["tag"]
	q := r.URL.Query()
	job, found, err := s.store.LastJobForTag(tag, q.Get("job_type"), q.Get("department"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "No reports for tag", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) topKeywordsHandler(w http.ResponseWriter, r *http.Request) {
	tag := mux.Vars(r)["tag"]
	keywords, err := s.store.TopKeywordsForTag(tag, 5)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if keywords == nil {
		keywords = []store.KeywordCount{}
	}
	writeJSON(w, http.StatusOK, keywords)
}

var errBadDate = errors.New("dates must be YYYY-MM-DD")

func (s *Server) trendsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if to == "" {
		to = time.Now().Format("2006-01-02")
	}
	if from == "" {
		from = time.Now().AddDate(-1, 0, 0).Format("2006-01-02")
	}
	for _, v := range []string{from, to} {
		if _, err := time.Parse("2006-01-02", v); err != nil {
			http.Error(w, errBadDate.Error(), http.StatusBadRequest)
			return
		}
	}
	rows, err := s.store.TrendRows(from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []store.TrendRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}
