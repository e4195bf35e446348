// internal/api/handlers.go
package api

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/gorilla/mux"

	"github.com/primedigitaltech/azon-seeker/internal/engine"
	"github.com/primedigitaltech/azon-seeker/internal/utils"
	"github.com/primedigitaltech/azon-seeker/pkg/types"
)

// RunRequest starts one traversal. Options that do not apply to the
// traversal are ignored.
type RunRequest struct {
	Inputs     []string `json:"inputs"`
	Wait       bool     `json:"wait"`
	APlus      bool     `json:"aplus,omitempty"`
	Extra      bool     `json:"extra,omitempty"`
	TopReviews bool     `json:"top_reviews,omitempty"`
	Recent     bool     `json:"recent,omitempty"`
	Review     bool     `json:"review,omitempty"`
}

func (s *Server) jobFor(site types.Site, traversal types.Traversal, req RunRequest) (engine.Job, error) {
	e := s.engine
	switch {
	case site == types.SiteAmazon && traversal == types.TraversalSearch:
		return e.AmazonSearch(req.Inputs)
	case site == types.SiteAmazon && traversal == types.TraversalDetail:
		return e.AmazonDetail(req.Inputs, engine.AmazonDetailOptions{
			APlus:      req.APlus,
			Extra:      req.Extra,
			TopReviews: req.TopReviews,
		})
	case site == types.SiteAmazon && traversal == types.TraversalReview:
		return e.AmazonReview(req.Inputs, req.Recent)
	case site == types.SiteHomedepot && traversal == types.TraversalDetail:
		return e.HomedepotDetail(req.Inputs, req.Review)
	case site == types.SiteLowes && traversal == types.TraversalDetail:
		return e.LowesDetail(req.Inputs)
	}
	return engine.Job{}, utils.NewError(utils.ErrCodeInvalidInput, "unsupported traversal").
		WithContext("site", string(site)).
		WithContext("traversal", string(traversal)).
		Build()
}

func (s *Server) runJob(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job, err := s.jobFor(types.Site(vars["site"]), types.Traversal(vars["traversal"]), req)
	if err != nil {
		writeFailure(w, err, nil)
		return
	}

	if !req.Wait {
		task := s.engine.Enqueue(r.Context(), job)
		writeJSON(w, http.StatusAccepted, task.Info())
		return
	}

	status, err := s.engine.Submit(r.Context(), job)
	if err != nil {
		writeFailure(w, err, map[string]interface{}{"status": status})
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) stopWorker(w http.ResponseWriter, r *http.Request) {
	worker, err := s.engine.Workers.Get(types.Site(mux.Vars(r)["site"]))
	if err != nil {
		writeFailure(w, err, nil)
		return
	}
	worker.Stop()
	writeJSON(w, http.StatusOK, worker.Status())
}

func (s *Server) listWorkers(w http.ResponseWriter, r *http.Request) {
	workers := s.engine.Workers.All()
	out := make([]interface{}, len(workers))
	for i, wk := range workers {
		out[i] = wk.Status()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"workers": out})
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"pending": s.engine.Queue.Pending(),
		"running": s.engine.Queue.Running(),
	}
	if current, ok := s.engine.Queue.Current(); ok {
		body["current"] = current
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) clearTasks(w http.ResponseWriter, r *http.Request) {
	dropped := s.engine.Queue.Len()
	s.engine.Queue.Clear()
	writeJSON(w, http.StatusOK, map[string]interface{}{"cleared": dropped})
}

func (s *Server) commit(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Commit(r.Context()); err != nil {
		writeFailure(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"committed": true})
}

func (s *Server) amazonItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.engine.Amazon.Collections.AllItems(r.Context())
	if err != nil {
		writeFailure(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items, "total": len(items)})
}

func (s *Server) amazonReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.engine.Amazon.Collections.Reviews.Load(r.Context())
	if err != nil {
		writeFailure(w, err, nil)
		return
	}
	writeReviews(w, r.URL.Query().Get("key"), reviews)
}

func (s *Server) homedepotItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.engine.Homedepot.Collections.DetailItems.Load(r.Context())
	if err != nil {
		writeFailure(w, err, nil)
		return
	}
	writeItems(w, items)
}

func (s *Server) homedepotReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.engine.Homedepot.Collections.Reviews.Load(r.Context())
	if err != nil {
		writeFailure(w, err, nil)
		return
	}
	writeReviews(w, r.URL.Query().Get("key"), reviews)
}

func (s *Server) lowesItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.engine.Lowes.Collections.DetailItems.Load(r.Context())
	if err != nil {
		writeFailure(w, err, nil)
		return
	}
	writeItems(w, items)
}

// writeItems lists a keyed collection in key order
func writeItems[T any](w http.ResponseWriter, items map[string]T) {
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, items[k])
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": out, "total": len(out)})
}

func writeReviews[R any](w http.ResponseWriter, key string, reviews map[string][]R) {
	if key != "" {
		list := reviews[key]
		if list == nil {
			list = []R{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"key": key, "reviews": list, "total": len(list)})
		return
	}
	total := 0
	for _, list := range reviews {
		total += len(list)
	}
	if reviews == nil {
		reviews = map[string][]R{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reviews": reviews, "total": total})
}
