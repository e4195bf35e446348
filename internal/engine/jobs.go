// internal/engine/jobs.go
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/primedigitaltech/azon-seeker/internal/taskqueue"
	"github.com/primedigitaltech/azon-seeker/internal/utils"
	"github.com/primedigitaltech/azon-seeker/internal/worker"
	"github.com/primedigitaltech/azon-seeker/pkg/types"
)

// Job is one site traversal ready to be queued
type Job struct {
	Name      string
	Site      types.Site
	Traversal types.Traversal
	Inputs    []string
	Run       taskqueue.Func
}

// AmazonDetailOptions select the optional steps of an Amazon detail job
type AmazonDetailOptions struct {
	APlus      bool `json:"aplus"`
	Extra      bool `json:"extra"`
	TopReviews bool `json:"top_reviews"`
}

// AmazonSearch builds a job that lists the search results of keywords
func (e *Engine) AmazonSearch(keywords []string) (Job, error) {
	return e.job(types.SiteAmazon, types.TraversalSearch, keywords, func(ctx context.Context, inputs []string, progress worker.Progress) error {
		return e.Amazon.RunSearch(ctx, inputs, worker.TaskOptions{Progress: progress})
	})
}

// AmazonDetail builds a job that walks the detail page of every entry
func (e *Engine) AmazonDetail(entries []string, opts AmazonDetailOptions) (Job, error) {
	return e.job(types.SiteAmazon, types.TraversalDetail, entries, func(ctx context.Context, inputs []string, progress worker.Progress) error {
		return e.Amazon.RunDetail(ctx, inputs, worker.DetailOptions{
			TaskOptions: worker.TaskOptions{Progress: progress},
			APlus:       opts.APlus,
			Extra:       opts.Extra,
			TopReviews:  opts.TopReviews,
		})
	})
}

// AmazonReview builds a job that lists the reviews of every entry
func (e *Engine) AmazonReview(entries []string, recent bool) (Job, error) {
	return e.job(types.SiteAmazon, types.TraversalReview, entries, func(ctx context.Context, inputs []string, progress worker.Progress) error {
		return e.Amazon.RunReview(ctx, inputs, worker.ReviewOptions{
			TaskOptions: worker.TaskOptions{Progress: progress},
			Recent:      recent,
		})
	})
}

// HomedepotDetail builds a job that walks the product page of every OSMID
func (e *Engine) HomedepotDetail(osmids []string, review bool) (Job, error) {
	return e.job(types.SiteHomedepot, types.TraversalDetail, osmids, func(ctx context.Context, inputs []string, progress worker.Progress) error {
		return e.Homedepot.RunDetail(ctx, inputs, worker.HomedepotOptions{
			TaskOptions: worker.TaskOptions{Progress: progress},
			Review:      review,
		})
	})
}

// LowesDetail builds a job that walks every product link
func (e *Engine) LowesDetail(links []string) (Job, error) {
	return e.job(types.SiteLowes, types.TraversalDetail, links, func(ctx context.Context, inputs []string, progress worker.Progress) error {
		return e.Lowes.RunDetail(ctx, inputs, worker.TaskOptions{Progress: progress})
	})
}

type runFunc func(ctx context.Context, inputs []string, progress worker.Progress) error

func (e *Engine) job(site types.Site, traversal types.Traversal, inputs []string, run runFunc) (Job, error) {
	inputs = compact(inputs)
	if len(inputs) == 0 {
		return Job{}, utils.NewError(utils.ErrCodeInvalidInput, "no inputs given").
			WithContext("site", string(site)).
			WithContext("traversal", string(traversal)).
			Build()
	}
	w, err := e.Workers.Get(site)
	if err != nil {
		return Job{}, err
	}

	name := fmt.Sprintf("%s.%s", site, traversal)
	logger := e.Logger.WithFields(map[string]interface{}{"site": string(site), "traversal": string(traversal)})
	progress := func(remains []string) {
		logger.Debugf("%d inputs remaining", len(remains))
	}

	return Job{
		Name:      name,
		Site:      site,
		Traversal: traversal,
		Inputs:    inputs,
		Run: func(ctx context.Context) (interface{}, error) {
			err := run(ctx, inputs, progress)
			return w.Status(), err
		},
	}, nil
}

// Submit queues job and waits for the worker status it ends with
func (e *Engine) Submit(ctx context.Context, job Job) (worker.Status, error) {
	v, err := taskqueue.Submit(ctx, e.Queue, job.Name, job.Run)
	if err != nil {
		w, _ := e.Workers.Get(job.Site)
		if w != nil {
			return w.Status(), err
		}
		return worker.Status{}, err
	}
	status, _ := v.(worker.Status)
	return status, nil
}

// Enqueue queues job without waiting
func (e *Engine) Enqueue(ctx context.Context, job Job) *taskqueue.Task {
	return taskqueue.Enqueue(ctx, e.Queue, job.Name, job.Run)
}

// compact trims inputs and drops blanks and repeats, keeping order
func compact(inputs []string) []string {
	out := make([]string, 0, len(inputs))
	seen := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		in = strings.TrimSpace(in)
		if in == "" || seen[in] {
			continue
		}
		seen[in] = true
		out = append(out, in)
	}
	return out
}
