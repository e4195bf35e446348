// internal/worker/registry.go
package worker

import (
	"github.com/primedigitaltech/azon-seeker/internal/utils"
	"github.com/primedigitaltech/azon-seeker/pkg/types"
)

// Registry holds one worker per site. Each worker is a singleton: it runs
// at most one task at a time.
type Registry struct {
	Amazon    *AmazonWorker
	Homedepot *HomedepotWorker
	Lowes     *LowesWorker
}

// NewRegistry creates the workers of every site from shared deps
func NewRegistry(deps Deps) *Registry {
	return &Registry{
		Amazon:    NewAmazonWorker(deps),
		Homedepot: NewHomedepotWorker(deps),
		Lowes:     NewLowesWorker(deps),
	}
}

// Get returns the worker of site
func (r *Registry) Get(site types.Site) (Worker, error) {
	switch site {
	case types.SiteAmazon:
		return r.Amazon, nil
	case types.SiteHomedepot:
		return r.Homedepot, nil
	case types.SiteLowes:
		return r.Lowes, nil
	}
	return nil, utils.NewError(utils.ErrCodeInvalidInput, "unknown site").
		WithContext("site", string(site)).
		Build()
}

// All returns every worker in site order
func (r *Registry) All() []Worker {
	return []Worker{r.Amazon, r.Homedepot, r.Lowes}
}

// StopAll raises the interrupt of every running worker
func (r *Registry) StopAll() {
	for _, w := range r.All() {
		w.Stop()
	}
}
