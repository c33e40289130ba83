// Package appraise is the read path: resolve the project, check size
// eligibility, consult the cache, and either serve the cached tree (extracted
// to the requested folder) or dispatch a background job and tell the caller
// to follow the progress channel.
package appraise

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"gitworth/internal/appraisal"
	"gitworth/internal/appraisal/extract"
	"gitworth/internal/cache"
	"gitworth/internal/queue"
	"gitworth/internal/store"
)

// FailureStatus is the typed outcome of a request that does not produce a
// result body. Processing is a control-flow signal, not an error: the answer
// is being computed.
type FailureStatus string

const (
	StatusNotFound      FailureStatus = "not_found"
	StatusForbidden     FailureStatus = "forbidden"
	StatusProcessing    FailureStatus = "processing"
	StatusInternalError FailureStatus = "internal_error"
)

// Fault is returned to the HTTP layer instead of an error so every failure
// has a status the transport can map. RequestID is set for processing faults;
// it names the progress channel to follow.
type Fault struct {
	Status    FailureStatus
	Message   string
	RequestID string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s", f.Status, f.Message)
}

// Result is a served appraisal: the cached root JSON verbatim, or the
// extracted subfolder re-encoded in the same schema.
type Result struct {
	CacheHit bool
	JSON     []byte
}

// Request is one client appraisal request. An empty RequestID gets a
// generated correlation id.
type Request struct {
	Owner      string
	Name       string
	FolderPath string
	RequestID  string
}

type Config struct {
	// SizeLimit rejects projects whose size units exceed it; clone and blame
	// cost grows with repository size and has to be bounded somewhere.
	SizeLimit int64
	// DispatchMarkerTTL bounds how long a root key is considered already
	// dispatched, collapsing duplicate enqueues from this process.
	DispatchMarkerTTL time.Duration
}

const (
	DefaultSizeLimit         = 100_000
	defaultDispatchMarkerTTL = 30 * time.Second
	dispatchMarkerEntries    = 4096
)

type Service struct {
	projects   store.Repository
	cache      cache.Store
	dispatcher queue.Dispatcher
	sizeLimit  int64

	// dispatched maps root cache keys to the correlation id of the job that
	// is already underway for them.
	dispatched *expirable.LRU[string, string]
}

func New(projects store.Repository, cacheStore cache.Store, dispatcher queue.Dispatcher, cfg Config) *Service {
	if cfg.SizeLimit <= 0 {
		cfg.SizeLimit = DefaultSizeLimit
	}
	if cfg.DispatchMarkerTTL <= 0 {
		cfg.DispatchMarkerTTL = defaultDispatchMarkerTTL
	}
	return &Service{
		projects:   projects,
		cache:      cacheStore,
		dispatcher: dispatcher,
		sizeLimit:  cfg.SizeLimit,
		dispatched: expirable.NewLRU[string, string](dispatchMarkerEntries, nil, cfg.DispatchMarkerTTL),
	}
}

// requestState is the mutable context threaded through the step sequence.
type requestState struct {
	req        Request
	ref        appraisal.ProjectRef
	project    store.Project
	cacheKey   string
	cached     []byte
	haveCached bool
	result     *Result
}

type step func(ctx context.Context, st *requestState) *Fault

func runSteps(ctx context.Context, st *requestState, steps ...step) *Fault {
	for _, s := range steps {
		if fault := s(ctx, st); fault != nil {
			return fault
		}
	}
	return nil
}

// Appraise runs the read path. Exactly one of result and fault is non-nil.
func (s *Service) Appraise(ctx context.Context, req Request) (*Result, *Fault) {
	if strings.TrimSpace(req.RequestID) == "" {
		req.RequestID = uuid.NewString()
	}
	st := &requestState{
		req:      req,
		ref:      appraisal.ProjectRef{Owner: req.Owner, Name: req.Name},
		cacheKey: appraisal.CacheKey(appraisal.ProjectRef{Owner: req.Owner, Name: req.Name}),
	}
	fault := runSteps(ctx, st,
		s.resolveProject,
		s.checkEligibility,
		s.lookupCache,
		s.serveOrDispatch,
	)
	if fault != nil {
		return nil, fault
	}
	return st.result, nil
}

func (s *Service) resolveProject(ctx context.Context, st *requestState) *Fault {
	project, err := s.projects.Get(ctx, st.req.Owner, st.req.Name)
	if errors.Is(err, store.ErrNotFound) {
		return &Fault{Status: StatusNotFound, Message: "Project not found"}
	}
	if err != nil {
		log.Printf("appraise: resolve %s/%s: %v", st.req.Owner, st.req.Name, err)
		return &Fault{Status: StatusInternalError, Message: "Project lookup failed"}
	}
	st.project = project
	return nil
}

func (s *Service) checkEligibility(_ context.Context, st *requestState) *Fault {
	if st.project.SizeUnits > s.sizeLimit {
		return &Fault{
			Status:  StatusForbidden,
			Message: fmt.Sprintf("Project %s exceeds the size limit (%d > %d)", st.project.Slug(), st.project.SizeUnits, s.sizeLimit),
		}
	}
	return nil
}

// lookupCache swallows store errors: a cache outage downgrades to a miss and
// the request falls through to dispatch instead of failing.
func (s *Service) lookupCache(ctx context.Context, st *requestState) *Fault {
	value, ok, err := s.cache.Get(ctx, st.cacheKey)
	if err != nil {
		log.Printf("appraise: cache get %s: %v (treating as miss)", st.cacheKey, err)
		return nil
	}
	st.cached = value
	st.haveCached = ok
	return nil
}

func (s *Service) serveOrDispatch(ctx context.Context, st *requestState) *Fault {
	if st.haveCached {
		return s.serveCached(st)
	}
	return s.dispatch(ctx, st)
}

// serveCached serves root requests verbatim, including cached error
// appraisals (the caller gets to see why the run failed). Subfolder requests
// extract from the tree; anything without a matching subtree is a client
// error against real data, distinct from "still computing".
func (s *Service) serveCached(st *requestState) *Fault {
	target := appraisal.NormalizePath(st.req.FolderPath)
	if target == "" {
		st.result = &Result{CacheHit: true, JSON: st.cached}
		return nil
	}
	sub, ok := extract.Subtree(st.cached, target)
	if !ok {
		return &Fault{Status: StatusNotFound, Message: "Folder not found in project"}
	}
	raw, err := sub.Encode()
	if err != nil {
		log.Printf("appraise: encode subtree %s of %s: %v", target, st.cacheKey, err)
		return &Fault{Status: StatusInternalError, Message: "Failed to serialize folder appraisal"}
	}
	st.result = &Result{CacheHit: true, JSON: raw}
	return nil
}

// dispatch enqueues a whole-project job unless one is already underway for
// this root key, then reports processing with the channel to follow. Jobs
// always target the root folder; the caller retries its original folder
// request once the progress channel reports completion.
func (s *Service) dispatch(ctx context.Context, st *requestState) *Fault {
	channelID := st.req.RequestID
	if inFlightID, ok := s.dispatched.Get(st.cacheKey); ok {
		channelID = inFlightID
	} else {
		job := appraisal.Job{Project: st.ref, FolderPath: "", ID: st.req.RequestID}
		if err := s.dispatcher.Enqueue(ctx, job); err != nil {
			log.Printf("appraise: enqueue %s: %v", st.cacheKey, err)
			return &Fault{Status: StatusInternalError, Message: "Failed to dispatch appraisal job"}
		}
		s.dispatched.Add(st.cacheKey, st.req.RequestID)
	}
	return &Fault{
		Status:    StatusProcessing,
		RequestID: channelID,
		Message:   fmt.Sprintf("Appraisal in progress, follow progress channel %s", channelID),
	}
}
