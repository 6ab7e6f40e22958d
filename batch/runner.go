// Package batch drives source documents through submit, normalize and write,
// isolating per-document failures.
package batch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fwojciec/docparse"
	"golang.org/x/sync/errgroup"
)

// Runner processes batches of documents.
type Runner struct {
	Normalizer  docparse.Normalizer
	Writer      docparse.ResultWriter
	Credentials docparse.Credentials

	// Concurrency is the number of documents processed at once.
	// Defaults to 1 (sequential).
	Concurrency int

	// Now returns the processing timestamp. Defaults to time.Now.
	Now func() time.Time

	// Progress, if set, receives events as documents complete.
	Progress ProgressFunc

	mu sync.Mutex
}

// ProgressEvent reports progress during a batch run.
type ProgressEvent struct {
	Type      ProgressType
	Completed int
	Total     int
	FileName  string
	Error     error
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressStarted ProgressType = iota
	ProgressCompleted
	ProgressFailed
	ProgressFinished
)

// ProgressFunc is a callback for reporting batch progress.
// Calls are serialized.
type ProgressFunc func(event ProgressEvent)

// job is one document with its resolved backend and session.
type job struct {
	doc     docparse.SourceDocument
	backend docparse.Backend
	session docparse.Session
	err     error
}

// outcome holds the result of processing a single document.
type outcome struct {
	done    bool
	success docparse.Success
	err     error
}

// Run processes docs in path order, choosing each document's backend with
// selector and writing results into outputDir.
//
// Every distinct backend is authenticated once before any document is
// submitted; an EAUTH failure there returns an empty result and the error.
// An EAUTH failure during submit stops dispatching further documents and
// returns the partial result with the error. All other failures are
// recorded in the result and processing continues.
func (r *Runner) Run(ctx context.Context, docs []docparse.SourceDocument, selector docparse.BackendSelector, outputDir string) (*docparse.BatchResult, error) {
	docs = docparse.SortSources(docs)

	jobs, err := r.prepare(ctx, docs, selector)
	if err != nil {
		return &docparse.BatchResult{}, err
	}

	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	total := len(jobs)
	r.report(ProgressEvent{Type: ProgressStarted, Total: total})

	var (
		completed atomic.Int64
		stopped   atomic.Bool
		authMu    sync.Mutex
		authErr   error
	)

	outcomes := make([]outcome, len(jobs))
	finish := func(i int, o outcome) {
		outcomes[i] = o
		event := ProgressEvent{
			Type:      ProgressCompleted,
			Completed: int(completed.Add(1)),
			Total:     total,
			FileName:  jobs[i].doc.DisplayName,
		}
		if o.err != nil {
			event.Type = ProgressFailed
			event.Error = o.err
		}
		r.report(event)
	}

	g := new(errgroup.Group)
	g.SetLimit(concurrency)
	for i := range jobs {
		if jobs[i].err != nil {
			finish(i, outcome{done: true, err: jobs[i].err})
			continue
		}
		if stopped.Load() {
			break
		}
		if err := ctx.Err(); err != nil {
			finish(i, outcome{done: true, err: docparse.Errorf(docparse.ECANCELED, "not started: %v", err)})
			continue
		}

		// The slot may free up only after an earlier document stopped the
		// batch or the context ended, so check again once running.
		g.Go(func() error {
			if stopped.Load() {
				return nil
			}
			if err := ctx.Err(); err != nil {
				finish(i, outcome{done: true, err: docparse.Errorf(docparse.ECANCELED, "not started: %v", err)})
				return nil
			}
			o := r.process(ctx, jobs[i], outputDir)
			if docparse.ErrorCode(o.err) == docparse.EAUTH {
				authMu.Lock()
				if authErr == nil {
					authErr = o.err
				}
				authMu.Unlock()
				stopped.Store(true)
			}
			finish(i, o)
			return nil
		})
	}
	_ = g.Wait()

	result := &docparse.BatchResult{}
	for i, o := range outcomes {
		if !o.done {
			continue
		}
		if o.err != nil {
			result.Failures = append(result.Failures, docparse.NewFailure(jobs[i].doc.DisplayName, o.err))
			continue
		}
		result.Successes = append(result.Successes, o.success)
	}

	r.report(ProgressEvent{Type: ProgressFinished, Completed: result.Total(), Total: total})

	return result, authErr
}

// prepare resolves a backend for every document and authenticates each
// distinct provider once. It returns an error only for EAUTH failures.
func (r *Runner) prepare(ctx context.Context, docs []docparse.SourceDocument, selector docparse.BackendSelector) ([]job, error) {
	type auth struct {
		session docparse.Session
		err     error
	}
	sessions := make(map[docparse.Provider]auth)

	jobs := make([]job, len(docs))
	for i, doc := range docs {
		if doc.DisplayName == "" {
			doc = docparse.NewSourceDocument(doc.Path)
		}
		jobs[i].doc = doc

		if err := doc.Validate(); err != nil {
			jobs[i].err = err
			continue
		}

		backend, err := selector.Select(doc)
		if err != nil {
			jobs[i].err = docparse.Errorf(docparse.EINVALID, "select backend: %s", errorText(err))
			continue
		}
		if backend == nil {
			jobs[i].err = docparse.Errorf(docparse.EINVALID, "no backend for %s", doc.Path)
			continue
		}
		jobs[i].backend = backend

		a, ok := sessions[backend.Name()]
		if !ok {
			a.session, a.err = backend.Authenticate(ctx, r.Credentials)
			if docparse.ErrorCode(a.err) == docparse.EAUTH {
				return nil, a.err
			}
			sessions[backend.Name()] = a
		}
		jobs[i].session = a.session
		jobs[i].err = a.err
	}
	return jobs, nil
}

// process runs one document through submit, normalize and write.
func (r *Runner) process(ctx context.Context, j job, outputDir string) outcome {
	raw, err := j.backend.Submit(ctx, j.doc, j.session)
	if err != nil {
		return outcome{done: true, err: canceled(ctx, err)}
	}

	result, err := r.Normalizer.Normalize(raw, j.doc, r.now())
	if err != nil {
		return outcome{done: true, err: err}
	}

	path, err := r.Writer.WriteResult(ctx, result, outputDir)
	if err != nil {
		return outcome{done: true, err: canceled(ctx, err)}
	}

	return outcome{
		done:    true,
		success: docparse.Success{Document: result, OutputPath: path},
	}
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) report(event ProgressEvent) {
	if r.Progress == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Progress(event)
}

// canceled reports uncoded errors seen after ctx ended as ECANCELED.
func canceled(ctx context.Context, err error) error {
	if docparse.ErrorCode(err) == docparse.EINTERNAL && ctx.Err() != nil {
		return docparse.Errorf(docparse.ECANCELED, "%v", err)
	}
	return err
}

func errorText(err error) string {
	if docparse.ErrorCode(err) == docparse.EINTERNAL {
		return err.Error()
	}
	return docparse.ErrorMessage(err)
}
