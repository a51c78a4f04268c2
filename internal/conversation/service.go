package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/embano1/healthscribe-demo/internal/notify"
	"github.com/embano1/healthscribe-demo/internal/types"
)

// ErrNotFound is returned for a job that has no conversation.
var ErrNotFound = errors.New("conversation not found")

// Resolver locates the documents of a job.
type Resolver interface {
	Resolve(ctx context.Context, jobName string) (Source, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, jobName string) (Source, error)

// Resolve calls f(ctx, jobName).
func (f ResolverFunc) Resolve(ctx context.Context, jobName string) (Source, error) {
	return f(ctx, jobName)
}

// BucketResolver resolves every job to its default output location in bucket.
func BucketResolver(bucket string) Resolver {
	return ResolverFunc(func(_ context.Context, jobName string) (Source, error) {
		return JobSource(bucket, jobName), nil
	})
}

// URLSigner returns a time-limited download URL for an object.
type URLSigner interface {
	PresignGetURL(ctx context.Context, bucket, key string) (string, error)
}

// ServiceOptions configures a Service. Resolver, Signer and Inferer are optional.
type ServiceOptions struct {
	Store    ObjectStore
	Resolver Resolver
	Signer   URLSigner
	Inferer  EntityInferer
	Ontology types.Ontology
	Notifier notify.Notifier
}

// Service loads, builds and caches conversation views by job name.
type Service struct {
	opts  ServiceOptions
	group singleflight.Group

	mu    sync.RWMutex
	views map[string]*View
}

// NewService creates a Service.
func NewService(opts ServiceOptions) *Service {
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	return &Service{opts: opts, views: make(map[string]*View)}
}

// Add registers a view built elsewhere, e.g. from local files, under its job name.
func (s *Service) Add(v *View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[v.JobName] = v
}

// Conversation returns the view of jobName, loading it on first use. Concurrent calls for
// the same job share one load.
func (s *Service) Conversation(ctx context.Context, jobName string) (*View, error) {
	s.mu.RLock()
	v, ok := s.views[jobName]
	s.mu.RUnlock()
	if ok {
		return v, nil
	}
	if s.opts.Resolver == nil || s.opts.Store == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, jobName)
	}

	res, err, _ := s.group.Do(jobName, func() (interface{}, error) {
		return s.load(ctx, jobName)
	})
	if err != nil {
		return nil, err
	}
	return res.(*View), nil
}

func (s *Service) load(ctx context.Context, jobName string) (*View, error) {
	src, err := s.opts.Resolver.Resolve(ctx, jobName)
	if err != nil {
		return nil, fmt.Errorf("resolving job %s: %w", jobName, err)
	}

	p, err := NewLoader(s.opts.Store, s.opts.Notifier).Load(ctx, src)
	if err != nil {
		return nil, err
	}
	v := Build(p, s.opts.Notifier)
	if v.JobName == "" {
		v.JobName = jobName
	}

	if src.AudioKey != "" && s.opts.Signer != nil {
		url, err := s.opts.Signer.PresignGetURL(ctx, src.Bucket, src.AudioKey)
		if err != nil {
			s.opts.Notifier.Notify(notify.New(notify.LevelWarning, notify.KindFetchFailure, fmt.Sprintf("Audio for %s is unavailable: %v", jobName, err)))
		} else {
			v.AudioURL = url
		}
	}

	if s.opts.Inferer != nil && s.opts.Ontology != "" {
		v.Entities = InferSections(ctx, s.opts.Inferer, v.Sections, s.opts.Ontology, s.opts.Notifier)
	}

	s.mu.Lock()
	s.views[jobName] = v
	s.mu.Unlock()
	return v, nil
}
