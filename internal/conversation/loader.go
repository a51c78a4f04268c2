// Package conversation loads a HealthScribe job's output and assembles the aligned view of
// transcript, insights and summary.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/embano1/healthscribe-demo/internal/notify"
	"github.com/embano1/healthscribe-demo/internal/summary"
	"github.com/embano1/healthscribe-demo/internal/types"
)

// ErrStale is returned when a load finished after a newer load started or the conversation
// was closed. Its result must not be applied.
var ErrStale = errors.New("conversation load superseded")

// FetchError wraps a failure to fetch or decode one of the job documents.
type FetchError struct {
	Key string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.Key, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ObjectStore fetches objects by bucket and key.
type ObjectStore interface {
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
}

// FileStore reads objects from the local filesystem, treating the key as a path.
type FileStore struct{}

// GetObject reads the file at key. The bucket is ignored.
func (FileStore) GetObject(_ context.Context, _, key string) ([]byte, error) {
	return os.ReadFile(key)
}

// Source names the documents of one conversation.
type Source struct {
	JobName       string
	Bucket        string
	TranscriptKey string
	SummaryKey    string
	AudioKey      string
}

// JobSource returns the default output locations HealthScribe uses for jobName.
func JobSource(bucket, jobName string) Source {
	return Source{
		JobName:       jobName,
		Bucket:        bucket,
		TranscriptKey: path.Join(jobName, "transcript.json"),
		SummaryKey:    path.Join(jobName, "summary.json"),
	}
}

// Payload is the decoded output of a job.
type Payload struct {
	Source     Source
	Transcript types.TranscriptFile
	Sections   []types.Section
}

// Loader fetches conversation payloads. Only the most recent Load may deliver a result;
// earlier ones still in flight return ErrStale.
type Loader struct {
	store    ObjectStore
	notifier notify.Notifier

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// NewLoader creates a Loader reading from store.
func NewLoader(store ObjectStore, n notify.Notifier) *Loader {
	if n == nil {
		n = notify.Discard
	}
	return &Loader{store: store, notifier: n}
}

// Load fetches and decodes the transcript and summary of src concurrently. Fetch failures
// are reported to the notifier and returned as *FetchError.
func (l *Loader) Load(ctx context.Context, src Source) (*Payload, error) {
	ctx, gen := l.begin(ctx)

	p := &Payload{Source: src}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		raw, err := l.store.GetObject(gctx, src.Bucket, src.TranscriptKey)
		if err != nil {
			return &FetchError{Key: src.TranscriptKey, Err: err}
		}
		if err := json.Unmarshal(raw, &p.Transcript); err != nil {
			return &FetchError{Key: src.TranscriptKey, Err: fmt.Errorf("decoding transcript: %w", err)}
		}
		return nil
	})
	if src.SummaryKey != "" {
		g.Go(func() error {
			raw, err := l.store.GetObject(gctx, src.Bucket, src.SummaryKey)
			if err != nil {
				return &FetchError{Key: src.SummaryKey, Err: err}
			}
			sections, err := summary.Normalize(raw)
			if err != nil {
				return &FetchError{Key: src.SummaryKey, Err: err}
			}
			p.Sections = sections
			return nil
		})
	}

	err := g.Wait()
	if !l.current(ctx, gen) {
		return nil, ErrStale
	}
	if err != nil {
		l.notifier.Notify(notify.New(notify.LevelError, notify.KindFetchFailure, err.Error()))
		return nil, err
	}
	return p, nil
}

func (l *Loader) begin(ctx context.Context) (context.Context, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
	ctx, l.cancel = context.WithCancel(ctx)
	l.gen++
	return ctx, l.gen
}

func (l *Loader) current(ctx context.Context, gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return gen == l.gen && ctx.Err() == nil
}

// Close abandons any load in flight.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}
