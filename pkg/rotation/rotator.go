package rotation

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/gemrelay/pkg/credentials"
	"mercator-hq/gemrelay/pkg/rotation/storage"
)

// DefaultKey is the store key holding the next index to serve.
const DefaultKey = "current_key_index"

// Selection outcomes reported to the metrics recorder.
const (
	OutcomeSuccess  = "success"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

var tracer = otel.Tracer("mercator-hq/gemrelay/rotation")

// Selection is the result of one successful rotation attempt.
type Selection struct {
	// Credential is the credential at Index.
	Credential string

	// Index is the rotation slot that was served. It is spent: the same slot
	// is not issued again until N more selections have committed.
	Index int

	// Version is the store version written by this selection.
	Version int64
}

// Recorder receives selection outcomes. It is implemented by the metrics
// collector.
type Recorder interface {
	RecordSelection(outcome string, index int)
}

// Config configures a Rotator.
type Config struct {
	// Key is the store key for the rotation counter. Default: DefaultKey
	Key string

	// Logger receives selection events. Default: slog.Default()
	Logger *slog.Logger

	// Metrics receives selection outcomes. Optional.
	Metrics Recorder
}

// Rotator hands out credentials in round-robin order using optimistic
// concurrency against a shared store.
//
// The rotator keeps no state between calls: the next slot lives only in the
// store and is advanced by compare-and-swap, never under a lock.
type Rotator struct {
	creds   *credentials.Set
	store   storage.Backend
	key     string
	logger  *slog.Logger
	metrics Recorder
}

// New creates a Rotator over creds backed by store.
func New(creds *credentials.Set, store storage.Backend, cfg Config) *Rotator {
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Rotator{
		creds:   creds,
		store:   store,
		key:     cfg.Key,
		logger:  cfg.Logger.With("component", "rotation"),
		metrics: cfg.Metrics,
	}
}

// Len returns the size of the credential set.
func (r *Rotator) Len() int {
	return r.creds.Len()
}

// SelectNext makes one selection attempt.
//
// It reads the counter and its version, then commits the advanced counter
// conditioned on that version. On success the credential at the read index
// is returned. If another writer committed first, ErrConflict is returned and
// nothing was written; the caller must call SelectNext again rather than
// reuse anything from this attempt. Store failures are returned as
// *StoreError (errors.Is(err, ErrStoreUnavailable)).
func (r *Rotator) SelectNext(ctx context.Context) (Selection, error) {
	n := r.creds.Len()
	if n == 0 {
		return Selection{}, ErrNoCredentials
	}

	ctx, span := tracer.Start(ctx, "rotation.select")
	defer span.End()
	span.SetAttributes(
		attribute.String("rotation.backend", r.store.Name()),
		attribute.Int("rotation.credentials", n),
	)

	st, err := r.store.Load(ctx, r.key)
	if err != nil {
		return Selection{}, r.fail(span, &StoreError{Op: "load", Backend: r.store.Name(), Err: err})
	}

	served := normalizeIndex(st.NextIndex, n)
	advanced := (served + 1) % n

	ok, err := r.store.CompareAndSwap(ctx, r.key, st.Version, advanced)
	if err != nil {
		return Selection{}, r.fail(span, &StoreError{Op: "commit", Backend: r.store.Name(), Err: err})
	}
	if !ok {
		r.record(OutcomeConflict, -1)
		span.SetAttributes(attribute.Bool("rotation.conflict", true))
		r.logger.WarnContext(ctx, "rotation commit conflicted, another request committed first",
			"index", served,
			"version", st.Version,
		)
		return Selection{}, ErrConflict
	}

	r.record(OutcomeSuccess, served)
	span.SetAttributes(attribute.Int("rotation.index", served))

	cred := r.creds.At(served)
	r.logger.DebugContext(ctx, "credential selected",
		"index", served,
		"fingerprint", credentials.Fingerprint(cred),
		"next_index", advanced,
	)

	return Selection{
		Credential: cred,
		Index:      served,
		Version:    st.Version + 1,
	}, nil
}

func (r *Rotator) fail(span trace.Span, err error) error {
	r.record(OutcomeError, -1)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (r *Rotator) record(outcome string, index int) {
	if r.metrics != nil {
		r.metrics.RecordSelection(outcome, index)
	}
}

// normalizeIndex maps a stored counter into [0, n). A counter written while
// the credential list was longer is folded back modulo n.
func normalizeIndex(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
