package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// Option configures an Ingester.
type Option func(*Ingester)

// WithMaxEntrySize bounds the uncompressed size of an archive entry.
func WithMaxEntrySize(n int64) Option {
	return func(i *Ingester) { i.maxEntrySize = n }
}

// WithLogger sets the logger used for ingestion diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(i *Ingester) { i.logger = l }
}

// Ingester runs the ingestion pipeline. It holds no per-upload state and is
// safe for concurrent use.
type Ingester struct {
	roles        RoleConfig
	maxEntrySize int64
	logger       *slog.Logger
}

// NewIngester creates an Ingester that resolves column roles with cfg.
func NewIngester(cfg RoleConfig, opts ...Option) *Ingester {
	if cfg == nil {
		cfg = DefaultRoleConfig()
	}
	i := &Ingester{roles: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Ingest classifies the batch, picks the file to process and turns it into a
// table. It never panics and never returns a bare error: every outcome is a
// Result. The context only carries request-scoped logging fields.
func (i *Ingester) Ingest(ctx context.Context, b Batch) (res Result) {
	start := time.Now()
	logger := i.logger

	defer func() {
		if r := recover(); r != nil {
			res = Result{Status: StatusFailure, Kind: res.Kind, Err: fmt.Errorf("ingest panic: %v", r)}
		}
		attrs := []any{
			"status", res.Status,
			"kind", res.Kind,
			"source", res.Source,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if res.OK() {
			attrs = append(attrs, "name", res.Name, "rows", res.Table.NumRows(), "columns", res.Table.NumColumns())
		}
		if res.Err != nil {
			attrs = append(attrs, "error", res.Err)
		}
		logger.InfoContext(ctx, "ingestion finished", attrs...)
	}()

	f, kind, ok := Select(b.Files)
	if !ok {
		return Result{Status: StatusEmpty, Kind: KindUnknown, Err: ErrNoTabularContent}
	}

	switch kind {
	case KindArchive:
		return i.ingestArchive(f, b.Entry)
	case KindFlatTable:
		return i.ingestCSV(kind, f.Name, f.Name, f.Data)
	case KindWorkbook:
		return i.ingestWorkbook(f)
	default:
		// Documents carry no table.
		return Result{Status: StatusEmpty, Kind: kind, Source: f.Name, Err: ErrNoTabularContent}
	}
}

func (i *Ingester) ingestArchive(f File, entry string) Result {
	res := Result{Kind: KindArchive, Source: f.Name}

	candidates, err := ListCSVEntries(f.Data)
	if err != nil {
		return failed(res, err)
	}
	res.Candidates = candidates
	if len(candidates) == 0 {
		res.Status = StatusEmpty
		res.Err = fmt.Errorf("%w: %s contains no .csv files", ErrNoTabularContent, f.Name)
		return res
	}

	if entry == "" {
		entry = candidates[0]
	}
	// Only listed .csv entries can be selected.
	if !slices.Contains(candidates, entry) {
		return failed(res, fmt.Errorf("%w: %s", ErrEntryNotFound, entry))
	}
	data, err := extractEntry(f.Data, entry, i.maxEntrySize)
	if err != nil {
		return failed(res, err)
	}

	out := i.ingestCSV(KindArchive, entry, f.Name, data)
	out.Candidates = candidates
	return out
}

func (i *Ingester) ingestCSV(kind ContainerKind, name, source string, data []byte) Result {
	res := Result{Kind: kind, Source: source}

	t, enc, err := DecodeCSV(data)
	if err != nil {
		return failed(res, fmt.Errorf("%s: %w", name, err))
	}
	if enc != EncodingUTF8 {
		i.logger.Debug("decoded with fallback encoding", "file", name, "encoding", enc)
	}
	return i.succeeded(res, t, name)
}

func (i *Ingester) ingestWorkbook(f File) Result {
	res := Result{Kind: KindWorkbook, Source: f.Name}

	t, sheets, err := NormalizeWorkbook(f.Data)
	if err != nil {
		return failed(res, fmt.Errorf("%s: %w", f.Name, err))
	}
	return i.succeeded(res, t, sheetLabel(f.Name, sheets))
}

func (i *Ingester) succeeded(res Result, t *Table, name string) Result {
	res.Status = StatusSuccess
	res.Table = t
	res.Name = name
	res.Roles = ResolveRoles(t, i.roles)
	return res
}

// failed classifies err: an empty file is "nothing tabular", everything else
// is a failure.
func failed(res Result, err error) Result {
	if isEmpty(err) {
		res.Status = StatusEmpty
		res.Err = fmt.Errorf("%w: %w", ErrNoTabularContent, err)
		return res
	}
	res.Status = StatusFailure
	res.Err = err
	return res
}

func isEmpty(err error) bool {
	return errors.Is(err, ErrEmptyFile)
}
