package pipeline

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ndcscan/internal"
)

// Resolver looks up the RXCUI for one canonical NDC. A missing mapping is a
// successful result with nil fields, not an error.
type Resolver interface {
	Resolve(ctx context.Context, ndc string) (internal.Translation, error)
}

type TranslatorOptions struct {
	// MaxInFlight caps concurrent lookups for one document. Zero means no cap.
	MaxInFlight int
	// Timeout bounds the whole fan-out. Zero means no deadline.
	Timeout time.Duration
}

type Translator struct {
	resolver Resolver
	opts     TranslatorOptions
	logger   *zap.Logger
}

func NewTranslator(resolver Resolver, opts TranslatorOptions, logger *zap.Logger) *Translator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Translator{resolver: resolver, opts: opts, logger: logger}
}

// TranslateDocument resolves every NDC entity in doc concurrently. result[i]
// belongs to the i-th NDC entity regardless of completion order. The first
// failed lookup cancels the rest and no partial batch is returned.
func (t *Translator) TranslateDocument(ctx context.Context, doc *internal.Document) ([]internal.Translation, error) {
	codes := slices.Collect(ExtractCodes(doc))
	out := make([]internal.Translation, len(codes))
	if len(codes) == 0 {
		return out, nil
	}

	if t.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	if t.opts.MaxInFlight > 0 {
		g.SetLimit(t.opts.MaxInFlight)
	}

	scheduled := 0
	for i, raw := range codes {
		if gctx.Err() != nil {
			break
		}
		scheduled++
		ndc := NormalizeNDC(raw)
		g.Go(func() error {
			res, err := t.resolver.Resolve(gctx, ndc)
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		t.logger.Warn("translation aborted", zap.Int("codes", len(codes)), zap.Error(err))
		return nil, err
	}
	// Wait succeeds when the parent context ended before every lookup was
	// scheduled and the scheduled ones all returned.
	if scheduled < len(codes) {
		return nil, internal.CollaboratorError("translate document", context.Cause(ctx))
	}

	t.logger.Debug("translation complete", zap.Int("codes", len(codes)), zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

// Translate runs a single code through normalization and lookup.
func (t *Translator) Translate(ctx context.Context, raw string) (internal.Translation, error) {
	return t.resolver.Resolve(ctx, NormalizeNDC(raw))
}
