package rxnorm

import (
	"context"

	"go.uber.org/zap"

	"ndcscan/internal"
	"ndcscan/internal/util"
)

// Store is the lookup side of the relational mapping store.
type Store interface {
	LookupRxcui(ctx context.Context, ndc string) (*internal.RxcuiRecord, error)
}

type Client struct {
	store  Store
	logger *zap.Logger
}

func NewClient(store Store, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{store: store, logger: logger}
}

// Resolve maps a canonical NDC to its RXCUI and display name. No match is a
// successful result with nil fields; a failed lookup is a collaborator error.
func (c *Client) Resolve(ctx context.Context, ndc string) (internal.Translation, error) {
	rec, err := c.store.LookupRxcui(ctx, ndc)
	if err != nil {
		c.logger.Error("rxcui lookup failed", zap.String("ndc", ndc), zap.Error(err))
		return internal.Translation{}, internal.CollaboratorError("resolve ndc", err)
	}
	if rec == nil {
		return internal.Translation{NDC: ndc}, nil
	}
	return internal.Translation{
		NDC:      ndc,
		RXCUI:    util.StringPtr(rec.RXCUI),
		DrugName: util.StringPtr(rec.Name),
	}, nil
}
