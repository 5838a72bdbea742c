package engine

import (
	"context"

	"github.com/roach88/whereabouts/internal/cache"
	"github.com/roach88/whereabouts/internal/filter"
	"github.com/roach88/whereabouts/internal/model"
	"github.com/roach88/whereabouts/internal/telemetry"
)

// FilterRequest carries the actions to screen. ContextBundleID, when set,
// must name the bundle currently cached for (user, session).
type FilterRequest struct {
	UserID          string                 `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	SessionID       string                 `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Actions         []model.ActionToFilter `json:"actions" yaml:"actions"`
	ContextBundleID string                 `json:"context_bundle_id,omitempty" yaml:"context_bundle_id,omitempty"`
	Strictness      string                 `json:"strictness,omitempty" yaml:"strictness,omitempty"`
}

// FilterResponse is the outcome of FilterActions.
type FilterResponse struct {
	Results         []model.FilterResult     `json:"results"`
	PassedCount     int                      `json:"passed_count"`
	RejectedCount   int                      `json:"rejected_count"`
	ContextBundleID string                   `json:"context_bundle_id"`
	Admitted        []model.ContextualAction `json:"admitted"`
}

// FilterActions screens the actions against the current bundle.
//
// Without a ContextBundleID the current bundle is used, computed from
// stored signals if nothing is cached. A ContextBundleID that does not match
// the cached bundle is NOT_FOUND: the caller's bundle has been replaced or
// has expired.
func (e *Engine) FilterActions(ctx context.Context, req FilterRequest) (*FilterResponse, error) {
	key := cache.NewKey(req.UserID, req.SessionID)

	strictness, err := model.ParseStrictness(req.Strictness)
	if err != nil {
		return nil, invalidArgument(OpFilterActions, "%v", err)
	}
	for i, a := range req.Actions {
		if a.ID == "" {
			return nil, invalidArgument(OpFilterActions, "actions[%d] has no id", i)
		}
	}

	b, err := e.bundleFor(ctx, key, req.ContextBundleID)
	if err != nil {
		return nil, err
	}

	results := e.filter.Filter(req.Actions, b, strictness)
	passed, rejected := filter.Counts(results)

	e.logger.Debug("actions filtered",
		"user_id", key.UserID,
		"bundle_id", b.BundleID,
		"strictness", strictness,
		"passed", passed,
		"rejected", rejected,
	)
	e.emit(ctx, telemetry.EventActionsFiltered, key, b.BundleID, map[string]any{
		"strictness":     string(strictness),
		"passed_count":   passed,
		"rejected_count": rejected,
	})

	return &FilterResponse{
		Results:         results,
		PassedCount:     passed,
		RejectedCount:   rejected,
		ContextBundleID: b.BundleID,
		Admitted:        filter.Admitted(req.Actions, results),
	}, nil
}

func (e *Engine) bundleFor(ctx context.Context, key cache.Key, bundleID string) (*model.ContextBundle, error) {
	entry, ok := e.lookup(ctx, OpFilterActions, key)
	switch {
	case ok && (bundleID == "" || entry.Bundle.BundleID == bundleID):
		return entry.Bundle, nil
	case bundleID != "":
		return nil, notFound(OpFilterActions, "context bundle %s is not current for user %s", bundleID, key.UserID)
	}
	return e.compute(ctx, OpFilterActions, key, ComputeRequest{})
}
