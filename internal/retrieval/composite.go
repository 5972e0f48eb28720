package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// CompositeStore presents several named member stores as one logical
// Store. Inserts route to a named member (or the default, the first
// member supplied at construction); queries fan out to the selected
// members, and the merged results are re-ranked globally.
//
// All members are assumed to share one embedding space: the Composite
// embeds each query exactly once with its own Embedder and hands the same
// vector to every member. Mixing members with incompatible embedding
// providers will surface as ErrDimensionMismatch at query time.
//
// The member set is fixed at construction. Per-member locks stay
// independent — a multi-member query may combine a freshly-written member
// with a stale one; there is no cross-store snapshot.
type CompositeStore struct {
	// name is the composite's own immutable name.
	name string
	// embedder computes the shared query embedding.
	embedder Embedder
	// members holds the member stores in construction order. The first
	// member is the default upsert target.
	members []Store
	// byName indexes members by their names.
	byName map[string]Store
}

// NewCompositeStore constructs a CompositeStore over the given members.
// The member list must be non-empty and member names must be unique.
// If name is empty the composite is named "composite".
func NewCompositeStore(members []Store, embedder Embedder, name string) (*CompositeStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("retrieval: composite: embedder must not be nil")
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("retrieval: composite: %w: at least one member store is required", ErrInvalidConfig)
	}
	if name == "" {
		name = "composite"
	}

	byName := make(map[string]Store, len(members))
	for _, m := range members {
		if _, dup := byName[m.Name()]; dup {
			return nil, fmt.Errorf("retrieval: composite: %w: duplicate store name %q", ErrInvalidConfig, m.Name())
		}
		byName[m.Name()] = m
	}

	return &CompositeStore{
		name:     name,
		embedder: embedder,
		members:  members,
		byName:   byName,
	}, nil
}

// Name returns the composite's own immutable name.
func (c *CompositeStore) Name() string { return c.name }

// Names returns the member store names in construction order.
func (c *CompositeStore) Names() []string {
	names := make([]string, len(c.members))
	for i, m := range c.members {
		names[i] = m.Name()
	}
	return names
}

// Upsert delegates to the member named by req.Store (or the default
// member when req.Store is empty) and returns the qualified id
// "<member>:<local-id>". An unknown name is a caller error wrapping
// ErrUnknownStore — never retried.
func (c *CompositeStore) Upsert(ctx context.Context, req UpsertRequest) (string, error) {
	target := c.members[0]
	if req.Store != "" {
		m, ok := c.byName[req.Store]
		if !ok {
			return "", fmt.Errorf("retrieval: composite upsert: %w: %q", ErrUnknownStore, req.Store)
		}
		target = m
	}

	// Clear the routing field so a nested composite does not re-route.
	req.Store = ""
	id, err := target.Upsert(ctx, req)
	if err != nil {
		return "", err
	}
	return QualifyID(target.Name(), id), nil
}

// Query fans out to the members named in req.Stores (or all members when
// empty), reusing one query embedding across the fan-out, then merges the
// per-member rankings, re-sorts by descending score, and truncates to
// req.Limit. The limit is global, not per member: a single member holding
// many high-scoring documents can dominate the merged result.
//
// Any member failure fails the whole call — there is no best-effort
// partial aggregation.
func (c *CompositeStore) Query(ctx context.Context, req QueryRequest) ([]Result, error) {
	selected := c.members
	if len(req.Stores) > 0 {
		selected = make([]Store, 0, len(req.Stores))
		for _, name := range req.Stores {
			m, ok := c.byName[name]
			if !ok {
				return nil, fmt.Errorf("retrieval: composite query: %w: %q", ErrUnknownStore, name)
			}
			selected = append(selected, m)
		}
	}

	if req.Limit <= 0 {
		return []Result{}, nil
	}

	vec := req.Embedding
	if len(vec) == 0 {
		var err error
		vec, err = c.embedder.Embed(ctx, req.Text)
		if err != nil {
			return nil, fmt.Errorf("retrieval: composite query: %w", err)
		}
	}

	// Concurrent fan-out, but each member's results land in its own slot
	// so the pre-sort concatenation order stays deterministic.
	perMember := make([][]Result, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range selected {
		g.Go(func() error {
			results, err := m.Query(gctx, QueryRequest{
				Text:      req.Text,
				Limit:     req.Limit,
				Embedding: vec,
			})
			if err != nil {
				return err
			}
			for j := range results {
				results[j].ID = QualifyID(m.Name(), results[j].ID)
				results[j].Store = m.Name()
			}
			perMember[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []Result
	for _, results := range perMember {
		merged = append(merged, results...)
	}
	return rank(merged, req.Limit), nil
}

// Close closes every member store and returns the joined errors, if any.
func (c *CompositeStore) Close() error {
	var errs []error
	for _, m := range c.members {
		if err := m.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// QualifyID prefixes a store-local id with its owning store's name.
func QualifyID(store, id string) string {
	return store + ":" + id
}

// SplitID parses a qualified id back into its store name and local id.
// It splits on the first colon, so local ids may themselves contain
// colons (nested composites). ok is false for unqualified ids.
func SplitID(id string) (store, local string, ok bool) {
	return strings.Cut(id, ":")
}
