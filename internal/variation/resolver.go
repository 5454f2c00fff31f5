package variation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/ccdb/internal/model"
)

// Repository is the storage a Resolver needs. Both *store.Store and an open
// *store.Tx implement it.
type Repository interface {
	VariationByName(ctx context.Context, name string) (model.Variation, error)
	VariationByID(ctx context.Context, id int64) (model.Variation, error)
	CreateVariation(ctx context.Context, name, comment string, created time.Time) (model.Variation, error)
	SetVariationParent(ctx context.Context, id, parentID int64) error
}

// Resolver maps variation names to records.
type Resolver struct {
	repo  Repository
	clock model.Clock
}

// NewResolver creates a resolver over repo. A nil clock uses the wall clock.
func NewResolver(repo Repository, clock model.Clock) *Resolver {
	if clock == nil {
		clock = model.SystemClock{}
	}
	return &Resolver{repo: repo, clock: clock}
}

// Resolve returns the named variation, creating it without a parent if it
// does not exist. An empty name resolves to the default variation.
func (r *Resolver) Resolve(ctx context.Context, name string) (model.Variation, error) {
	name = canonicalName(name)
	v, err := r.repo.VariationByName(ctx, name)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.Variation{}, err
	}
	return r.repo.CreateVariation(ctx, name, "", r.clock.Now())
}

// Lookup returns the named variation without creating it.
// Returns model.ErrNotFound if it does not exist.
func (r *Resolver) Lookup(ctx context.Context, name string) (model.Variation, error) {
	return r.repo.VariationByName(ctx, canonicalName(name))
}

// SetParent makes parent the parent of name, creating either variation if
// needed. An empty parent clears the link. Linking a variation to itself or
// to one of its descendants fails with CYCLIC_VARIATION and changes nothing.
func (r *Resolver) SetParent(ctx context.Context, name, parent string) (model.Variation, error) {
	child, err := r.Resolve(ctx, name)
	if err != nil {
		return model.Variation{}, err
	}

	if model.NormalizeName(parent) == "" {
		if err := r.repo.SetVariationParent(ctx, child.ID, 0); err != nil {
			return model.Variation{}, err
		}
		child.ParentID = 0
		return child, nil
	}

	// Check before creating the parent so a rejected link leaves no trace.
	if existing, err := r.repo.VariationByName(ctx, canonicalName(parent)); err == nil {
		chain, err := r.Chain(ctx, existing)
		if err != nil {
			return model.Variation{}, err
		}
		for _, ancestor := range chain {
			if ancestor.ID == child.ID {
				return model.Variation{}, model.NewCyclicVariationError(child.Name, existing.Name)
			}
		}
	} else if !errors.Is(err, model.ErrNotFound) {
		return model.Variation{}, err
	}

	p, err := r.Resolve(ctx, parent)
	if err != nil {
		return model.Variation{}, err
	}
	if err := r.repo.SetVariationParent(ctx, child.ID, p.ID); err != nil {
		return model.Variation{}, err
	}
	child.ParentID = p.ID
	return child, nil
}

// Chain returns v followed by its ancestors, ending at a root. A loop in
// stored data is reported as CYCLIC_VARIATION rather than followed forever.
func (r *Resolver) Chain(ctx context.Context, v model.Variation) ([]model.Variation, error) {
	chain := []model.Variation{v}
	seen := map[int64]bool{v.ID: true}
	for cur := v; cur.HasParent(); {
		parent, err := r.repo.VariationByID(ctx, cur.ParentID)
		if err != nil {
			return nil, fmt.Errorf("variation %q: parent %d: %w", cur.Name, cur.ParentID, err)
		}
		if seen[parent.ID] {
			return nil, model.NewCyclicVariationError(cur.Name, parent.Name)
		}
		seen[parent.ID] = true
		chain = append(chain, parent)
		cur = parent
	}
	return chain, nil
}

func canonicalName(name string) string {
	if n := model.NormalizeName(name); n != "" {
		return n
	}
	return model.DefaultVariationName
}
