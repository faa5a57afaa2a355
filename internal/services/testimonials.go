package services

import (
	"context"
	"fmt"

	"financeflow/internal/core"
	"financeflow/internal/records"
)

// Testimonials serves the read-only customer quotes.
type Testimonials struct {
	repo records.Reader[core.Testimonial]
}

// NewTestimonials wraps repo. A nil repo serves an empty collection.
func NewTestimonials(repo records.Reader[core.Testimonial]) *Testimonials {
	return &Testimonials{repo: repo}
}

func (t *Testimonials) List(ctx context.Context) ([]core.Testimonial, error) {
	if t.repo == nil {
		return []core.Testimonial{}, nil
	}
	items, err := t.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", records.KindTestimonials, err)
	}
	return items, nil
}

// Featured returns the testimonials rated core.FeaturedRating or higher.
func (t *Testimonials) Featured(ctx context.Context) ([]core.Testimonial, error) {
	items, err := t.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Testimonial, 0, len(items))
	for _, it := range items {
		if it.Featured() {
			out = append(out, it)
		}
	}
	return out, nil
}

// Get returns ErrNotFound when no testimonial has id.
func (t *Testimonials) Get(ctx context.Context, id int64) (core.Testimonial, error) {
	if t.repo == nil {
		return core.Testimonial{}, ErrNotFound
	}
	rec, err := t.repo.GetByID(ctx, id)
	if err != nil {
		return core.Testimonial{}, fmt.Errorf("get %s %d: %w", records.KindTestimonials, id, err)
	}
	if rec == nil {
		return core.Testimonial{}, ErrNotFound
	}
	return *rec, nil
}
