package services

import (
	"context"
	"errors"
	"testing"

	"financeflow/internal/core"
	"financeflow/internal/records/memory"
)

func TestTestimonials(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewCollection([]core.Testimonial{
		{ID: 1, Name: "Ana", Quote: "No more late fees", Rating: 5},
		{ID: 2, Name: "Ben", Quote: "Handy", Rating: 4},
		{ID: 3, Name: "Cleo", Quote: "Love the trend view", Rating: 5},
	}, nil)
	svc := NewFinanceService(memory.New(), nil, WithTestimonials(repo))

	all, err := svc.Testimonials.List(ctx)
	if err != nil || len(all) != 3 {
		t.Fatalf("List() = %+v, %v", all, err)
	}
	featured, err := svc.Testimonials.Featured(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(featured) != 2 || featured[0].ID != 1 || featured[1].ID != 3 {
		t.Errorf("Featured() = %+v", featured)
	}
	if got, err := svc.Testimonials.Get(ctx, 2); err != nil || got.Name != "Ben" {
		t.Errorf("Get(2) = %+v, %v", got, err)
	}
	if _, err := svc.Testimonials.Get(ctx, 9); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(9) error = %v, want ErrNotFound", err)
	}
}

func TestTestimonials_DefaultEmpty(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	all, err := svc.Testimonials.List(ctx)
	if err != nil || all == nil || len(all) != 0 {
		t.Errorf("List() = %#v, %v", all, err)
	}
	if _, err := svc.Testimonials.Get(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(1) error = %v, want ErrNotFound", err)
	}
}
