package api

import (
	"context"

	"github.com/ndthang/campusfind/internal/model"
)

// Catalog exposes the reference-data endpoints: item categories and
// campuses. Campuses are public since the registration form needs them
// before any session exists.
type Catalog struct {
	c *Client
}

// NewCatalog creates the catalog service.
func NewCatalog(c *Client) *Catalog {
	return &Catalog{c: c}
}

// Categories returns the item categories.
func (s *Catalog) Categories(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	if err := s.c.GetCached(ctx, EndpointCategories, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// Campuses returns the campus enumeration. No authentication required.
func (s *Catalog) Campuses(ctx context.Context) ([]model.Campus, error) {
	var campuses []model.Campus
	if err := s.c.GetPublic(ctx, EndpointCampuses, &campuses); err != nil {
		return nil, err
	}
	return campuses, nil
}
