package api

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ndthang/campusfind/internal/model"
)

// LostItems exposes the lost item report endpoints.
type LostItems struct {
	c *Client
}

// NewLostItems creates the lost items service.
func NewLostItems(c *Client) *LostItems {
	return &LostItems{c: c}
}

// List returns all lost item reports visible to the current user.
func (s *LostItems) List(ctx context.Context) ([]model.LostItem, error) {
	var items []model.LostItem
	if err := s.c.GetCached(ctx, EndpointLostItems, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Mine returns the lost item reports filed by the current user.
func (s *LostItems) Mine(ctx context.Context) ([]model.LostItem, error) {
	var items []model.LostItem
	if err := s.c.GetCached(ctx, EndpointMyLostItems, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Get returns a single lost item report by id.
func (s *LostItems) Get(ctx context.Context, id int) (*model.LostItem, error) {
	var item model.LostItem
	path := fmt.Sprintf("%s/%d", EndpointLostItems, id)
	if err := s.c.GetCached(ctx, path, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateLostItemRequest holds the form fields for a new lost item
// report. Images are attached as multipart file parts.
type CreateLostItemRequest struct {
	Title        string
	Description  string
	LostDate     string
	LostLocation string
	CampusID     int
	CategoryID   int
	Images       []FileAttachment
}

// Create files a new lost item report as a multipart payload.
func (s *LostItems) Create(ctx context.Context, req CreateLostItemRequest) (*model.LostItem, error) {
	fields := [][2]string{
		{"Title", req.Title},
		{"Description", req.Description},
		{"LostDate", req.LostDate},
		{"LostLocation", req.LostLocation},
		{"CampusId", strconv.Itoa(req.CampusID)},
		{"CategoryId", strconv.Itoa(req.CategoryID)},
	}

	files := make([]FileAttachment, 0, len(req.Images))
	for _, img := range req.Images {
		img.Field = "Images"
		files = append(files, img)
	}

	var item model.LostItem
	if err := s.c.PostMultipart(ctx, EndpointLostItems, fields, files, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// FoundItems exposes the found item endpoints.
type FoundItems struct {
	c *Client
}

// NewFoundItems creates the found items service.
func NewFoundItems(c *Client) *FoundItems {
	return &FoundItems{c: c}
}

// List returns the found items held in campus storage.
func (s *FoundItems) List(ctx context.Context) ([]model.FoundItem, error) {
	var items []model.FoundItem
	if err := s.c.GetCached(ctx, EndpointFoundItems, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Mine returns the found items reported by the current user.
func (s *FoundItems) Mine(ctx context.Context) ([]model.FoundItem, error) {
	var items []model.FoundItem
	if err := s.c.GetCached(ctx, EndpointMyFoundItems, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Get returns a single found item by id. The detail view carries the
// authenticated user's relationship to the item, so it is served from
// a dedicated sub-resource.
func (s *FoundItems) Get(ctx context.Context, id int) (*model.FoundItem, error) {
	var item model.FoundItem
	path := fmt.Sprintf("%s/%d/user-details", EndpointFoundItems, id)
	if err := s.c.GetCached(ctx, path, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateFoundItemRequest holds the form fields for reporting a found
// item.
type CreateFoundItemRequest struct {
	Title         string
	Description   string
	FoundDate     string
	FoundLocation string
	CampusID      int
	CategoryID    int
	Images        []FileAttachment
}

// Create reports a newly found item as a multipart payload.
func (s *FoundItems) Create(ctx context.Context, req CreateFoundItemRequest) (*model.FoundItem, error) {
	fields := [][2]string{
		{"Title", req.Title},
		{"Description", req.Description},
		{"FoundDate", req.FoundDate},
		{"FoundLocation", req.FoundLocation},
		{"CampusId", strconv.Itoa(req.CampusID)},
		{"CategoryId", strconv.Itoa(req.CategoryID)},
	}

	files := make([]FileAttachment, 0, len(req.Images))
	for _, img := range req.Images {
		img.Field = "Images"
		files = append(files, img)
	}

	var item model.FoundItem
	if err := s.c.PostMultipart(ctx, EndpointFoundItemsPublic, fields, files, &item); err != nil {
		return nil, err
	}
	return &item, nil
}
