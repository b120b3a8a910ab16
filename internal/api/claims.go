package api

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ndthang/campusfind/internal/model"
)

// Claims exposes the claim request endpoints.
type Claims struct {
	c *Client
}

// NewClaims creates the claims service.
func NewClaims(c *Client) *Claims {
	return &Claims{c: c}
}

// Mine returns the current user's claim requests.
func (s *Claims) Mine(ctx context.Context) ([]model.ClaimRequest, error) {
	var claims []model.ClaimRequest
	if err := s.c.GetCached(ctx, EndpointMyClaims, &claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Get returns a single claim request by id.
func (s *Claims) Get(ctx context.Context, id int) (*model.ClaimRequest, error) {
	var claim model.ClaimRequest
	path := fmt.Sprintf("%s/%d", EndpointClaims, id)
	if err := s.c.GetCached(ctx, path, &claim); err != nil {
		return nil, err
	}
	return &claim, nil
}

// CreateClaimRequest holds the form fields for claiming a found item.
// Evidence images are attached as multipart file parts.
type CreateClaimRequest struct {
	FoundItemID         int
	LostItemID          int
	EvidenceTitle       string
	EvidenceDescription string
	CampusID            int
	EvidenceImages      []FileAttachment
}

// Create submits a claim on a found item as a multipart payload.
func (s *Claims) Create(ctx context.Context, req CreateClaimRequest) (*model.ClaimRequest, error) {
	fields := [][2]string{
		{"FoundItemId", strconv.Itoa(req.FoundItemID)},
		{"EvidenceTitle", req.EvidenceTitle},
		{"EvidenceDescription", req.EvidenceDescription},
		{"CampusId", strconv.Itoa(req.CampusID)},
	}
	if req.LostItemID != 0 {
		fields = append(fields, [2]string{"LostItemId", strconv.Itoa(req.LostItemID)})
	}

	files := make([]FileAttachment, 0, len(req.EvidenceImages))
	for _, img := range req.EvidenceImages {
		img.Field = "EvidenceImages"
		files = append(files, img)
	}

	var claim model.ClaimRequest
	if err := s.c.PostMultipart(ctx, EndpointClaims, fields, files, &claim); err != nil {
		return nil, err
	}
	return &claim, nil
}
