package model

// ClaimStatus is the review state of a claim request.
type ClaimStatus string

const (
	ClaimStatusPending  ClaimStatus = "Pending"
	ClaimStatusApproved ClaimStatus = "Approved"
	ClaimStatusRejected ClaimStatus = "Rejected"
)

// ClaimRequest is a user's assertion that a found item belongs to them.
type ClaimRequest struct {
	ClaimID             int        `json:"claimId"`
	ClaimDate           string     `json:"claimDate"`
	Status              string     `json:"status"`
	FoundItemID         int        `json:"foundItemId"`
	LostItemID          *int       `json:"lostItemId,omitempty"`
	StudentID           int        `json:"studentId"`
	EvidenceTitle       string     `json:"evidenceTitle,omitempty"`
	EvidenceDescription string     `json:"evidenceDescription,omitempty"`
	FoundItem           *FoundItem `json:"foundItem,omitempty"`
}
