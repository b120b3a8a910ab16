package model

// ItemStatus is the lifecycle state of a reported item.
type ItemStatus string

const (
	ItemStatusOpen       ItemStatus = "Open"
	ItemStatusInProgress ItemStatus = "In Progress"
	ItemStatusResolved   ItemStatus = "Resolved"
	ItemStatusClosed     ItemStatus = "Closed"
)

// ItemImage is a photo attached to a lost or found item report.
type ItemImage struct {
	ImageID    int    `json:"imageId"`
	ImageURL   string `json:"imageURL"`
	UploadedAt string `json:"uploadedAt"`
	UploadedBy int    `json:"uploadedBy"`
}

// LostItem is a report filed by a user who lost something on campus.
type LostItem struct {
	LostItemID   int         `json:"lostItemId"`
	Title        string      `json:"title,omitempty"`
	Description  string      `json:"description,omitempty"`
	LostDate     string      `json:"lostDate"`
	LostLocation string      `json:"lostLocation"`
	Status       string      `json:"status"`
	CreatedBy    int         `json:"createdBy"`
	CampusID     int         `json:"campusId"`
	CategoryID   int         `json:"categoryId"`
	Category     *Category   `json:"category,omitempty"`
	Images       []ItemImage `json:"images,omitempty"`
}

// FoundItem is an item handed in to campus storage awaiting a claim.
type FoundItem struct {
	FoundItemID   int         `json:"foundItemId"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	FoundDate     string      `json:"foundDate"`
	FoundLocation string      `json:"foundLocation"`
	Status        string      `json:"status"`
	CreatedBy     int         `json:"createdBy"`
	StoredBy      *int        `json:"storedBy,omitempty"`
	CampusID      int         `json:"campusId"`
	CategoryID    int         `json:"categoryId"`
	Category      *Category   `json:"category,omitempty"`
	Campus        *Campus     `json:"campus,omitempty"`
	Images        []ItemImage `json:"images,omitempty"`
}
