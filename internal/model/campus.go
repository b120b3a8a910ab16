package model

// Campus is a physical university location with its own lost-and-found
// storage.
type Campus struct {
	CampusID        int    `json:"campusId"`
	CampusName      string `json:"campusName"`
	Address         string `json:"address,omitempty"`
	StorageLocation string `json:"storageLocation,omitempty"`
}

// Category classifies reported items (electronics, documents, ...).
type Category struct {
	CategoryID   int    `json:"categoryId"`
	CategoryName string `json:"categoryName"`
}
