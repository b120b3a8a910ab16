package model

// User is the authenticated identity attached to a session. The fields
// decoded from the bearer token are populated at login; the remaining
// fields are filled in later by a profile fetch and may lag behind the
// token claims until refreshed.
type User struct {
	// UserID is the numeric account identifier from the token claims.
	UserID int `json:"userId"`

	// Username is the account's login name.
	Username string `json:"username"`

	// Email is the account email from the token claims.
	Email string `json:"email"`

	// FullName is the display name, populated by the profile fetch.
	FullName string `json:"fullName"`

	// RoleID is the numeric role identifier from the token claims.
	RoleID int `json:"roleId"`

	// Status is the account status (e.g. "Active").
	Status string `json:"status"`

	// CampusID identifies the campus this account belongs to.
	CampusID int `json:"campusId"`

	// PhoneNumber is an optional contact number from the profile.
	PhoneNumber string `json:"phoneNumber,omitempty"`

	// RoleName is the human-readable role, populated by the profile fetch.
	RoleName string `json:"roleName"`

	// CampusName is the human-readable campus, populated by the profile fetch.
	CampusName string `json:"campusName"`

	// StudentIDCardURL points at the uploaded verification image, if any.
	StudentIDCardURL string `json:"studentIdCardUrl,omitempty"`
}

// LoginRequest is the credential payload sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the login endpoint's success body.
type LoginResponse struct {
	Token string `json:"token"`
}

// RegisterRequest holds the registration form fields. The optional
// student id card image travels alongside as a multipart attachment,
// not inside this struct.
type RegisterRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	FullName    string `json:"fullName"`
	CampusID    int    `json:"campusId"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}
