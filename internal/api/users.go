package api

import (
	"context"
	"strconv"

	"github.com/ndthang/campusfind/internal/model"
)

// Users exposes the account endpoints: login, registration, profile,
// and the student id card upload used for identity verification.
type Users struct {
	c *Client
}

// NewUsers creates the users service on top of the shared client.
func NewUsers(c *Client) *Users {
	return &Users{c: c}
}

// Login exchanges credentials for a bearer token. A 4xx response
// surfaces as a credential error (see IsCredentialError); it does not
// distinguish unknown email from wrong password, matching the server's
// enumeration-resistant behavior.
func (s *Users) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	var resp model.LoginResponse
	if err := s.c.PostPublic(ctx, EndpointLogin, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register submits the registration form as a multipart payload, with
// the student id card image attached when provided. The response is
// the created user record; no token is returned, so the caller must
// log in separately.
func (s *Users) Register(
	ctx context.Context,
	req model.RegisterRequest,
	idCard *FileAttachment,
) (*model.User, error) {
	fields := [][2]string{
		{"username", req.Username},
		{"email", req.Email},
		{"password", req.Password},
		{"fullName", req.FullName},
		{"campusId", strconv.Itoa(req.CampusID)},
	}
	if req.PhoneNumber != "" {
		fields = append(fields, [2]string{"phoneNumber", req.PhoneNumber})
	}

	var files []FileAttachment
	if idCard != nil {
		f := *idCard
		if f.Field == "" {
			f.Field = "studentIdCard"
		}
		files = append(files, f)
	}

	var user model.User
	if err := s.c.PostMultipartPublic(ctx, EndpointRegister, fields, files, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Profile fetches the extended identity record for the current bearer
// token: role name, campus name, phone number, and the verification
// image URL.
func (s *Users) Profile(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := s.c.Get(ctx, EndpointUserProfile, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UploadStudentIDCard uploads a verification image for the current
// account.
func (s *Users) UploadStudentIDCard(ctx context.Context, image FileAttachment) error {
	if image.Field == "" {
		image.Field = "studentIdCard"
	}
	return s.c.PostMultipart(ctx, EndpointUploadStudentID, nil, []FileAttachment{image}, nil)
}
