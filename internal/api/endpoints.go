package api

// Endpoint paths relative to the API base URL.
const (
	EndpointLogin           = "/Users/login"
	EndpointRegister        = "/Users/register"
	EndpointUserProfile     = "/Users/profile"
	EndpointUploadStudentID = "/Users/upload-student-id-card"
	EndpointLostItems       = "/lost-items"
	EndpointMyLostItems     = "/lost-items/my-items"
	EndpointFoundItems      = "/FoundItems"
	EndpointMyFoundItems    = "/FoundItems/my-items"

	// Found items are reported through a dedicated public path; the
	// collection root is read-only.
	EndpointFoundItemsPublic = "/FoundItems/public"

	EndpointClaims     = "/ClaimRequests"
	EndpointMyClaims   = "/ClaimRequests/my-claims"
	EndpointCategories = "/Categories"
	EndpointCampuses   = "/Campus/enum-values"
)
