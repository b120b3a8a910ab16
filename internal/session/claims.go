package session

import (
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ndthang/campusfind/internal/model"
)

// decodeClaims extracts the identity claims embedded in a bearer token.
// The token is decoded for client-side display only, so the signature
// is not verified. Malformed tokens degrade to a zero-valued identity
// rather than failing the login that produced them.
func decodeClaims(token string) model.User {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return model.User{}
	}

	return model.User{
		UserID:   claimInt(claims, "nameid"),
		Email:    claimString(claims, "email"),
		RoleID:   claimInt(claims, "role"),
		CampusID: claimInt(claims, "CampusId"),
		Status:   "Active",
	}
}

// claimString returns the claim as a string, or "" when absent or not
// a string.
func claimString(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

// claimInt returns the claim as an int. The backend encodes numeric
// claims as strings; JSON numbers are accepted too. Anything else
// yields zero.
func claimInt(claims jwt.MapClaims, key string) int {
	switch v := claims[key].(type) {
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0
		}
		return n
	case float64:
		return int(v)
	default:
		return 0
	}
}
