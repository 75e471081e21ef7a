package domain

import "github.com/golang-jwt/jwt/v4"

const (
	RoleAdmin    = "admin"
	RoleReporter = "reporter"
)

// Claims carries the class a reporter is allowed to report for.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	ClassID  string `json:"class_id,omitempty"`
	jwt.RegisteredClaims
}
