package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const accessTokenTTL = 15 * time.Minute

// Roles carried in access tokens. Staff covers door scanners and
// box-office terminals; organizers manage pricing and policies.
const (
	RoleAttendee  = "attendee"
	RoleStaff     = "staff"
	RoleOrganizer = "organizer"
)

// AccessClaims represents access claims.
type AccessClaims struct {
	UserID int64  `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// SignAccessToken signs access token.
func SignAccessToken(secret string, userID int64, role string) (string, error) {
	if role == "" {
		role = RoleAttendee
	}
	claims := AccessClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(accessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   "user",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseAccessToken parses access token.
func ParseAccessToken(secret string, tokenString string) (*AccessClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// CanCheckIn reports whether the role may mark tickets used.
func (c *AccessClaims) CanCheckIn() bool {
	return c.Role == RoleStaff || c.Role == RoleOrganizer
}

// CanManagePricing reports whether the role may edit ticket types,
// promo codes, discounts, tax rules and refund policies.
func (c *AccessClaims) CanManagePricing() bool {
	return c.Role == RoleOrganizer
}
