package utils

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt"
)

// TokenClaims are the claims of an access token. The subject is the user id.
type TokenClaims struct {
	UserID uint `json:"user_id"`
	jwt.StandardClaims
}

// GenerateToken signs an HS256 access token for a user
func GenerateToken(userID uint, secret string) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		UserID: userID,
		StandardClaims: jwt.StandardClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    AppName,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(JWTExpiration).Unix(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ValidateToken validates an access token and returns the user ID
func ValidateToken(tokenString, secret string) (uint, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return 0, err
	}
	if !token.Valid {
		return 0, errors.New("invalid token")
	}
	if !claims.VerifyIssuer(AppName, true) {
		return 0, errors.New("token issued by another service")
	}
	if claims.UserID == 0 {
		return 0, errors.New("invalid user ID in token")
	}
	return claims.UserID, nil
}
