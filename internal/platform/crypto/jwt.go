package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by access tokens. ID (jti) is used for logout blacklisting.
type Claims struct {
	Sub  string `json:"sub"`  // user id
	Role string `json:"role"` // USER/ADMIN
	jwt.RegisteredClaims
}

func generateJTI() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// GenerateToken signs an HS256 access token and returns it with its jti.
func GenerateToken(secret, userID, role string, ttl time.Duration) (string, string, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", "", err
	}

	now := time.Now()
	c := Claims{
		Sub:  userID,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	tokenStr, err := t.SignedString([]byte(secret))
	if err != nil {
		return "", "", err
	}
	return tokenStr, jti, nil
}

func ParseToken(secret, tokenStr string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims, ok := t.Claims.(*Claims); ok && t.Valid {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}
