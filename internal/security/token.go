package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ServiceClaims identify a calling backend service. This API sits behind the
// platform gateway; end-user authentication never reaches it.
type ServiceClaims struct {
	Service  string `json:"svc"`
	Uploader string `json:"upl,omitempty"`
	jwt.RegisteredClaims
}

func GenerateServiceToken(secret string, service string, uploaderID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := ServiceClaims{
		Service:  service,
		Uploader: uploaderID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   service,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

func ParseServiceToken(tokenStr string, secret string) (*ServiceClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &ServiceClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*ServiceClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}
