// Package tempurl signs and verifies the capability tokens embedded in
// transfer URLs. A tempurl grants chunk access to exactly one upload session
// or one stored object until it expires.
package tempurl

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/gophxfer/internal/common"
)

// Kind of access granted by a tempurl.
type Kind string

const (
	KindUpload   Kind = "ul"
	KindDownload Kind = "dl"
)

// Claims are the registered claims plus the granted object.
type Claims struct {
	jwt.RegisteredClaims
	Kind   Kind   `json:"knd"`
	Object string `json:"obj"`
	Size   int64  `json:"sz"`
}

// Issue returns a signed token granting kind access to object.
func Issue(kind Kind, object string, size int64, secretKey []byte, validity time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validity)),
		},
		Kind:   kind,
		Object: object,
		Size:   size,
	})

	return token.SignedString(secretKey)
}

// Parse verifies tokenString and checks it grants kind access.
func Parse(tokenString string, kind Kind, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.Kind != kind {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
