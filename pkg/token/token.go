// Package token extracts the stream identity from a subscriber's access token.
//
// The token is a JWT signed by the application backend. The media server verifies the signature;
// the subscriber only needs to know which application and stream the token is for, so the claims
// are read without verification.
package token

import (
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v3/jwt"
)

var ErrInvalidToken = errors.New("invalid token")

// The identity a token grants access to.
type Claims struct {
	AppID    string `json:"appID"`
	StreamID string `json:"streamID"`
}

// Decodes a raw token into claims. Swappable so that callers (and tests) can use a different
// credential format.
type Decoder func(raw string) (*Claims, error)

// Decodes the claims of a compact JWS token without checking its signature.
// Fails with `ErrInvalidToken` if the token can't be parsed or if it doesn't name both
// an application and a stream.
func Decode(raw string) (*Claims, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	parsed, err := jwt.ParseSigned(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err)
	}

	claims := Claims{}
	if err := parsed.UnsafeClaimsWithoutVerification(&claims); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err)
	}

	if claims.AppID == "" || claims.StreamID == "" {
		return nil, fmt.Errorf("%w: appID and streamID are required", ErrInvalidToken)
	}

	return &claims, nil
}
