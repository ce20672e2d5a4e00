package testutils

import (
	"testing"

	"github.com/go-jose/go-jose/v3"
	"github.com/go-jose/go-jose/v3/jwt"
)

const TokenSecret = "not-a-real-secret-but-long-enough"

// Issues a token the way the application backend does (HS256 JWT with `appID`/`streamID` claims).
// Empty values are left out of the claims.
func SignedToken(t testing.TB, appID, streamID string) string {
	t.Helper()

	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: []byte(TokenSecret)},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		t.Fatalf("failed to create signer: %v", err)
	}

	claims := map[string]interface{}{}
	if appID != "" {
		claims["appID"] = appID
	}
	if streamID != "" {
		claims["streamID"] = streamID
	}

	raw, err := jwt.Signed(signer).Claims(claims).CompactSerialize()
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	return raw
}
