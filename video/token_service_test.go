package video

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func TestAccessToken(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "ACxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx")
	t.Setenv("TWILIO_API_KEY", "SKxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx")
	t.Setenv("TWILIO_API_SECRET", "topsecret")

	signed, err := AccessToken("user-123", "RM123")
	if err != nil {
		t.Fatalf("token issuance failed: %v", err)
	}

	token, err := jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		return []byte("topsecret"), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("expected a valid token, got error: %v", err)
	}

	if cty, _ := token.Header["cty"].(string); cty != "twilio-fpa;v=1" {
		t.Fatalf("expected twilio content type header, got %q", cty)
	}

	claims := token.Claims.(jwt.MapClaims)
	if claims["iss"] != "SKxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx" {
		t.Fatalf("expected issuer to be the API key, got %v", claims["iss"])
	}
	if claims["sub"] != "ACxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx" {
		t.Fatalf("expected subject to be the account sid, got %v", claims["sub"])
	}

	grants, ok := claims["grants"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected grants claim, got %v", claims["grants"])
	}
	if grants["identity"] != "user-123" {
		t.Fatalf("expected identity grant, got %v", grants["identity"])
	}
	videoGrant, ok := grants["video"].(map[string]interface{})
	if !ok || videoGrant["room"] != "RM123" {
		t.Fatalf("expected token scoped to room RM123, got %v", grants["video"])
	}

	exp := int64(claims["exp"].(float64))
	iat := int64(claims["iat"].(float64))
	if exp-iat != int64(AccessTokenTTL/time.Second) {
		t.Fatalf("expected 2 hour ttl, got %d seconds", exp-iat)
	}
}

func TestAccessTokenRequiresCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_API_KEY", "")
	t.Setenv("TWILIO_API_SECRET", "")

	if _, err := AccessToken("user-123", "RM123"); err == nil {
		t.Fatalf("expected error without credentials")
	}
}
