package video

import (
	"fmt"
	"time"

	config "github.com/engagenetwork/engage-api/configs"
	"github.com/golang-jwt/jwt/v4"
)

// AccessTokenTTL caps how long an issued room credential stays valid.
const AccessTokenTTL = 2 * time.Hour

// AccessToken issues a Twilio video access token scoping the given identity
// to a single room.
func AccessToken(identity, roomSID string) (string, error) {
	accountSID := config.Config("TWILIO_ACCOUNT_SID")
	apiKey := config.Config("TWILIO_API_KEY")
	apiSecret := config.Config("TWILIO_API_SECRET")
	if accountSID == "" || apiKey == "" || apiSecret == "" {
		return "", fmt.Errorf("twilio credentials not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"jti": fmt.Sprintf("%s-%d", apiKey, now.Unix()),
		"iss": apiKey,
		"sub": accountSID,
		"iat": now.Unix(),
		"exp": now.Add(AccessTokenTTL).Unix(),
		"grants": map[string]interface{}{
			"identity": identity,
			"video":    map[string]string{"room": roomSID},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["cty"] = "twilio-fpa;v=1"

	return token.SignedString([]byte(apiSecret))
}
