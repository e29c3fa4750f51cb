package entities

import "time"

// Credential holds the secrets for one external channel account: the access
// token for outbound API calls, the channel secret for webhook signature
// verification, and the verify token echoed back during webhook handshakes.
// One credential set may back many conversations on that platform.
//
// Database rows take precedence over environment defaults; env values only
// seed an initial row per platform when the table has none.
type Credential struct {
	ID            int       `json:"id"`
	Platform      string    `json:"platform"`
	Label         string    `json:"label"`
	AccessToken   string    `json:"access_token"`
	ChannelSecret string    `json:"channel_secret"`
	VerifyToken   string    `json:"verify_token"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Redacted returns a copy safe for API responses: secrets are masked down to
// a short suffix so admins can still tell credentials apart.
func (c Credential) Redacted() Credential {
	c.AccessToken = maskSecret(c.AccessToken)
	c.ChannelSecret = maskSecret(c.ChannelSecret)
	return c
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
