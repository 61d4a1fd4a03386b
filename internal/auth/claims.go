package auth

import "github.com/golang-jwt/jwt/v5"

// TokenTypeGateway marks tokens minted for callers of the invoke gateway.
const TokenTypeGateway = "gateway"

// Claims are the only supported JWT claims shape for the gateway. Subject
// names the calling integration (a contact-flow test harness, a proxy).
type Claims struct {
	jwt.RegisteredClaims

	TokenType string `json:"token_type"`
}
