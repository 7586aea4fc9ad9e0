package client

import (
	"encoding/base64"
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrTokenRequired is returned by Login when no token is available.
	ErrTokenRequired = errors.New("client: token is required")

	// ErrInvalidTokenFormat is returned for tokens that do not look like a
	// bot token.
	ErrInvalidTokenFormat = errors.New("client: invalid token format")
)

var (
	tokenPattern = regexp.MustCompile(`(?i)^(mfa\.)?[\w-]{24,}\.[\w-]{6,}\.[\w-]{27}`)
	tokenPrefix  = regexp.MustCompile(`(?i)^(Bot|Bearer)\s*`)
)

// NormalizeToken strips a leading "Bot " or "Bearer " scheme.
func NormalizeToken(token string) string {
	return tokenPrefix.ReplaceAllString(strings.TrimSpace(token), "")
}

// ValidateToken checks the shape of a normalized token.
func ValidateToken(token string) error {
	if token == "" {
		return ErrTokenRequired
	}
	if !tokenPattern.MatchString(token) {
		return ErrInvalidTokenFormat
	}
	return nil
}

// UserIDFromToken decodes the user id carried in the first token segment.
func UserIDFromToken(token string) (string, error) {
	first, _, _ := strings.Cut(NormalizeToken(token), ".")
	if first == "" {
		return "", ErrTokenRequired
	}
	for _, enc := range []*base64.Encoding{
		base64.RawStdEncoding,
		base64.StdEncoding,
		base64.RawURLEncoding,
		base64.URLEncoding,
	} {
		if id, err := enc.DecodeString(first); err == nil {
			return string(id), nil
		}
	}
	return "", ErrInvalidTokenFormat
}

// Mention returns the chat mention markup for a user id.
func Mention(userID string) string {
	return "<@" + userID + ">"
}
