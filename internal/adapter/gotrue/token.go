package gotrue

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/srgjo27/westudy/internal/core/domain"
)

var errMissingAccessToken = errors.New("auth response has no access token")

type providerUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (u providerUser) toUser() *domain.User {
	if u.ID == "" && u.Email == "" {
		return nil
	}

	user := &domain.User{ID: u.ID, Email: u.Email}
	if name, ok := u.UserMetadata["name"].(string); ok {
		user.Name = name
	}
	if avatar, ok := u.UserMetadata["avatar_url"].(string); ok {
		user.AvatarURL = avatar
	}
	return user
}

type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int64         `json:"expires_in"`
	ExpiresAt    int64         `json:"expires_at"`
	User         *providerUser `json:"user"`
}

// signUpResponse is either a token response or, when email confirmation is
// on, the user object itself at the top level.
type signUpResponse struct {
	tokenResponse
	providerUser
}

// sessionFrom fills the gaps of a token response from the access token's own
// claims: expiry from exp, user id from sub.
func (p *Provider) sessionFrom(resp tokenResponse) (*domain.Session, error) {
	if resp.AccessToken == "" {
		return nil, errMissingAccessToken
	}

	session := &domain.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		ExpiresIn:    resp.ExpiresIn,
		ExpiresAt:    resp.ExpiresAt,
	}
	if session.TokenType == "" {
		session.TokenType = "bearer"
	}
	if resp.User != nil {
		session.User = resp.User.toUser()
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(resp.AccessToken, claims); err != nil {
		p.logger.Debug("access token is not a readable JWT")
	} else {
		if session.ExpiresAt == 0 {
			if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
				session.ExpiresAt = exp.Unix()
			}
		}
		if session.User == nil {
			if sub, err := claims.GetSubject(); err == nil && sub != "" {
				session.User = &domain.User{ID: sub}
			}
		}
	}

	if session.ExpiresAt == 0 && session.ExpiresIn > 0 {
		session.ExpiresAt = p.now().Add(time.Duration(session.ExpiresIn) * time.Second).Unix()
	}

	return session, nil
}
