package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/session"
)

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenDTO struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       flexID `json:"user_id"`
}

// AuthAPI refreshes credentials. Its client must not carry a TokenSource,
// otherwise a 401 here would recurse into another refresh.
type AuthAPI struct {
	client *Client
}

func NewAuthAPI(client *Client) *AuthAPI {
	return &AuthAPI{client: client}
}

func (a *AuthAPI) Refresh(ctx context.Context, refreshToken string) (session.Credentials, error) {
	var dto tokenDTO
	if err := a.client.do(ctx, http.MethodPost, "/auth/refresh", refreshRequest{RefreshToken: refreshToken}, &dto); err != nil {
		return session.Credentials{}, fmt.Errorf("refresh token: %w", err)
	}
	if dto.AccessToken == "" {
		return session.Credentials{}, fmt.Errorf("refresh token: empty access token")
	}
	return session.Credentials{
		AccessToken:  dto.AccessToken,
		RefreshToken: dto.RefreshToken,
		Subject:      string(dto.UserID),
	}, nil
}
