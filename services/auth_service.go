package services

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// AuthUser is the identity resolved from a bearer token.
type AuthUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// AuthService resolves bearer tokens against the external auth collaborator.
type AuthService struct {
	client  *resty.Client
	baseURL string
}

func NewAuthService(baseURL string) *AuthService {
	return &AuthService{
		client:  resty.New(),
		baseURL: baseURL,
	}
}

type authUserResponse struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	UserMetadata struct {
		FullName string `json:"full_name"`
		Role     string `json:"role"`
	} `json:"user_metadata"`
}

// ResolveToken exchanges a bearer token for the caller's identity and role.
func (s *AuthService) ResolveToken(token string) (AuthUser, error) {
	resp, err := s.client.R().
		SetHeader("Authorization", "Bearer "+token).
		Get(s.baseURL + "/auth/v1/user")
	if err != nil {
		return AuthUser{}, fmt.Errorf("auth request failed: %v", err)
	}

	if resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden {
		return AuthUser{}, ErrUnauthorized
	}
	if resp.StatusCode() != http.StatusOK {
		return AuthUser{}, fmt.Errorf("auth service returned status %d", resp.StatusCode())
	}

	var result authUserResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return AuthUser{}, fmt.Errorf("failed to parse auth response: %v", err)
	}
	if result.ID == "" {
		return AuthUser{}, ErrUnauthorized
	}

	return AuthUser{
		ID:       result.ID,
		Email:    result.Email,
		FullName: result.UserMetadata.FullName,
		Role:     result.UserMetadata.Role,
	}, nil
}
