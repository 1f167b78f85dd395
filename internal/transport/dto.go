package transport

import "github.com/Skotchmaster/survey_builder/internal/models"

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type UserResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:       u.ID.String(),
		Email:    u.Email,
		Role:     u.Role,
		IsActive: u.IsActive,
	}
}

type CreatedResponse struct {
	ID string `json:"id"`
}

type SurveyListResponse struct {
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Size  int             `json:"size"`
	Items []models.Survey `json:"items"`
}
