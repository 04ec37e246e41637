package dto

import "github.com/ahmetcoskunkizilkaya/relatai-backend/internal/models"

type UserResponse struct {
	User    *models.User `json:"user"`
	Created bool         `json:"created"`
}
