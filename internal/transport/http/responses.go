package httptransport

import "escuela/internal/registration/models"

type RegisterResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token"`
}

type UserInfo struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type VerifyResponse struct {
	Success bool     `json:"success"`
	User    UserInfo `json:"user"`
}

type DepartmentsResponse struct {
	Success      bool                `json:"success"`
	Data         []models.GroupCount `json:"data"`
	TotalGeneral int                 `json:"totalGeneral"`
}

type ListResponse struct {
	Success bool                   `json:"success"`
	Data    []*models.Registration `json:"data"`
	Total   int                    `json:"total"`
}

type StatisticsResponse struct {
	Success bool               `json:"success"`
	Data    *models.Statistics `json:"data"`
}
