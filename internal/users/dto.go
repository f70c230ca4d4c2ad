package users

import "time"

type registerRequest struct {
	Username string `json:"username" binding:"required,max=50"`
	LastName string `json:"lastName" binding:"required,max=50"`
	Password string `json:"password" binding:"required,min=6,max=100"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type updateRequest struct {
	Username *string `json:"username" binding:"omitempty,max=50"`
	LastName *string `json:"lastName" binding:"omitempty,max=50"`
	Role     *string `json:"role" binding:"omitempty,oneof=user admin"`
}

type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	LastName  string    `json:"lastName"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

func toResponse(u User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		LastName:  u.LastName,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
