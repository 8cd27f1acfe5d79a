package dto

// PasswordResetRequest asks for a reset token for the named user.
type PasswordResetRequest struct {
	Username string `json:"username" validate:"required,min=3,max=255"`
}

// PasswordResetConfirm redeems a previously issued reset token.
type PasswordResetConfirm struct {
	Token string `json:"token" validate:"required,uuid4"`
}

// PasswordResetTokenResponse carries a freshly issued token.
type PasswordResetTokenResponse struct {
	Token string `json:"token"`
}

// PasswordResetConfirmResponse identifies the user the consumed token belonged to.
type PasswordResetConfirmResponse struct {
	UserID uint `json:"user_id"`
}
