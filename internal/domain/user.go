package domain

import "time"

type User struct {
	ID                  string    `json:"id"`
	Username            string    `json:"username" validate:"required,min=3,max=30,alphanum"`
	Password            string    `json:"password,omitempty"` // bcrypt hash; stripped from responses
	PublicKey           string    `json:"public_key"`
	EncryptedPrivateKey string    `json:"encrypted_private_key"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Identity returns the public part of the user's key material.
func (u *User) Identity() *Identity {
	return &Identity{
		StableID:            u.Username,
		PublicKey:           u.PublicKey,
		EncryptedPrivateKey: u.EncryptedPrivateKey,
	}
}

// Identity is what the storage service knows about a user's key pair:
// the public key and the private key wrapped under the password-derived
// key. StableID is the salt of that derivation.
type Identity struct {
	StableID            string `json:"stable_id"`
	PublicKey           string `json:"public_key"`
	EncryptedPrivateKey string `json:"encrypted_private_key"`
}

type PublicUser struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	PublicKey string `json:"public_key"`
}

type RegisterRequest struct {
	Username            string `json:"username" validate:"required,min=3,max=30,alphanum"`
	Password            string `json:"password" validate:"required"`
	PublicKey           string `json:"public_key" validate:"required,base64"`
	EncryptedPrivateKey string `json:"encrypted_private_key" validate:"required,base64"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type ChangePasswordRequest struct {
	OldPassword         string  `json:"old_password" validate:"required"`
	NewPassword         string  `json:"new_password" validate:"required"`
	EncryptedPrivateKey *string `json:"encrypted_private_key,omitempty" validate:"omitempty,base64"`
}

type ChangeKeysRequest struct {
	PublicKey           string `json:"public_key" validate:"required,base64"`
	EncryptedPrivateKey string `json:"encrypted_private_key" validate:"required,base64"`
}
