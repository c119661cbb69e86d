package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid password")
)

// Service authenticates the single bot operator
type Service struct {
	passwordHash []byte
	issuer       *TokenIssuer
}

func NewService(passwordHash string, issuer *TokenIssuer) *Service {
	return &Service{passwordHash: []byte(passwordHash), issuer: issuer}
}

// LOGIN
func (s *Service) Login(password string) (string, error) {
	if password == "" {
		return "", ErrInvalidCredentials
	}

	err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
	if err != nil {
		return "", ErrInvalidCredentials
	}

	return s.issuer.GenerateToken("admin", RoleAdmin)
}
