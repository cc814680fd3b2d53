package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"medisync/internal/audit"
	emailaddr "medisync/internal/auth/email"
	"medisync/internal/auth/models"
	credentialStore "medisync/internal/auth/store/credential"
	dErrors "medisync/pkg/domain-errors"
)

// Register creates a new credential. Usernames and emails are unique across
// the store, compared case-insensitively.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (credential *models.Credential, err error) {
	ctx, span := s.tracer.Start(ctx, "auth.register")
	defer func() { span.End(err) }()

	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if username == "" || email == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "username and email are required")
	}
	if !emailaddr.IsValid(email) {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid email address")
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	for _, identifier := range []string{username, email} {
		_, err := s.credentials.FindByIdentifier(ctx, identifier)
		if err == nil {
			return nil, dErrors.New(dErrors.CodeConflict, "username or email already registered")
		}
		if !errors.Is(err, credentialStore.ErrNotFound) {
			return nil, err
		}
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	credential = &models.Credential{
		UserID:            uuid.New(),
		Username:          username,
		Email:             email,
		Role:              req.Role,
		PasswordHash:      hash,
		PasswordChangedAt: now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.recordAuthEvent(ctx, audit.EventRegister, credential.UserID, req.IPAddress, req.UserAgent); err != nil {
		return nil, err
	}
	if err := s.credentials.Save(ctx, credential); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "credential registered",
		"user_id", credential.UserID.String(),
		"role", credential.Role,
	)
	return credential, nil
}
