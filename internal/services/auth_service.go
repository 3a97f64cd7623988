package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/project-tracker-api/internal/auth"
	"github.com/yukikurage/project-tracker-api/internal/constants"
	apierrors "github.com/yukikurage/project-tracker-api/internal/errors"
	"github.com/yukikurage/project-tracker-api/internal/events"
	"github.com/yukikurage/project-tracker-api/internal/models"
	"github.com/yukikurage/project-tracker-api/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrTokenRevoked       = errors.New("token has been revoked")
)

// blockedEmailDomains cannot be used to register.
var blockedEmailDomains = []string{"mail.ru"}

// AuthService handles registration, login and token lifecycle.
type AuthService struct {
	base
	tokens *auth.TokenManager
}

// NewAuthService creates a new AuthService.
func NewAuthService(store repository.Store, tokens *auth.TokenManager, publisher events.Publisher, logger *zap.Logger) *AuthService {
	return &AuthService{
		base:   newBase(store, publisher, logger, "auth_service"),
		tokens: tokens,
	}
}

// RegisterInput represents the required information to create a new user.
type RegisterInput struct {
	Email    string
	FullName string
	Password string
}

// Register creates an active, non-staff account.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	fields := fieldErrors{}
	email := normalizeEmail(input.Email)
	validateEmail(fields, email)
	fullName := validateFullName(fields, input.FullName, email)
	validatePassword(fields, "password", input.Password)
	if err := fields.err(); err != nil {
		return nil, err
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		IsActive:     true,
	}

	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		// Deleted accounts keep their address reserved.
		if _, err := tx.Users().FindByEmail(ctx, email, true); err == nil {
			conflict := apierrors.NewConflictError("A user with this email already exists")
			conflict.Err = ErrEmailTaken
			return conflict
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check email: %w", err)
		}

		if err := tx.Users().Create(ctx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.Uint64("user_id", user.ID))
	s.publish(events.UserRegistered, user.ID, user, nil)
	return user, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult is the authenticated user with a fresh token pair.
type LoginResult struct {
	User   *models.User
	Tokens auth.TokenPair
}

// Login verifies credentials and issues tokens. Unknown, wrong-password and
// disabled accounts all fail the same way.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	user, err := s.store.Users().FindByEmail(ctx, normalizeEmail(input.Email), false)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalidCredentials()
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, invalidCredentials()
	}
	if !user.CanAuthenticate() {
		return nil, invalidCredentials()
	}

	tokens, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}
	return &LoginResult{User: user, Tokens: tokens}, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// revoked so it cannot be replayed.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	claims, err := s.parseRefresh(ctx, refreshToken)
	if err != nil {
		return auth.TokenPair{}, err
	}

	user, err := s.store.Users().FindByID(ctx, claims.UserID, false)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return auth.TokenPair{}, unauthorized(ErrInvalidCredentials)
		}
		return auth.TokenPair{}, fmt.Errorf("failed to find user: %w", err)
	}
	if !user.CanAuthenticate() {
		return auth.TokenPair{}, unauthorized(ErrAccountDisabled)
	}

	if err := s.revoke(ctx, claims); err != nil {
		return auth.TokenPair{}, err
	}

	tokens, err := s.tokens.Issue(user)
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("failed to issue tokens: %w", err)
	}
	return tokens, nil
}

// Logout revokes the refresh token. Revoking twice is harmless.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.parseRefresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrTokenRevoked) {
			return nil
		}
		return err
	}
	return s.revoke(ctx, claims)
}

// Authenticate resolves the user behind an access token.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.tokens.Parse(accessToken, auth.AccessToken)
	if err != nil {
		return nil, unauthorized(err)
	}
	return s.CurrentUser(ctx, claims.UserID)
}

// CurrentUser loads the user for an authenticated request. Disabled and
// deleted accounts are rejected.
func (s *AuthService) CurrentUser(ctx context.Context, userID uint64) (*models.User, error) {
	user, err := s.store.Users().FindByID(ctx, userID, false)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, unauthorized(ErrUserNotFound)
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if !user.CanAuthenticate() {
		return nil, unauthorized(ErrAccountDisabled)
	}
	return user, nil
}

// PurgeRevokedTokens drops revocations whose tokens have expired anyway.
func (s *AuthService) PurgeRevokedTokens(ctx context.Context) (int64, error) {
	purged, err := s.store.Tokens().PurgeExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge revoked tokens: %w", err)
	}
	if purged > 0 {
		s.logger.Info("purged expired token revocations", zap.Int64("count", purged))
	}
	return purged, nil
}

func (s *AuthService) parseRefresh(ctx context.Context, refreshToken string) (*auth.Claims, error) {
	claims, err := s.tokens.Parse(refreshToken, auth.RefreshToken)
	if err != nil {
		return nil, unauthorized(err)
	}

	revoked, err := s.store.Tokens().IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		return nil, unauthorized(ErrTokenRevoked)
	}
	return claims, nil
}

func (s *AuthService) revoke(ctx context.Context, claims *auth.Claims) error {
	expiresAt := s.now()
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	err := s.store.Tokens().Revoke(ctx, &models.RevokedToken{
		JTI:       claims.ID,
		UserID:    claims.UserID,
		ExpiresAt: expiresAt,
		RevokedAt: s.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func invalidCredentials() error {
	return unauthorized(ErrInvalidCredentials)
}

func unauthorized(cause error) error {
	message := "Invalid or expired token"
	switch {
	case errors.Is(cause, ErrInvalidCredentials):
		message = "Invalid email or password"
	case errors.Is(cause, ErrAccountDisabled):
		message = "Account is disabled"
	case errors.Is(cause, ErrTokenRevoked):
		message = "Token has been revoked"
	}
	return &apierrors.DomainError{Kind: apierrors.KindUnauthorized, Message: message, Err: cause}
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// normalizeEmail trims and lowercases so lookups and uniqueness ignore case.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(fields fieldErrors, email string) {
	if email == "" {
		fields.add("email", "This field may not be blank")
		return
	}
	if len(email) > constants.MaxEmailLength {
		fields.add("email", fmt.Sprintf("Ensure this field has no more than %d characters", constants.MaxEmailLength))
		return
	}
	if err := validate.Var(email, "email"); err != nil {
		fields.add("email", "Enter a valid email address")
		return
	}

	_, domain, _ := strings.Cut(email, "@")
	for _, blocked := range blockedEmailDomains {
		if domain == blocked {
			fields.add("email", fmt.Sprintf("Registration using %s is not allowed", blocked))
			return
		}
	}
}

// validateFullName rejects names that contain the email's local part.
func validateFullName(fields fieldErrors, fullName, email string) string {
	fullName = fields.text("full_name", fullName, constants.MaxFullNameLength)
	local, _, found := strings.Cut(email, "@")
	if found && local != "" && strings.Contains(strings.ToLower(fullName), local) {
		fields.add("full_name", "Full name must not contain the email username")
	}
	return fullName
}

func validatePassword(fields fieldErrors, field, password string) {
	switch {
	case len(password) < constants.MinPasswordLength:
		fields.add(field, fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength))
	case len(password) > constants.MaxPasswordBytes:
		fields.add(field, fmt.Sprintf("Password must be at most %d bytes", constants.MaxPasswordBytes))
	}
}

