package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/mateoabrbt/whistle-server/internal/domain"
	"github.com/mateoabrbt/whistle-server/internal/repository"
)

const (
	minPasswordLength = 6

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Identity is what a verified bearer token resolves to.
type Identity struct {
	UserID    string
	Username  string
	ExpiresAt time.Time
}

// TokenRevoker invalidates a raw token until its natural expiry.
type TokenRevoker interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
}

// TokenPair is what a successful login or refresh hands back.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// identityClaims carries Type so a refresh token is never accepted as a
// bearer token and the other way round.
type identityClaims struct {
	Username string `json:"username,omitempty"`
	Type     string `json:"typ"`
	jwt.RegisteredClaims
}

// AuthService issues and verifies HS256 bearer tokens and rotates refresh tokens.
type AuthService struct {
	userRepo      repository.UserRepository
	revoker       TokenRevoker
	jwtSecret     []byte
	jwtExpiry     time.Duration
	refreshExpiry time.Duration
}

// NewAuthService creates an AuthService. jwtExpiryHours <= 0 means 24 hours,
// refreshExpiryHours <= 0 means 30 days.
func NewAuthService(userRepo repository.UserRepository, revoker TokenRevoker, jwtSecretKey string, jwtExpiryHours, refreshExpiryHours int) (*AuthService, error) {
	if userRepo == nil || revoker == nil {
		panic("UserRepository and TokenRevoker cannot be nil for AuthService")
	}
	if jwtSecretKey == "" {
		return nil, fmt.Errorf("JWT secret key cannot be empty")
	}
	if jwtExpiryHours <= 0 {
		jwtExpiryHours = 24
	}
	if refreshExpiryHours <= 0 {
		refreshExpiryHours = 30 * 24
	}
	return &AuthService{
		userRepo:      userRepo,
		revoker:       revoker,
		jwtSecret:     []byte(jwtSecretKey),
		jwtExpiry:     time.Duration(jwtExpiryHours) * time.Hour,
		refreshExpiry: time.Duration(refreshExpiryHours) * time.Hour,
	}, nil
}

// Register creates an account and returns it without the password hash.
func (s *AuthService) Register(ctx context.Context, username, password, email string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	logCtx := logrus.WithFields(logrus.Fields{"username": username, "email": email})

	if username == "" || password == "" {
		return nil, Invalidf("username and password are required")
	}
	if len(password) < minPasswordLength {
		return nil, Invalidf("password must be at least %d characters", minPasswordLength)
	}

	if _, err := s.userRepo.FindByUsername(ctx, username); err == nil {
		logCtx.Warn("Registration failed: username already exists")
		return nil, ErrRegistrationFailed
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, asServiceError(err, logCtx, "Database error during username lookup")
	}

	hashedPassword, err := hashPassword(password)
	if err != nil {
		return nil, asServiceError(err, logCtx, "Failed to hash password during registration")
	}

	user := &domain.User{
		ID:       uuid.NewString(),
		Username: username,
		Password: hashedPassword,
		Email:    email,
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			logCtx.WithError(err).Warn("Registration failed: username or email already exists")
			return nil, ErrRegistrationFailed
		}
		return nil, asServiceError(err, logCtx, "Database error during user creation")
	}

	logCtx.WithField("user_id", user.ID).Info("User registered successfully")
	return withoutSecrets(user), nil
}

// Login checks the credentials and issues an access/refresh token pair. The
// new refresh token replaces any earlier one of the user.
func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	logCtx := logrus.WithField("username", username)

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			logCtx.Warn("Login attempt failed: user not found")
		} else {
			logCtx.WithError(err).Warn("Login attempt failed: error finding user")
		}
		return nil, ErrAuthenticationFailed
	}
	if !checkPassword(password, user.Password) {
		logCtx.Warn("Login attempt failed: invalid password")
		return nil, ErrAuthenticationFailed
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, asServiceError(err, logCtx, "Failed to generate JWT token during login")
	}
	if err := s.userRepo.SetRefreshTokenHash(ctx, user.ID, HashToken(pair.RefreshToken)); err != nil {
		return nil, asServiceError(err, logCtx, "Failed to store refresh token during login")
	}

	logCtx.WithField("user_id", user.ID).Info("User logged in successfully")
	return pair, nil
}

// Refresh trades a current refresh token for a new pair. Each refresh token
// works once; a rotated-out or signed-out token is refused.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	hash := HashToken(refreshToken)
	logCtx := logrus.WithField("token_hash", hash[:12])

	claims, err := s.parse(refreshToken)
	if err != nil || claims.Type != tokenTypeRefresh || claims.Subject == "" {
		if claims.Type == tokenTypeRefresh && claims.Subject != "" {
			// An expired token that is still the current one signs the user out.
			if _, clearErr := s.userRepo.SwapRefreshTokenHash(ctx, claims.Subject, hash, ""); clearErr != nil {
				logCtx.WithError(clearErr).Warn("Failed to clear expired refresh token")
			}
		}
		logCtx.WithError(err).Debug("Refresh token rejected")
		return nil, ErrInvalidRefreshToken
	}
	logCtx = logCtx.WithField("user_id", claims.Subject)

	user, err := s.userRepo.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, asServiceError(err, logCtx, "Database error during refresh")
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, asServiceError(err, logCtx, "Failed to generate JWT token during refresh")
	}
	swapped, err := s.userRepo.SwapRefreshTokenHash(ctx, user.ID, hash, HashToken(pair.RefreshToken))
	if err != nil {
		return nil, asServiceError(err, logCtx, "Failed to rotate refresh token")
	}
	if !swapped {
		logCtx.Warn("Refresh attempt with a token that is no longer current")
		return nil, ErrInvalidRefreshToken
	}

	logCtx.Info("Tokens refreshed")
	return pair, nil
}

// CurrentUser returns the account behind an authenticated identity.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, asServiceError(err, logrus.WithField("user_id", userID), "Database error during user lookup")
	}
	return withoutSecrets(user), nil
}

// Verify parses an access token and checks signature and expiry. It does not
// consult the revocation list.
func (s *AuthService) Verify(token string) (*Identity, error) {
	claims, err := s.parse(token)
	if err != nil {
		logrus.WithError(err).Debug("Token verification failed")
		return nil, ErrUnauthorized
	}
	if claims.Type == tokenTypeRefresh || claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrUnauthorized
	}
	return &Identity{
		UserID:    claims.Subject,
		Username:  claims.Username,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Logout signs the user's refresh token out and revokes the access token
// until it would have expired on its own.
func (s *AuthService) Logout(ctx context.Context, token string, identity *Identity) error {
	if identity == nil {
		return ErrUnauthorized
	}
	logCtx := logrus.WithField("user_id", identity.UserID)
	if err := s.userRepo.SetRefreshTokenHash(ctx, identity.UserID, ""); err != nil {
		return asServiceError(err, logCtx, "Failed to clear refresh token during logout")
	}
	return s.revoker.Revoke(ctx, token, identity.ExpiresAt)
}

// parse returns the claims even when validation fails, as far as they decode.
func (s *AuthService) parse(token string) (*identityClaims, error) {
	claims := &identityClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return claims, err
	}
	if !parsed.Valid {
		return claims, errors.New("token is not valid")
	}
	return claims, nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to generate hash from password: %w", err)
	}
	return string(bytes), nil
}

func checkPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (s *AuthService) issueTokens(user *domain.User) (*TokenPair, error) {
	access, err := s.generateJWT(user, tokenTypeAccess, s.jwtExpiry)
	if err != nil {
		return nil, err
	}
	refresh, err := s.generateJWT(user, tokenTypeRefresh, s.refreshExpiry)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) generateJWT(user *domain.User, tokenType string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := identityClaims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	if tokenType == tokenTypeAccess {
		claims.Username = user.Username
	}
	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// withoutSecrets returns a copy of user safe to hand outside the service.
func withoutSecrets(user *domain.User) *domain.User {
	out := *user
	out.Password = ""
	out.RefreshTokenHash = ""
	return &out
}
