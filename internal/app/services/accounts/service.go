// Package accounts handles registration, authentication and profile
// management for dashboard users.
package accounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/alphadesk/alphadesk/internal/app/domain/portfolio"
	"github.com/alphadesk/alphadesk/internal/app/domain/user"
	"github.com/alphadesk/alphadesk/internal/app/storage"
	"github.com/alphadesk/alphadesk/pkg/logger"
)

// DefaultStartingBalance seeds every new paper-trading portfolio.
const DefaultStartingBalance = 10_000

const tokenLifetime = 7 * 24 * time.Hour

// Service manages users, credentials and session tokens.
type Service struct {
	users      storage.UserStore
	portfolios storage.PortfolioStore
	jwtSecret  []byte
	log        *logger.Logger
	now        func() time.Time
}

// New constructs an accounts service. The JWT secret must be non-empty.
func New(users storage.UserStore, portfolios storage.PortfolioStore, jwtSecret string, log *logger.Logger) (*Service, error) {
	if jwtSecret == "" {
		return nil, fmt.Errorf("accounts: jwt secret required")
	}
	if log == nil {
		log = logger.NewDefault("accounts")
	}
	return &Service{
		users:      users,
		portfolios: portfolios,
		jwtSecret:  []byte(jwtSecret),
		log:        log,
		now:        time.Now,
	}, nil
}

// Signup registers a user, hashes the password and seeds a paper portfolio.
func (s *Service) Signup(ctx context.Context, email, password, name string) (user.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return user.User{}, "", fmt.Errorf("valid email required")
	}
	if len(password) < 8 {
		return user.User{}, "", fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	created, err := s.users.CreateUser(ctx, user.User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
	})
	if err != nil {
		return user.User{}, "", err
	}

	if s.portfolios != nil {
		if _, err := s.portfolios.CreatePortfolio(ctx, portfolio.Portfolio{
			UserID:         created.ID,
			CashBalance:    DefaultStartingBalance,
			InitialBalance: DefaultStartingBalance,
		}); err != nil {
			s.log.WithError(err).WithField("user", created.ID).Error("seed portfolio failed")
		}
	}

	token, err := s.issueToken(created)
	if err != nil {
		return user.User{}, "", err
	}
	s.log.WithField("user", created.ID).Info("user registered")
	return created, token, nil
}

// Login verifies credentials and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (user.User, string, error) {
	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		// Same failure shape whether the user exists or not.
		return user.User{}, "", fmt.Errorf("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return user.User{}, "", fmt.Errorf("invalid credentials")
	}

	token, err := s.issueToken(u)
	if err != nil {
		return user.User{}, "", err
	}
	return u, token, nil
}

// Get returns a user by ID.
func (s *Service) Get(ctx context.Context, id string) (user.User, error) {
	return s.users.GetUser(ctx, id)
}

// UpdateProfile changes mutable profile fields.
func (s *Service) UpdateProfile(ctx context.Context, id, name, theme string) (user.User, error) {
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	if name != "" {
		u.Name = strings.TrimSpace(name)
	}
	if theme != "" {
		u.Theme = theme
	}
	return s.users.UpdateUser(ctx, u)
}

// SetBrokerCredentials stores brokerage API keys and toggles live trading.
func (s *Service) SetBrokerCredentials(ctx context.Context, id, key, secret string, liveTrading bool) (user.User, error) {
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	u.BrokerKey = strings.TrimSpace(key)
	u.BrokerSecret = strings.TrimSpace(secret)
	u.LiveTrading = liveTrading && u.HasBrokerCredentials()
	return s.users.UpdateUser(ctx, u)
}

// Tier returns the user's effective subscription tier; users without a
// subscription row are free tier.
func (s *Service) Tier(ctx context.Context, userID string) user.Tier {
	sub, err := s.users.GetSubscription(ctx, userID)
	if err != nil || sub.Status != "active" {
		return user.TierFree
	}
	if sub.CurrentPeriodEnd.Before(s.now()) {
		return user.TierFree
	}
	return sub.Tier
}

// SetSubscription upserts the user's paid tier.
func (s *Service) SetSubscription(ctx context.Context, userID string, tier user.Tier, periodEnd time.Time) (user.Subscription, error) {
	return s.users.UpsertSubscription(ctx, user.Subscription{
		UserID:           userID,
		Tier:             tier,
		Status:           "active",
		CurrentPeriodEnd: periodEnd,
	})
}

// Claims carried by session tokens.
type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

func (s *Service) issueToken(u user.User) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: u.ID,
		Email:  u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
		},
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken parses and validates a session token, returning its claims.
func (s *Service) VerifyToken(tokenString string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return Claims{}, fmt.Errorf("invalid token")
	}
	return claims, nil
}
