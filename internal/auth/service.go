// Package auth keeps registered users in memory and issues bearer tokens for them.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/i474232898/agro-insight/internal/cache"
)

const issuer = "agro-insight"

var (
	ErrInvalidRegistration  = errors.New("invalid registration")
	ErrMissingProfileFields = errors.New("missing fields required by profile")
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrInactiveAccount      = errors.New("account is disabled")
	ErrInvalidToken         = errors.New("invalid token")
)

var validate = validator.New()

// Registration is the sign-up payload.
type Registration struct {
	Email           string   `json:"email" validate:"required,email"`
	Password        string   `json:"password" validate:"required,min=8"`
	FullName        string   `json:"full_name" validate:"required"`
	Profile         Profile  `json:"profile" validate:"required"`
	DocumentID      string   `json:"document_id" validate:"required"`
	Phone           string   `json:"phone" validate:"required"`
	LicenseNumber   string   `json:"license_number,omitempty"`
	Organization    string   `json:"organization" validate:"required"`
	City            string   `json:"city" validate:"required"`
	State           string   `json:"state" validate:"required"`
	AreaHectares    *float64 `json:"area_hectares,omitempty" validate:"omitempty,gt=0"`
	Specialization  string   `json:"specialization,omitempty"`
	ExperienceYears *int     `json:"experience_years,omitempty" validate:"omitempty,gte=0"`
}

func (r Registration) has(field string) bool {
	switch field {
	case FieldLicenseNumber:
		return strings.TrimSpace(r.LicenseNumber) != ""
	case FieldSpecialization:
		return strings.TrimSpace(r.Specialization) != ""
	case FieldAreaHectares:
		return r.AreaHectares != nil
	case FieldExperienceYears:
		return r.ExperienceYears != nil
	default:
		return false
	}
}

// User is the public view of a registered user.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	FullName     string     `json:"full_name"`
	Profile      Profile    `json:"profile"`
	Organization string     `json:"organization"`
	City         string     `json:"city"`
	State        string     `json:"state"`
	Active       bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

type record struct {
	user         User
	registration Registration
	passwordHash []byte
}

// Session is returned on register and login.
type Session struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresAt   time.Time       `json:"expires_at"`
	User        User            `json:"user"`
	Dashboard   DashboardConfig `json:"dashboard_config"`
}

// Claims are carried in every issued token.
type Claims struct {
	jwt.RegisteredClaims
	Profile Profile `json:"profile"`
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for token issue and expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// Service registers users, signs them in and validates their tokens.
type Service struct {
	mu      sync.RWMutex
	users   map[string]*record
	byEmail map[string]string

	secret    []byte
	ttl       time.Duration
	revoked   *cache.Cache
	cost      int
	dummyHash []byte
	now       func() time.Time
}

// NewService creates a Service signing tokens with secret. Revoked token ids are kept in
// a private cache with no size bound.
func NewService(secret string, ttl time.Duration, opts ...Option) *Service {
	s := &Service{
		users:   make(map[string]*record),
		byEmail: make(map[string]string),
		secret:  []byte(secret),
		ttl:     ttl,
		cost:    bcrypt.DefaultCost,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.revoked = cache.New(cache.WithClock(s.now))
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("agro-insight"), s.cost)
	return s
}

// Register validates reg, stores the user and opens a session.
func (s *Service) Register(reg Registration) (Session, error) {
	reg.Email = strings.ToLower(strings.TrimSpace(reg.Email))
	if err := validate.Struct(reg); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidRegistration, err)
	}
	info, ok := lookupProfile(reg.Profile)
	if !ok {
		return Session{}, fmt.Errorf("%w: unknown profile %q", ErrInvalidRegistration, reg.Profile)
	}
	var missing []string
	for _, f := range info.RequiredFields {
		if !reg.has(f) {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return Session{}, fmt.Errorf("%w %s: %s", ErrMissingProfileFields, reg.Profile, strings.Join(missing, ", "))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.cost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}
	reg.Password = ""

	s.mu.Lock()
	if _, taken := s.byEmail[reg.Email]; taken {
		s.mu.Unlock()
		return Session{}, ErrEmailTaken
	}
	rec := &record{
		user: User{
			ID:           uuid.NewString(),
			Email:        reg.Email,
			FullName:     reg.FullName,
			Profile:      reg.Profile,
			Organization: reg.Organization,
			City:         reg.City,
			State:        reg.State,
			Active:       true,
			CreatedAt:    s.now().UTC(),
		},
		registration: reg,
		passwordHash: hash,
	}
	s.users[rec.user.ID] = rec
	s.byEmail[reg.Email] = rec.user.ID
	s.mu.Unlock()

	return s.session(rec.user)
}

// Login checks the credentials and opens a session.
func (s *Service) Login(email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.RLock()
	rec, ok := s.users[s.byEmail[email]]
	hash := s.dummyHash
	if ok {
		hash = rec.passwordHash
	}
	s.mu.RUnlock()

	// Unknown emails still pay for one comparison.
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil || !ok {
		return Session{}, ErrInvalidCredentials
	}

	s.mu.Lock()
	if !rec.user.Active {
		s.mu.Unlock()
		return Session{}, ErrInactiveAccount
	}
	now := s.now().UTC()
	rec.user.LastLogin = &now
	user := rec.user
	s.mu.Unlock()

	return s.session(user)
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(token string) (User, *Claims, error) {
	claims, err := s.parse(token)
	if err != nil {
		return User{}, nil, err
	}
	if _, ok := s.revoked.Get(revokedKey(claims.ID)); ok {
		return User{}, nil, fmt.Errorf("%w: revoked", ErrInvalidToken)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.users[claims.Subject]
	if !ok {
		return User{}, nil, fmt.Errorf("%w: unknown user", ErrInvalidToken)
	}
	if !rec.user.Active {
		return User{}, nil, ErrInactiveAccount
	}
	return rec.user, claims, nil
}

// Logout revokes token until it would have expired anyway.
func (s *Service) Logout(token string) error {
	_, claims, err := s.Authenticate(token)
	if err != nil {
		return err
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl > 0 {
		s.revoked.Cleanup()
		s.revoked.Set(revokedKey(claims.ID), true, ttl)
	}
	return nil
}

func (s *Service) session(u User) (Session, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			ID:        uuid.NewString(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Profile: u.Profile,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign token: %w", err)
	}
	return Session{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresAt:   exp.UTC(),
		User:        u,
		Dashboard:   DashboardFor(u.Profile),
	}, nil
}

func (s *Service) parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func revokedKey(jti string) string {
	return "revoked:" + jti
}
