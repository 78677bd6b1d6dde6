package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/repository"
	"github.com/iliyamo/hotel-reservation/internal/utils"
)

// ErrInvalidCredentials hides whether the username or the password was
// wrong.
var ErrInvalidCredentials = errors.New("invalid username or password")

// StaffFinder looks up staff accounts.
type StaffFinder interface {
	GetByUsername(ctx context.Context, username string) (model.Staff, error)
	GetByID(ctx context.Context, id uint64) (model.Staff, error)
}

// Session is the result of a successful login.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	Staff     StaffPublic `json:"staff"`
}

// StaffPublic is the part of a staff account safe to return.
type StaffPublic struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

func publicStaff(s model.Staff) StaffPublic {
	return StaffPublic{ID: s.ID, Username: s.Username, FullName: s.FullName, Role: s.Role}
}

// Auth issues staff tokens.
type Auth struct {
	staff  StaffFinder
	secret string
	ttl    time.Duration
	log    *logrus.Logger
}

func NewAuth(staff StaffFinder, secret string, ttl time.Duration, log *logrus.Logger) *Auth {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Auth{staff: staff, secret: secret, ttl: ttl, log: log}
}

// Login checks the credentials of an active account and returns a signed
// token.
func (a *Auth) Login(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Session{}, invalid("username", "is required")
	}
	if password == "" {
		return Session{}, invalid("password", "is required")
	}
	s, err := a.staff.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if !s.IsActive || !utils.VerifyPassword(s.PasswordHash, password) {
		a.log.WithField("username", username).Warn("login rejected")
		return Session{}, ErrInvalidCredentials
	}
	at, err := utils.NewAccessToken(a.secret, s.ID, s.Username, s.Role, s.FullName, a.ttl)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: at.Token, ExpiresAt: at.Exp, Staff: publicStaff(s)}, nil
}

// Me returns the account behind a token subject.
func (a *Auth) Me(ctx context.Context, staffID uint64) (StaffPublic, error) {
	s, err := a.staff.GetByID(ctx, staffID)
	if err != nil {
		return StaffPublic{}, err
	}
	return publicStaff(s), nil
}
