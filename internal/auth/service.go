package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/renthus/renthus-admin/internal/db"
)

var (
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type User struct {
	ID        string
	Email     string
	CreatedAt time.Time
}

type Service struct {
	db     db.DBTX
	config Config
}

func NewService(dbtx db.DBTX, config Config) *Service {
	return &Service{
		db:     dbtx,
		config: config,
	}
}

func (s *Service) Register(ctx context.Context, email, password string) (User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	var user User
	err = s.db.QueryRow(ctx,
		`INSERT INTO users (email, password_hash) VALUES ($1, $2)
		 RETURNING id::text, email, created_at`,
		email, hash,
	).Scan(&user.ID, &user.Email, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrEmailExists
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// Login verifies credentials and returns a signed session token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	var (
		userID       string
		passwordHash string
	)
	err := s.db.QueryRow(ctx,
		`SELECT id::text, password_hash FROM users WHERE email = $1`,
		email,
	).Scan(&userID, &passwordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("query user: %w", err)
	}

	if !CheckPassword(password, passwordHash) {
		return "", ErrInvalidCredentials
	}

	token, err := GenerateToken(s.config, userID, email)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return token, nil
}
