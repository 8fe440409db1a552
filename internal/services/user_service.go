package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/manuscript-be/internal/auth"
	"github.com/isdelr/manuscript-be/internal/database"
	"github.com/isdelr/manuscript-be/internal/errs"
	"github.com/isdelr/manuscript-be/internal/models"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	GetAllUsers(ctx context.Context) ([]models.User, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)
	CreateUser(ctx context.Context, name, email, password string) (models.User, error)
	UpdateUser(ctx context.Context, id string, update models.UserUpdate) (models.User, error)
	DeleteUser(ctx context.Context, id string) error
	AuthenticateUser(ctx context.Context, email, password string) (models.User, error)
}

// UserService provides business logic for user management.
type UserService struct {
	db     *database.DB
	events EventServiceProvider
	now    func() time.Time
}

// NewUserService creates a new UserService.
func NewUserService(db *database.DB, events EventServiceProvider) *UserService {
	return &UserService{db: db, events: events, now: time.Now}
}

const userColumns = "id, name, email, password_hash, created_at, updated_at"

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashError(err error) error {
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return errs.Validation("Password must be at most 72 bytes")
	}
	return fmt.Errorf("failed to hash password: %w", err)
}

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

// GetAllUsers retrieves every user, newest first.
func (s *UserService) GetAllUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("%w: list users: %v", errs.ErrStorage, err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan user: %v", errs.ErrStorage, err)
		}
		user.PasswordHash = ""
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list users: %v", errs.ErrStorage, err)
	}
	return users, nil
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	user, err := s.getUser(ctx, "id", id)
	if err != nil {
		return models.User{}, err
	}
	user.PasswordHash = ""
	return user, nil
}

// getUser loads a user including the password hash.
func (s *UserService) getUser(ctx context.Context, column, value string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+column+" = ?", value)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("user %s: %w", value, errs.ErrNotFound)
		}
		return models.User{}, fmt.Errorf("%w: get user: %v", errs.ErrStorage, err)
	}
	return user, nil
}

// CreateUser registers a new user, hashing their password. A duplicate email
// is rejected by the store's unique index and reported as errs.ErrConflict.
func (s *UserService) CreateUser(ctx context.Context, name, email, password string) (models.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return models.User{}, errs.Validation("All fields are required")
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, hashError(err)
	}

	now := s.now().UTC()
	user := models.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hashedPassword,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users (id, name, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		user.ID, user.Name, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return models.User{}, fmt.Errorf("user %s: %w", email, errs.ErrConflict)
		}
		return models.User{}, fmt.Errorf("%w: insert user: %v", errs.ErrStorage, err)
	}

	recordEvent(ctx, s.events, EventUserRegistered, "info", fmt.Sprintf("User '%s' registered", user.Email), &user.ID)

	// Return user without password hash
	user.PasswordHash = ""
	return user, nil
}

// UpdateUser applies the supplied fields. A non-empty password is re-hashed.
func (s *UserService) UpdateUser(ctx context.Context, id string, update models.UserUpdate) (models.User, error) {
	user, err := s.getUser(ctx, "id", id)
	if err != nil {
		return models.User{}, err
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return models.User{}, errs.Validation("Name cannot be empty")
		}
		user.Name = name
	}
	if update.Email != nil {
		email := normalizeEmail(*update.Email)
		if email == "" {
			return models.User{}, errs.Validation("Email cannot be empty")
		}
		user.Email = email
	}
	// An empty password means "keep the current one".
	if update.Password != nil && *update.Password != "" {
		hashedPassword, err := auth.HashPassword(*update.Password)
		if err != nil {
			return models.User{}, hashError(err)
		}
		user.PasswordHash = hashedPassword
	}
	user.UpdatedAt = s.now().UTC()

	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET name = ?, email = ?, password_hash = ?, updated_at = ? WHERE id = ?",
		user.Name, user.Email, user.PasswordHash, user.UpdatedAt, id)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return models.User{}, fmt.Errorf("user %s: %w", user.Email, errs.ErrConflict)
		}
		return models.User{}, fmt.Errorf("%w: update user: %v", errs.ErrStorage, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.User{}, fmt.Errorf("user %s: %w", id, errs.ErrNotFound)
	}

	user.PasswordHash = ""
	return user, nil
}

// DeleteUser removes a user from the database.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("%w: delete user: %v", errs.ErrStorage, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: delete user: %v", errs.ErrStorage, err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", id, errs.ErrNotFound)
	}

	recordEvent(ctx, s.events, EventUserDeleted, "info", fmt.Sprintf("User %s deleted", id), &id)
	return nil
}

// AuthenticateUser verifies a user's credentials. Unknown emails and wrong
// passwords both yield errs.ErrUnauthorized.
func (s *UserService) AuthenticateUser(ctx context.Context, email, password string) (models.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return models.User{}, errs.Validation("Email and password required")
	}

	user, err := s.getUser(ctx, "email", email)
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			return models.User{}, err
		}
		// Spend the same hashing time as a real comparison.
		auth.BurnPasswordCheck(password)
		recordEvent(ctx, s.events, EventLoginFailed, "warn", "Login failed for unknown account", nil)
		return models.User{}, errs.ErrUnauthorized
	}

	if !auth.VerifyPassword(password, user.PasswordHash) {
		recordEvent(ctx, s.events, EventLoginFailed, "warn", "Login failed: invalid password", &user.ID)
		return models.User{}, errs.ErrUnauthorized
	}

	// Don't send the password hash to the client
	user.PasswordHash = ""
	return user, nil
}
