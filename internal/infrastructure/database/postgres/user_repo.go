package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/preventix/preventix/internal/domain/entities"
	"github.com/preventix/preventix/internal/domain/repositories"
	"github.com/preventix/preventix/internal/pkg/idgen"
	"github.com/preventix/preventix/internal/pkg/metrics"
)

// UserRepository implements the UserRepository interface for PostgreSQL
type UserRepository struct {
	db  *sqlx.DB
	log *slog.Logger
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db *sqlx.DB) repositories.UserRepository {
	return &UserRepository{
		db:  db,
		log: slog.Default().With(slog.String("repo", "user")),
	}
}

// userRow represents a user as stored in the database
type userRow struct {
	ID           string         `db:"id"`
	Email        string         `db:"email"`
	FullName     string         `db:"full_name"`
	Age          sql.NullInt64  `db:"age"`
	Gender       sql.NullString `db:"gender"`
	PasswordHash string         `db:"password_hash"`
	IsActive     bool           `db:"is_active"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

// toEntity converts a userRow to a domain entity
func (r *userRow) toEntity() *entities.User {
	user := &entities.User{
		ID:           r.ID,
		Email:        r.Email,
		FullName:     r.FullName,
		PasswordHash: r.PasswordHash,
		IsActive:     r.IsActive,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.Age.Valid {
		age := int(r.Age.Int64)
		user.Age = &age
	}
	if r.Gender.Valid {
		user.Gender = &r.Gender.String
	}
	return user
}

// userRowFromEntity converts a domain entity to a userRow
func userRowFromEntity(user *entities.User) *userRow {
	row := &userRow{
		ID:           user.ID,
		Email:        user.Email,
		FullName:     user.FullName,
		PasswordHash: user.PasswordHash,
		IsActive:     user.IsActive,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
	if user.Age != nil {
		row.Age = sql.NullInt64{Int64: int64(*user.Age), Valid: true}
	}
	if user.Gender != nil {
		row.Gender = sql.NullString{String: *user.Gender, Valid: true}
	}
	return row
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	start := time.Now()
	var err error
	defer func() {
		metrics.RecordDBOperation("user", "create", time.Since(start), 1, err)
	}()

	if user.ID == "" {
		user.ID = idgen.GenerateID()
	}

	r.log.Debug("creating user",
		slog.String("id", user.ID),
		slog.String("email", user.Email))

	row := userRowFromEntity(user)

	query := `INSERT INTO users (
			id, email, full_name, age, gender, password_hash, is_active, created_at, updated_at
		) VALUES (
			:id, :email, :full_name, :age, :gender, :password_hash, :is_active, :created_at, :updated_at
		)`

	_, err = r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate") || strings.Contains(err.Error(), "unique") {
			err = repositories.ErrEmailTaken
			return err
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	start := time.Now()
	var err error
	var rowCount int64
	defer func() {
		metrics.RecordDBOperation("user", "get_by_id", time.Since(start), rowCount, err)
	}()

	var row userRow
	query := `
		SELECT id, email, full_name, age, gender, password_hash, is_active, created_at, updated_at
		FROM users
		WHERE id = $1`

	err = r.db.GetContext(ctx, &row, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			err = repositories.ErrUserNotFound
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	rowCount = 1
	return row.toEntity(), nil
}

// GetByEmail retrieves a user by their email address
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	start := time.Now()
	var err error
	var rowCount int64
	defer func() {
		metrics.RecordDBOperation("user", "get_by_email", time.Since(start), rowCount, err)
	}()

	var row userRow
	query := `
		SELECT id, email, full_name, age, gender, password_hash, is_active, created_at, updated_at
		FROM users
		WHERE email = $1`

	err = r.db.GetContext(ctx, &row, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			err = repositories.ErrUserNotFound
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	if !row.IsActive {
		err = repositories.ErrUserInactive
		return nil, err
	}

	rowCount = 1
	return row.toEntity(), nil
}

// Update an existing user
func (r *UserRepository) Update(ctx context.Context, user *entities.User) error {
	start := time.Now()
	var err error
	var rowsAffected int64
	defer func() {
		metrics.RecordDBOperation("user", "update", time.Since(start), rowsAffected, err)
	}()

	r.log.Debug("updating user",
		slog.String("id", user.ID),
		slog.String("email", user.Email))

	user.UpdatedAt = time.Now()
	row := userRowFromEntity(user)

	query := `
		UPDATE users SET
			email = :email,
			full_name = :full_name,
			age = :age,
			gender = :gender,
			password_hash = :password_hash,
			is_active = :is_active,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rowsAffected, err = result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		err = repositories.ErrUserNotFound
		return err
	}

	return nil
}

// ExistsByEmail checks if a user exists by email
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	start := time.Now()
	var err error
	var rowCount int64
	defer func() {
		metrics.RecordDBOperation("user", "exists_by_email", time.Since(start), rowCount, err)
	}()

	var count int
	query := `SELECT COUNT(*) FROM users WHERE email = $1`

	err = r.db.GetContext(ctx, &count, query, email)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence by email: %w", err)
	}

	rowCount = int64(count)
	return count > 0, nil
}
