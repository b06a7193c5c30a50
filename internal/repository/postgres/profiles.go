package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/VickyKR37/autobook/internal/core/domain"
	"github.com/VickyKR37/autobook/internal/core/port"
	"github.com/VickyKR37/autobook/internal/repository"
)

const (
	profilesTable           = "autobook.user_profiles"
	profilesEmailConstraint = "user_profiles_email_key"
	uniqueViolationSQLSTATE = "23505"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ProfileRepository implements port.ProfileRepository backed by PostgreSQL.
type ProfileRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

var _ port.ProfileRepository = (*ProfileRepository)(nil)

// NewProfileRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewProfileRepository(exec pgExecutor) *ProfileRepository {
	repo := &ProfileRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance that executes statements within the supplied transaction.
func (r *ProfileRepository) WithTx(tx pgx.Tx) *ProfileRepository {
	if tx == nil {
		return r
	}
	return &ProfileRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a profile. An existing row for the account is left untouched
// and reported as repository.ErrAlreadyExists.
func (r *ProfileRepository) Create(ctx context.Context, profile domain.UserProfile) error {
	var hashed any
	if profile.HashedAccessCode != "" {
		hashed = profile.HashedAccessCode
	}

	stmt, args, err := r.builder.Insert(profilesTable).
		Columns(
			"account_id",
			"email",
			"hashed_access_code",
			"created_at",
			"access_code_issued_at",
		).
		Values(
			profile.AccountID,
			profile.Email,
			hashed,
			profile.CreatedAt,
			optionalTime(profile.AccessCodeIssuedAt),
		).
		Suffix("ON CONFLICT (account_id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert profile sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationSQLSTATE && pgErr.ConstraintName == profilesEmailConstraint {
			return repository.ErrEmailTaken
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrAlreadyExists
	}

	return nil
}

// SetHashedAccessCode replaces the stored hash and issuance timestamp.
func (r *ProfileRepository) SetHashedAccessCode(ctx context.Context, accountID string, hashed string, issuedAt time.Time) error {
	stmt, args, err := r.builder.Update(profilesTable).
		Set("hashed_access_code", hashed).
		Set("access_code_issued_at", issuedAt).
		Where(squirrel.Eq{"account_id": accountID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update access code sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update access code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// FindByEmail returns the profile owning email, or nil when none exists.
func (r *ProfileRepository) FindByEmail(ctx context.Context, email string) (*domain.UserProfile, error) {
	stmt, args, err := r.selectProfile().
		Where(squirrel.Eq{"email": strings.ToLower(strings.TrimSpace(email))}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select profile by email sql: %w", err)
	}

	profile, err := scanProfile(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select profile by email: %w", err)
	}

	return profile, nil
}

// GetByAccountID retrieves a profile by account identifier.
func (r *ProfileRepository) GetByAccountID(ctx context.Context, accountID string) (*domain.UserProfile, error) {
	stmt, args, err := r.selectProfile().
		Where(squirrel.Eq{"account_id": accountID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select profile sql: %w", err)
	}

	profile, err := scanProfile(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select profile: %w", err)
	}

	return profile, nil
}

func (r *ProfileRepository) selectProfile() squirrel.SelectBuilder {
	return r.builder.
		Select(
			"account_id",
			"email",
			"hashed_access_code",
			"created_at",
			"access_code_issued_at",
		).
		From(profilesTable)
}

func scanProfile(row pgx.Row) (*domain.UserProfile, error) {
	var (
		profile  domain.UserProfile
		hashed   sql.NullString
		issuedAt sql.NullTime
	)

	if err := row.Scan(
		&profile.AccountID,
		&profile.Email,
		&hashed,
		&profile.CreatedAt,
		&issuedAt,
	); err != nil {
		return nil, err
	}

	if hashed.Valid {
		profile.HashedAccessCode = hashed.String
	}
	profile.AccessCodeIssuedAt = nullableTimePtr(issuedAt)

	return &profile, nil
}

func optionalTime(value *time.Time) any {
	if value == nil || value.IsZero() {
		return nil
	}
	return value.UTC()
}

func nullableTimePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}
