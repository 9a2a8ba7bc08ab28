package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/pictora/billing-api/internal/domain"
)

// ProfileStore defines the persistence operations the billing core needs.
// An interface here lets the service layer run against a fake in tests.
type ProfileStore interface {
	Create(ctx context.Context, profile domain.Profile) (string, error)
	GetByEmail(ctx context.Context, email string) (*domain.Profile, error)
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	// SetStripeCustomerID persists the customer mapping only if the
	// stored value still equals previousID ("" for a first-time
	// resolution). It reports whether the write landed, so concurrent
	// resolutions cannot clobber each other's mapping.
	SetStripeCustomerID(ctx context.Context, email, customerID, previousID string) (bool, error)
	// SetPremium updates the entitlement flag and reports whether a
	// profile matched the email.
	SetPremium(ctx context.Context, email string, premium bool) (bool, error)
}

type sqliteProfileStore struct {
	db *sql.DB
}

// NewSQLiteProfileStore returns a ProfileStore backed by the given SQLite
// connection.
func NewSQLiteProfileStore(db *sql.DB) ProfileStore {
	return &sqliteProfileStore{db: db}
}

func (s *sqliteProfileStore) Create(ctx context.Context, profile domain.Profile) (string, error) {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}

	stmt, err := s.db.PrepareContext(ctx,
		"INSERT INTO profiles(id, email, stripe_customer_id, is_premium, ai_generations_count) VALUES(?, ?, ?, ?, ?)")
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, profile.ID, profile.Email, profile.StripeCustomerID, profile.IsPremium, profile.AIGenerationsCount)
	if err != nil {
		return "", err
	}
	return profile.ID, nil
}

func (s *sqliteProfileStore) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, email, stripe_customer_id, is_premium, ai_generations_count FROM profiles WHERE email = ?", email)
	return scanProfile(row)
}

func (s *sqliteProfileStore) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, email, stripe_customer_id, is_premium, ai_generations_count FROM profiles WHERE id = ?", id)
	return scanProfile(row)
}

func (s *sqliteProfileStore) SetStripeCustomerID(ctx context.Context, email, customerID, previousID string) (bool, error) {
	stmt, err := s.db.PrepareContext(ctx,
		"UPDATE profiles SET stripe_customer_id = ? WHERE email = ? AND stripe_customer_id = ?")
	if err != nil {
		return false, err
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, customerID, email, previousID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *sqliteProfileStore) SetPremium(ctx context.Context, email string, premium bool) (bool, error) {
	stmt, err := s.db.PrepareContext(ctx, "UPDATE profiles SET is_premium = ? WHERE email = ?")
	if err != nil {
		return false, err
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, premium, email)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// scanProfile returns nil, nil when no row matched; the service layer turns
// that into its not-found error.
func scanProfile(row *sql.Row) (*domain.Profile, error) {
	var p domain.Profile
	if err := row.Scan(&p.ID, &p.Email, &p.StripeCustomerID, &p.IsPremium, &p.AIGenerationsCount); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
