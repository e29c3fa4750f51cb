package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/entities"
)

type CredentialRepository struct {
	db *pgxpool.Pool
}

func NewCredentialRepository(db *pgxpool.Pool) *CredentialRepository {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) Create(ctx context.Context, c *entities.Credential) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO platform_credentials (platform, label, access_token, channel_secret, verify_token, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, c.Platform, c.Label, c.AccessToken, c.ChannelSecret, c.VerifyToken, c.Active).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *CredentialRepository) GetByID(ctx context.Context, id int) (*entities.Credential, error) {
	var c entities.Credential
	err := r.db.QueryRow(ctx, `
		SELECT id, platform, label, access_token, channel_secret, verify_token, active, created_at, updated_at
		FROM platform_credentials WHERE id = $1
	`, id).Scan(&c.ID, &c.Platform, &c.Label, &c.AccessToken, &c.ChannelSecret,
		&c.VerifyToken, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ActiveForPlatform returns the newest active credential set for a platform.
// Database rows take precedence over env defaults; main seeds a row from the
// environment when the table has none for that platform.
func (r *CredentialRepository) ActiveForPlatform(ctx context.Context, platform string) (*entities.Credential, error) {
	var c entities.Credential
	err := r.db.QueryRow(ctx, `
		SELECT id, platform, label, access_token, channel_secret, verify_token, active, created_at, updated_at
		FROM platform_credentials
		WHERE platform = $1 AND active
		ORDER BY updated_at DESC LIMIT 1
	`, platform).Scan(&c.ID, &c.Platform, &c.Label, &c.AccessToken, &c.ChannelSecret,
		&c.VerifyToken, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CredentialRepository) List(ctx context.Context) ([]entities.Credential, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, platform, label, access_token, channel_secret, verify_token, active, created_at, updated_at
		FROM platform_credentials ORDER BY platform, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []entities.Credential{}
	for rows.Next() {
		var c entities.Credential
		if err := rows.Scan(&c.ID, &c.Platform, &c.Label, &c.AccessToken, &c.ChannelSecret,
			&c.VerifyToken, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (r *CredentialRepository) Update(ctx context.Context, c *entities.Credential) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE platform_credentials
		SET label=$2, access_token=$3, channel_secret=$4, verify_token=$5, active=$6, updated_at=NOW()
		WHERE id=$1
	`, c.ID, c.Label, c.AccessToken, c.ChannelSecret, c.VerifyToken, c.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *CredentialRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM platform_credentials WHERE id=$1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SeedDefault inserts an env-derived credential row for a platform when no
// row exists yet. Existing rows always win.
func (r *CredentialRepository) SeedDefault(ctx context.Context, c *entities.Credential) error {
	var count int
	if err := r.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM platform_credentials WHERE platform = $1", c.Platform).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return r.Create(ctx, c)
}
