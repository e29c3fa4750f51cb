package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresClient struct {
	Pool *pgxpool.Pool
}

func NewPostgresClient(connString string) (*PostgresClient, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	// Pool configuration
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	client := &PostgresClient{Pool: pool}

	// Auto-migrate schema
	if err := client.Migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

func (p *PostgresClient) Migrate() error {
	ctx := context.Background()

	// Users Table (agents + admins)
	_, err := p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			display_name VARCHAR(100) DEFAULT '',
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(20) DEFAULT 'agent',
			is_active BOOLEAN DEFAULT TRUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("create users table: %w", err)
	}

	// Conversations Table: one row per customer conversation, messages
	// embedded as an append-only JSONB array.
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS conversations (
			id SERIAL PRIMARY KEY,
			customer_id VARCHAR(128) NOT NULL,
			customer_name VARCHAR(255) DEFAULT '',
			platform VARCHAR(20) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			priority VARCHAR(20) NOT NULL DEFAULT 'normal',
			assigned_agent INT REFERENCES users(id),
			ai_responses INT NOT NULL DEFAULT 0,
			human_responses INT NOT NULL DEFAULT 0,
			messages JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			last_activity_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("create conversations table: %w", err)
	}

	// At most one open conversation per (customer, platform). Concurrent
	// webhook inserts for the same pair collide here and upsert instead.
	_, err = p.Pool.Exec(ctx, `
		CREATE UNIQUE INDEX IF NOT EXISTS conversations_open_uniq
		ON conversations (customer_id, platform)
		WHERE status IN ('active', 'pending');
	`)
	if err != nil {
		return fmt.Errorf("create open-conversation index: %w", err)
	}

	// Instructions Table (prompt fragments for the auto-responder)
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS instructions (
			id SERIAL PRIMARY KEY,
			title VARCHAR(256) NOT NULL,
			content TEXT NOT NULL,
			platforms TEXT[] NOT NULL DEFAULT '{}',
			category VARCHAR(50) DEFAULT 'general',
			priority INT NOT NULL DEFAULT 0,
			active BOOLEAN DEFAULT TRUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("create instructions table: %w", err)
	}

	// Platform Credentials Table
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS platform_credentials (
			id SERIAL PRIMARY KEY,
			platform VARCHAR(20) NOT NULL,
			label VARCHAR(100) DEFAULT '',
			access_token TEXT NOT NULL DEFAULT '',
			channel_secret TEXT NOT NULL DEFAULT '',
			verify_token TEXT NOT NULL DEFAULT '',
			active BOOLEAN DEFAULT TRUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("create platform_credentials table: %w", err)
	}

	// Threads Table (rebuild batch output). The unique group key makes the
	// batch idempotent: reruns upsert instead of duplicating.
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS threads (
			id SERIAL PRIMARY KEY,
			sender_id VARCHAR(128) NOT NULL,
			bot_id INT NOT NULL DEFAULT 0,
			platform VARCHAR(20) NOT NULL,
			message_count INT NOT NULL DEFAULT 0,
			first_message_at TIMESTAMP,
			last_message_at TIMESTAMP,
			orders JSONB NOT NULL DEFAULT '[]',
			outcome VARCHAR(20) NOT NULL DEFAULT 'general',
			rebuilt_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (sender_id, bot_id, platform)
		);
	`)
	if err != nil {
		return fmt.Errorf("create threads table: %w", err)
	}

	// Message Usage Table (per-day counters for stats and telemetry)
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS message_usage (
			id SERIAL PRIMARY KEY,
			date DATE NOT NULL,
			platform VARCHAR(20) NOT NULL,
			messages_received INT NOT NULL DEFAULT 0,
			ai_replies INT NOT NULL DEFAULT 0,
			agent_replies INT NOT NULL DEFAULT 0,
			UNIQUE (date, platform)
		);
	`)
	if err != nil {
		return fmt.Errorf("create message_usage table: %w", err)
	}

	return nil
}

func (p *PostgresClient) Close() {
	p.Pool.Close()
}
