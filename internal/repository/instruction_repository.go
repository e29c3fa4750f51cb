package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/entities"
)

type InstructionRepository struct {
	db *pgxpool.Pool
}

func NewInstructionRepository(db *pgxpool.Pool) *InstructionRepository {
	return &InstructionRepository{db: db}
}

func (r *InstructionRepository) Create(ctx context.Context, ins *entities.Instruction) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO instructions (title, content, platforms, category, priority, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, ins.Title, ins.Content, ins.Platforms, ins.Category, ins.Priority, ins.Active).
		Scan(&ins.ID, &ins.CreatedAt, &ins.UpdatedAt)
}

func (r *InstructionRepository) GetByID(ctx context.Context, id int) (*entities.Instruction, error) {
	var ins entities.Instruction
	err := r.db.QueryRow(ctx, `
		SELECT id, title, content, platforms, category, priority, active, created_at, updated_at
		FROM instructions WHERE id = $1
	`, id).Scan(&ins.ID, &ins.Title, &ins.Content, &ins.Platforms, &ins.Category,
		&ins.Priority, &ins.Active, &ins.CreatedAt, &ins.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}
	return &ins, nil
}

// List returns instructions filtered by platform and/or category, highest
// priority first. Empty filters return everything.
func (r *InstructionRepository) List(ctx context.Context, platform, category string) ([]entities.Instruction, error) {
	query := `
		SELECT id, title, content, platforms, category, priority, active, created_at, updated_at
		FROM instructions WHERE 1=1`
	args := []interface{}{}
	if platform != "" {
		args = append(args, platform)
		query += fmt.Sprintf(" AND (platforms = '{}' OR $%d = ANY(platforms))", len(args))
	}
	if category != "" {
		args = append(args, category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	query += " ORDER BY priority DESC, id"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []entities.Instruction{}
	for rows.Next() {
		var ins entities.Instruction
		if err := rows.Scan(&ins.ID, &ins.Title, &ins.Content, &ins.Platforms, &ins.Category,
			&ins.Priority, &ins.Active, &ins.CreatedAt, &ins.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, ins)
	}
	return list, rows.Err()
}

// ActiveForPlatform returns the active instructions scoped to the platform,
// highest priority first. This is the responder's selection query.
func (r *InstructionRepository) ActiveForPlatform(ctx context.Context, platform string) ([]entities.Instruction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, title, content, platforms, category, priority, active, created_at, updated_at
		FROM instructions
		WHERE active AND (platforms = '{}' OR $1 = ANY(platforms))
		ORDER BY priority DESC, id
	`, platform)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []entities.Instruction{}
	for rows.Next() {
		var ins entities.Instruction
		if err := rows.Scan(&ins.ID, &ins.Title, &ins.Content, &ins.Platforms, &ins.Category,
			&ins.Priority, &ins.Active, &ins.CreatedAt, &ins.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, ins)
	}
	return list, rows.Err()
}

func (r *InstructionRepository) Update(ctx context.Context, ins *entities.Instruction) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE instructions
		SET title=$2, content=$3, platforms=$4, category=$5, priority=$6, active=$7, updated_at=NOW()
		WHERE id=$1
	`, ins.ID, ins.Title, ins.Content, ins.Platforms, ins.Category, ins.Priority, ins.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *InstructionRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM instructions WHERE id=$1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
