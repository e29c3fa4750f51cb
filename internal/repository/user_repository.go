package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Phonsadboy/ChatCenterAI-sub001/internal/entities"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *entities.User) error {
	return r.db.QueryRow(context.Background(),
		"INSERT INTO users (username, display_name, password_hash, role, is_active) VALUES ($1, $2, $3, $4, TRUE) RETURNING id",
		user.Username, user.DisplayName, user.PasswordHash, user.Role).Scan(&user.ID)
}

func (r *UserRepository) GetByUsername(username string) (*entities.User, error) {
	var user entities.User
	err := r.db.QueryRow(context.Background(),
		"SELECT id, username, display_name, password_hash, role, is_active FROM users WHERE username = $1",
		username).Scan(&user.ID, &user.Username, &user.DisplayName, &user.PasswordHash, &user.Role, &user.IsActive)

	if err == pgx.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByID(id int) (*entities.User, error) {
	var user entities.User
	err := r.db.QueryRow(context.Background(),
		"SELECT id, username, display_name, password_hash, role, is_active FROM users WHERE id = $1",
		id).Scan(&user.ID, &user.Username, &user.DisplayName, &user.PasswordHash, &user.Role, &user.IsActive)

	if err == pgx.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetAll() ([]entities.User, error) {
	rows, err := r.db.Query(context.Background(),
		"SELECT id, username, display_name, password_hash, role, is_active FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []entities.User{}
	for rows.Next() {
		var u entities.User
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName, &u.PasswordHash, &u.Role, &u.IsActive); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) SetActive(id int, active bool) error {
	_, err := r.db.Exec(context.Background(),
		"UPDATE users SET is_active = $2 WHERE id = $1", id, active)
	return err
}
