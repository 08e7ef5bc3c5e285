package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/agritrace/internal/model"
)

// userRow mirrors the 'users' table.
type userRow struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	Phone        string    `db:"phone"`
	Address      string    `db:"address"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r userRow) toModel() *model.User {
	return &model.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         model.Role(r.Role),
		Number:       r.Phone,
		Address:      r.Address,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

const userColumns = "id,username,email,password_hash,role,phone,address,created_at,updated_at"

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

// CreateUser inserts u. Timestamps are filled in on success.
func (r *UserRepo) CreateUser(ctx context.Context, u *model.User) error {
	now := time.Now().UTC()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (id, username, email, password_hash, role, phone, address, created_at, updated_at) VALUES (?,?,?,?,?,?,?,?,?)",
		u.ID, u.Username, u.Email, u.PasswordHash, string(u.Role), u.Number, u.Address, now, now)
	if err != nil {
		if key, ok := duplicateKey(err); ok {
			if key == "uq_users_username" {
				return ErrUsernameExists
			}
			return ErrEmailExists
		}
		return err
	}
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

// GetUserByEmail fetches a user by normalized email.
func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var row userRow
	err := r.DB.GetContext(ctx, &row,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.toModel(), nil
}

// GetUserByID fetches a user by id.
func (r *UserRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var row userRow
	err := r.DB.GetContext(ctx, &row,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.toModel(), nil
}

// duplicateKey reports whether err is a MySQL duplicate-entry error
// (1062) and returns the name of the violated key.  The driver message
// reads "Duplicate entry '<value>' for key '[<table>.]<key>'"; the value
// may contain anything, so the key is taken from the end.
func duplicateKey(err error) (string, bool) {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != 1062 {
		return "", false
	}
	const marker = "for key '"
	i := strings.LastIndex(me.Message, marker)
	if i < 0 {
		return "", true
	}
	key := strings.TrimSuffix(me.Message[i+len(marker):], "'")
	if j := strings.LastIndex(key, "."); j >= 0 {
		key = key[j+1:]
	}
	return key, true
}
