package repository

import (
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/royo00/music/errs"
	"github.com/royo00/music/model"
)

// mysqlDuplicateEntry 唯一键冲突错误码
const mysqlDuplicateEntry = 1062

// isDuplicateEntry reports whether err is a MySQL unique-key violation.
func isDuplicateEntry(err error) bool {
	if mysqlErr, ok := err.(*mysql.MySQLError); ok {
		return mysqlErr.Number == mysqlDuplicateEntry
	}
	return false
}

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	CreateUser(user *model.User) (int64, error)
	GetUserByID(id int64) (*model.User, error)
	GetUserByUsername(username string) (*model.User, error)
	GetUserByEmail(email string) (*model.User, error)
	GetUserByPhone(phone string) (*model.User, error)
	UpdateUser(user *model.User) error
	UpdateUserStatus(id int64, status model.UserStatus) error
	UpdatePassword(id int64, passwordHash string) error
	ListUsers(role model.Role, page, size int) ([]*model.User, int64, error)
}

// mysqlUserRepository implements UserRepository for MySQL.
type mysqlUserRepository struct {
	db *sql.DB
}

// NewMySQLUserRepository creates a new mysqlUserRepository.
func NewMySQLUserRepository(db *sql.DB) UserRepository {
	return &mysqlUserRepository{db: db}
}

const userColumns = "id, username, password_hash, nickname, email, phone, avatar, role, status, remark, created_at, updated_at"

func scanUser(row interface{ Scan(...interface{}) error }) (*model.User, error) {
	user := &model.User{}
	var email, phone sql.NullString
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Nickname,
		&email, &phone, &user.Avatar, &user.Role, &user.Status, &user.Remark,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	user.Email = email.String
	user.Phone = phone.String
	return user, nil
}

// CreateUser adds a new user to the database.
// 用户名/邮箱/手机号唯一键冲突返回 errs.ErrAlreadyExists
func (r *mysqlUserRepository) CreateUser(user *model.User) (int64, error) {
	query := `INSERT INTO users (username, password_hash, nickname, email, phone, avatar, role, status, remark)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare create user statement: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.Exec(user.Username, user.PasswordHash, user.Nickname,
		nullable(user.Email), nullable(user.Phone), user.Avatar, user.Role, user.Status, user.Remark)
	if err != nil {
		if isDuplicateEntry(err) {
			return 0, errs.AlreadyExists("user %s", user.Username)
		}
		return 0, fmt.Errorf("failed to execute create user statement: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for user: %w", err)
	}
	return id, nil
}

// GetUserByID retrieves a user by their ID.
func (r *mysqlUserRepository) GetUserByID(id int64) (*model.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = ?"
	user, err := scanUser(r.db.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.NotFound("user %d", id)
		}
		return nil, fmt.Errorf("failed to scan user row for ID %d: %w", id, err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by their username.
func (r *mysqlUserRepository) GetUserByUsername(username string) (*model.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE username = ?"
	user, err := scanUser(r.db.QueryRow(query, username))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.NotFound("user %s", username)
		}
		return nil, fmt.Errorf("failed to scan user row for username %s: %w", username, err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by their email address.
func (r *mysqlUserRepository) GetUserByEmail(email string) (*model.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE email = ?"
	user, err := scanUser(r.db.QueryRow(query, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.NotFound("user with email %s", email)
		}
		return nil, fmt.Errorf("failed to scan user row for email %s: %w", email, err)
	}
	return user, nil
}

// GetUserByPhone retrieves a user by their phone number.
func (r *mysqlUserRepository) GetUserByPhone(phone string) (*model.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE phone = ?"
	user, err := scanUser(r.db.QueryRow(query, phone))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.NotFound("user with phone %s", phone)
		}
		return nil, fmt.Errorf("failed to scan user row for phone %s: %w", phone, err)
	}
	return user, nil
}

// UpdateUser updates profile fields of a user.
func (r *mysqlUserRepository) UpdateUser(user *model.User) error {
	query := `UPDATE users SET nickname = ?, email = ?, phone = ?, avatar = ?, updated_at = NOW() WHERE id = ?`
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare update user statement: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(user.Nickname, nullable(user.Email), nullable(user.Phone), user.Avatar, user.ID)
	if err != nil {
		if isDuplicateEntry(err) {
			return errs.AlreadyExists("email or phone of user %d", user.ID)
		}
		return fmt.Errorf("failed to execute update user statement: %w", err)
	}
	return nil
}

// UpdateUserStatus enables or disables a user account.
func (r *mysqlUserRepository) UpdateUserStatus(id int64, status model.UserStatus) error {
	res, err := r.db.Exec("UPDATE users SET status = ?, updated_at = NOW() WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("failed to update status for user %d: %w", id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		// status 未变化时 MySQL 也报告 0 行，需要区分用户确实不存在的情况
		var exists int
		if err := r.db.QueryRow("SELECT COUNT(*) FROM users WHERE id = ?", id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check user %d existence: %w", id, err)
		}
		if exists == 0 {
			return errs.NotFound("user %d", id)
		}
	}
	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *mysqlUserRepository) UpdatePassword(id int64, passwordHash string) error {
	res, err := r.db.Exec("UPDATE users SET password_hash = ?, updated_at = NOW() WHERE id = ?", passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update password for user %d: %w", id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return errs.NotFound("user %d", id)
	}
	return nil
}

// ListUsers returns a page of users, optionally filtered by role.
func (r *mysqlUserRepository) ListUsers(role model.Role, page, size int) ([]*model.User, int64, error) {
	where := ""
	args := []interface{}{}
	if role != "" {
		where = " WHERE role = ?"
		args = append(args, role)
	}

	var total int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM users"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query := "SELECT " + userColumns + " FROM users" + where + " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, size, (page-1)*size)
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := make([]*model.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user in ListUsers: %w", err)
		}
		users = append(users, user)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error during rows iteration in ListUsers: %w", err)
	}

	return users, total, nil
}

// nullable maps an empty string to SQL NULL so unique indexes ignore it.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
