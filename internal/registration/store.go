package registration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrUsernameTaken はユーザー名が既に登録されている場合のエラー。
	ErrUsernameTaken = errors.New("ユーザー名は既に使われています")
	// ErrInvalidCredentials はユーザー名またはパスワードが一致しない場合のエラー。
	ErrInvalidCredentials = errors.New("ユーザー名またはパスワードが正しくありません")
)

// User は登録済みのユーザー。
type User struct {
	// ID はユーザーの一意識別子（UUID）。
	ID string `json:"id"`
	// Username はユーザー名。
	Username string `json:"username"`
	// Email はメールアドレス。
	Email string `json:"email,omitempty"`
	// Superuser は管理者かどうか。
	Superuser bool `json:"superuser"`
	// CreatedAt は登録日時。
	CreatedAt time.Time `json:"created_at"`
}

// Store はユーザーのSQLiteストア。
type Store struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
	// cost はbcryptのコスト。
	cost int
}

// NewStore は新しいストアを生成する。costが範囲外の場合はbcrypt.DefaultCostを使用する。
func NewStore(db *sql.DB, cost int) *Store {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Store{db: db, cost: cost}
}

// UsernameExists はユーザー名が登録済みかどうかを返す。
func (s *Store) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ユーザー名の確認に失敗: %w", err)
	}
	return exists, nil
}

// Create はユーザーを登録する。ユーザー名が登録済みの場合はErrUsernameTakenを返す。
func (s *Store) Create(ctx context.Context, username, password, email string, superuser bool) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗: %w", err)
	}

	u := &User{
		ID:        uuid.New().String(),
		Username:  username,
		Email:     email,
		Superuser: superuser,
		CreatedAt: time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, email, superuser, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, string(hash), u.Email, u.Superuser, u.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("ユーザーの保存に失敗: %w", err)
	}
	return u, nil
}

// Authenticate はユーザー名とパスワードを検証してユーザーを返す。
func (s *Store) Authenticate(ctx context.Context, username, password string) (*User, error) {
	var (
		u         User
		hash      string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, email, superuser, created_at FROM users WHERE username = ?`,
		username).Scan(&u.ID, &u.Username, &hash, &u.Email, &u.Superuser, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if u.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("登録日時のパースに失敗: %w", err)
	}
	return &u, nil
}

// EnsureSuperuser は管理者が未登録の場合に登録する。登録した場合はtrueを返す。
func (s *Store) EnsureSuperuser(ctx context.Context, username, password string) (bool, error) {
	_, err := s.Create(ctx, username, password, "", true)
	if errors.Is(err, ErrUsernameTaken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// isUniqueViolation はエラーがUNIQUE制約違反かどうかを返す。
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	if se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	// 拡張エラーコードが無効な接続ではプライマリコードとメッセージで判定する
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE")
}
