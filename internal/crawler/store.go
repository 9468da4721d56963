package crawler

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/ccshuffle/pkg/crawl"
)

// executionDateLayout はexecution_dateの保存形式。
// 小数部を9桁に固定し、文字列の順序が時刻の順序と一致するようにする。
const executionDateLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store はクロール処理記録のSQLiteストア。
type Store struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// NewStore は新しいストアを生成する。
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create は処理記録を新規に保存する。IDが空の場合はUUIDを採番する。
func (s *Store) Create(ctx context.Context, p *crawl.Process) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO crawling_processes (id, service, execution_date, status, exception, track_count)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, string(p.Service), p.ExecutionDate.UTC().Format(executionDateLayout), string(p.Status), p.Exception, p.TrackCount)
	if err != nil {
		return fmt.Errorf("処理記録の保存に失敗: %w", err)
	}
	return nil
}

// Update は処理記録の状態を更新する。
func (s *Store) Update(ctx context.Context, p *crawl.Process) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE crawling_processes SET status = ?, exception = ?, track_count = ? WHERE id = ?`,
		string(p.Status), p.Exception, p.TrackCount, p.ID)
	if err != nil {
		return fmt.Errorf("処理記録の更新に失敗: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新件数の取得に失敗: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("処理記録が見つかりません: %s: %w", p.ID, sql.ErrNoRows)
	}
	return nil
}

// ListByService はサービスの処理記録を実行日時の新しい順に返す。
func (s *Store) ListByService(ctx context.Context, service crawl.Service) ([]crawl.Process, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, service, execution_date, status, exception, track_count
		 FROM crawling_processes WHERE service = ? ORDER BY execution_date DESC, id`,
		string(service))
	if err != nil {
		return nil, fmt.Errorf("処理記録の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	processes := []crawl.Process{}
	for rows.Next() {
		var (
			p         crawl.Process
			svc, st   string
			executed  string
			exception sql.NullString
		)
		if err := rows.Scan(&p.ID, &svc, &executed, &st, &exception, &p.TrackCount); err != nil {
			return nil, fmt.Errorf("処理記録の読み込みに失敗: %w", err)
		}
		p.Service = crawl.Service(svc)
		p.Status = crawl.Status(st)
		if p.ExecutionDate, err = time.Parse(executionDateLayout, executed); err != nil {
			return nil, fmt.Errorf("実行日時のパースに失敗: %w", err)
		}
		if exception.Valid {
			msg := exception.String
			p.Exception = &msg
		}
		processes = append(processes, p)
	}
	return processes, rows.Err()
}
