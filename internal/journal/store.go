package journal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Record 一条待归档的主机行
type Record struct {
	Kind string
	MAC  string
	Line []byte
	At   time.Time
}

// Row 已归档的行
type Row struct {
	ID         int64           `json:"id"`
	Kind       string          `json:"kind"`
	MAC        *string         `json:"mac,omitempty"`
	Line       json.RawMessage `json:"line"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// Store 归档存储
type Store interface {
	Insert(ctx context.Context, hubID string, recs []Record) error
}

// PGStore hub_events 表
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore { return &PGStore{pool: pool} }

const insertSQL = `INSERT INTO hub_events (hub_id, kind, mac, line, recorded_at) VALUES ($1, $2, NULLIF($3, ''), $4::jsonb, $5)`

// Insert 一个批次一次往返
func (s *PGStore) Insert(ctx context.Context, hubID string, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for i := range recs {
		r := &recs[i]
		b.Queue(insertSQL, hubID, r.Kind, r.MAC, string(r.Line), r.At)
	}
	return s.pool.SendBatch(ctx, b).Close()
}

// Recent 最近的归档行，按写入倒序
func (s *PGStore) Recent(ctx context.Context, hubID string, limit int) ([]Row, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, kind, mac, line, recorded_at FROM hub_events WHERE hub_id = $1 ORDER BY id DESC LIMIT $2`,
		hubID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Row, 0, limit)
	for rows.Next() {
		var r Row
		var line []byte
		if err := rows.Scan(&r.ID, &r.Kind, &r.MAC, &line, &r.RecordedAt); err != nil {
			return nil, err
		}
		r.Line = json.RawMessage(line)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Ping 健康检查
func (s *PGStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }
