package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	markSeenSQL = `INSERT INTO seen_articles (article_id, source, analyzed_at)
    VALUES ($1, $2, $3)
    ON CONFLICT (article_id) DO NOTHING;`

	isSeenSQL = `SELECT EXISTS (SELECT 1 FROM seen_articles WHERE article_id = $1);`

	markAlertedSQL = `INSERT INTO alerted_mentions (
        article_id,
        dedup_key,
        company,
        kind,
        amount_millions,
        confidence,
        source,
        title,
        url,
        alerted_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
    )
    ON CONFLICT (article_id, dedup_key) DO NOTHING;`

	isAlertedSQL = `SELECT EXISTS (
        SELECT 1 FROM alerted_mentions WHERE article_id = $1 AND dedup_key = $2
    );`

	listRecentAlertsSQL = `SELECT
        id,
        article_id,
        dedup_key,
        company,
        kind,
        amount_millions,
        confidence,
        source,
        title,
        url,
        alerted_at
    FROM alerted_mentions
    ORDER BY alerted_at DESC
    LIMIT $1;`

	listAlertsBetweenSQL = `SELECT
        id,
        article_id,
        dedup_key,
        company,
        kind,
        amount_millions,
        confidence,
        source,
        title,
        url,
        alerted_at
    FROM alerted_mentions
    WHERE alerted_at >= $1
      AND alerted_at < $2
    ORDER BY alerted_at;`

	deleteAlertsBeforeSQL = `DELETE FROM alerted_mentions WHERE alerted_at < $1;`
	deleteSeenBeforeSQL   = `DELETE FROM seen_articles WHERE analyzed_at < $1;`

	countSeenSQL    = `SELECT COUNT(*) FROM seen_articles;`
	countAlertedSQL = `SELECT COUNT(*) FROM alerted_mentions;`

	alertsBySourceSQL = `SELECT source, COUNT(*)
    FROM alerted_mentions
    GROUP BY source
    ORDER BY COUNT(*) DESC;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// Ledger records which articles were analyzed and which mentions already
// produced an alert. All operations are idempotent; MarkAlerted is the
// atomic check-and-set gate against concurrent pipeline runs.
type Ledger interface {
	IsSeen(ctx context.Context, articleID string) (bool, error)
	MarkSeen(ctx context.Context, articleID, source string, analyzedAt time.Time) error
	IsAlerted(ctx context.Context, articleID, dedupKey string) (bool, error)
	// MarkAlerted returns false when the (article, dedup key) pair was
	// already alerted; a lost insert race is not an error.
	MarkAlerted(ctx context.Context, rec AlertedMention) (bool, error)
	DeleteBefore(ctx context.Context, olderThan time.Time) error
}

// AlertLog exposes read access to the alert history.
type AlertLog interface {
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertedMention, error)
	ListAlertsBetween(ctx context.Context, from, to time.Time) ([]AlertedMention, error)
	Stats(ctx context.Context) (LedgerStats, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store is the PostgreSQL-backed Ledger.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// Best effort; the lock is released anyway when the session ends.
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

// IsSeen reports whether an article identity was already analyzed.
func (s *Store) IsSeen(ctx context.Context, articleID string) (bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return false, err
	}
	var seen bool
	if scanErr := pool.QueryRow(ctx, isSeenSQL, articleID).Scan(&seen); scanErr != nil {
		return false, fmt.Errorf("query seen article: %w", scanErr)
	}
	return seen, nil
}

// MarkSeen records an analyzed article. Marking an already-marked
// article is a no-op.
func (s *Store) MarkSeen(ctx context.Context, articleID, source string, analyzedAt time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, markSeenSQL, articleID, source, analyzedAt); execErr != nil {
		return fmt.Errorf("mark article seen: %w", execErr)
	}
	return nil
}

// IsAlerted reports whether a mention was already alerted.
func (s *Store) IsAlerted(ctx context.Context, articleID, dedupKey string) (bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return false, err
	}
	var alerted bool
	if scanErr := pool.QueryRow(ctx, isAlertedSQL, articleID, dedupKey).Scan(&alerted); scanErr != nil {
		return false, fmt.Errorf("query alerted mention: %w", scanErr)
	}
	return alerted, nil
}

// MarkAlerted claims the (article, dedup key) pair. The uniqueness
// constraint makes check-and-set atomic: a failed insert means another
// run already alerted, reported as (false, nil).
func (s *Store) MarkAlerted(ctx context.Context, rec AlertedMention) (bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return false, err
	}

	cmdTag, execErr := pool.Exec(ctx, markAlertedSQL,
		rec.ArticleID,
		rec.DedupKey,
		rec.Company,
		rec.Kind,
		rec.AmountMillions.String(),
		rec.Confidence,
		rec.Source,
		rec.Title,
		rec.URL,
		rec.AlertedAt,
	)
	if execErr != nil {
		return false, fmt.Errorf("mark mention alerted: %w", execErr)
	}
	return cmdTag.RowsAffected() == 1, nil
}

// DeleteBefore applies the retention policy to both ledger tables.
func (s *Store) DeleteBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteAlertsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete alerts before: %w", execErr)
	}
	if _, execErr := pool.Exec(ctx, deleteSeenBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete seen articles before: %w", execErr)
	}
	return nil
}

// ListRecentAlerts lists the most recent alerted mentions.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertedMention, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	return collectAlerts(rows, limit)
}

// ListAlertsBetween lists alerts within a time window.
func (s *Store) ListAlertsBetween(ctx context.Context, from, to time.Time) ([]AlertedMention, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listAlertsBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list alerts between: %w", queryErr)
	}
	defer rows.Close()

	return collectAlerts(rows, 0)
}

// Stats counts ledger contents.
func (s *Store) Stats(ctx context.Context) (LedgerStats, error) {
	pool, err := s.getPool()
	if err != nil {
		return LedgerStats{}, err
	}

	var stats LedgerStats
	if scanErr := pool.QueryRow(ctx, countSeenSQL).Scan(&stats.ArticlesSeen); scanErr != nil {
		return LedgerStats{}, fmt.Errorf("count seen articles: %w", scanErr)
	}
	if scanErr := pool.QueryRow(ctx, countAlertedSQL).Scan(&stats.AlertsEmitted); scanErr != nil {
		return LedgerStats{}, fmt.Errorf("count alerted mentions: %w", scanErr)
	}

	rows, queryErr := pool.Query(ctx, alertsBySourceSQL)
	if queryErr != nil {
		return LedgerStats{}, fmt.Errorf("alerts by source: %w", queryErr)
	}
	defer rows.Close()

	stats.AlertsBySource = make(map[string]int64)
	for rows.Next() {
		var source string
		var count int64
		if err := rows.Scan(&source, &count); err != nil {
			return LedgerStats{}, err
		}
		stats.AlertsBySource[source] = count
	}
	if rows.Err() != nil {
		return LedgerStats{}, rows.Err()
	}
	return stats, nil
}

func collectAlerts(rows pgx.Rows, sizeHint int) ([]AlertedMention, error) {
	alerts := make([]AlertedMention, 0, sizeHint)
	for rows.Next() {
		rec, scanErr := scanAlertedMention(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

func scanAlertedMention(rows pgx.Rows) (AlertedMention, error) {
	var (
		rec       AlertedMention
		amountStr string
	)

	if err := rows.Scan(
		&rec.ID,
		&rec.ArticleID,
		&rec.DedupKey,
		&rec.Company,
		&rec.Kind,
		&amountStr,
		&rec.Confidence,
		&rec.Source,
		&rec.Title,
		&rec.URL,
		&rec.AlertedAt,
	); err != nil {
		return AlertedMention{}, err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return AlertedMention{}, fmt.Errorf("parse amount: %w", err)
	}
	rec.AmountMillions = amount

	return rec, nil
}

var (
	_ Ledger         = (*Store)(nil)
	_ AlertLog       = (*Store)(nil)
	_ AdvisoryLocker = (*Store)(nil)
)
