package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"exposure/internal/diagnosis/models"
	"exposure/pkg/platform/sentinel"
	txcontext "exposure/pkg/platform/tx"
)

const diagnosisColumns = `verification_code, created_at_ms, shared_status, long_term_token, certificate,
	revision_token, onset_date, has_symptoms, test_result, travel_status`

// SQLStore persists diagnoses in a relational database. The same queries serve
// the embedded SQLite file and PostgreSQL; Dialect picks placeholders and DDL.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQL wraps db. Call Migrate before first use on a fresh database.
func NewSQL(db *sql.DB, dialect Dialect) (*SQLStore, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if err := dialect.validate(); err != nil {
		return nil, err
	}
	return &SQLStore{db: db, dialect: dialect}, nil
}

// Migrate creates the diagnoses table and its indexes when missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate diagnoses: %w", sentinel.Unavailable(err))
		}
	}
	return nil
}

// RunInTx executes fn in a database transaction carried through ctx.
func (s *SQLStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	var fnErr error
	err := txcontext.Run(ctx, s.db, nil, func(ctx context.Context) error {
		fnErr = fn(ctx)
		return fnErr
	})
	if err != nil && fnErr == nil {
		return fmt.Errorf("diagnosis transaction: %w", sentinel.Unavailable(err))
	}
	return err
}

func (s *SQLStore) Save(ctx context.Context, record models.Record) (int64, error) {
	row := toRow(record)
	if record.ID == 0 {
		var id int64
		query := s.dialect.rebind(`INSERT INTO diagnoses (` + diagnosisColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
		err := s.exec(ctx).QueryRowContext(ctx, query, row.args()...).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("insert diagnosis: %w", sentinel.Unavailable(err))
		}
		return id, nil
	}

	var id int64
	err := s.RunInTx(ctx, func(ctx context.Context) error {
		query := s.dialect.rebind(`INSERT INTO diagnoses (id, ` + diagnosisColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET ` + updateAssignments() + `
			RETURNING id`)
		args := append([]any{record.ID}, row.args()...)
		if err := s.exec(ctx).QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return sentinel.Unavailable(err)
		}
		if s.dialect == DialectPostgres {
			// Explicit ids bypass the identity sequence; keep it ahead of them.
			_, err := s.exec(ctx).ExecContext(ctx, `SELECT setval(pg_get_serial_sequence('diagnoses', 'id'),
				GREATEST((SELECT MAX(id) FROM diagnoses), 1))`)
			if err != nil {
				return sentinel.Unavailable(err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("upsert diagnosis %d: %w", record.ID, err)
	}
	return id, nil
}

func (s *SQLStore) FindByID(ctx context.Context, id int64) (*models.Record, error) {
	query := `SELECT id, ` + diagnosisColumns + ` FROM diagnoses WHERE id = ?`
	if _, inTx := txcontext.From(ctx); inTx {
		// a read-modify-write must block concurrent deletes of the row until commit
		query = s.dialect.forUpdate(query)
	}
	query = s.dialect.rebind(query)
	rec, err := scanRecord(s.exec(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find diagnosis %d: %w", id, err)
	}
	return &rec, nil
}

func (s *SQLStore) ListByVerificationCode(ctx context.Context, code string) ([]models.Record, error) {
	query := s.dialect.rebind(`SELECT id, ` + diagnosisColumns + ` FROM diagnoses
		WHERE verification_code = ? ORDER BY id`)
	records, err := s.query(ctx, query, code)
	if err != nil {
		return nil, fmt.Errorf("list diagnoses by verification code: %w", err)
	}
	return records, nil
}

func (s *SQLStore) ListAll(ctx context.Context) ([]models.Record, error) {
	records, err := s.query(ctx, `SELECT id, `+diagnosisColumns+` FROM diagnoses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list diagnoses: %w", err)
	}
	return records, nil
}

func (s *SQLStore) DeleteByID(ctx context.Context, id int64) error {
	query := s.dialect.rebind(`DELETE FROM diagnoses WHERE id = ?`)
	if _, err := s.exec(ctx).ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete diagnosis %d: %w", id, sentinel.Unavailable(err))
	}
	return nil
}

func (s *SQLStore) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := s.dialect.rebind(`DELETE FROM diagnoses WHERE created_at_ms IS NOT NULL AND created_at_ms < ?`)
	res, err := s.exec(ctx).ExecContext(ctx, query, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("delete obsolete diagnoses: %w", sentinel.Unavailable(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete obsolete diagnoses: %w", sentinel.Unavailable(err))
	}
	return n, nil
}

// Ping verifies the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return sentinel.Unavailable(err)
	}
	return nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *SQLStore) DB() *sql.DB { return s.db }

func (s *SQLStore) exec(ctx context.Context) txcontext.Executor {
	return txcontext.ExecutorFor(ctx, s.db)
}

func (s *SQLStore) query(ctx context.Context, query string, args ...any) ([]models.Record, error) {
	rows, err := s.exec(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, sentinel.Unavailable(err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]models.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, sentinel.Unavailable(err)
	}
	return records, nil
}

func updateAssignments() string {
	cols := strings.Split(diagnosisColumns, ",")
	sets := make([]string, 0, len(cols))
	for _, col := range cols {
		col = strings.TrimSpace(col)
		sets = append(sets, col+" = excluded."+col)
	}
	return strings.Join(sets, ", ")
}

type diagnosisRow struct {
	VerificationCode string
	CreatedAtMS      sql.NullInt64
	SharedStatus     string
	LongTermToken    string
	Certificate      string
	RevisionToken    string
	OnsetDate        sql.NullString
	HasSymptoms      string
	TestResult       string
	TravelStatus     string
}

func (r diagnosisRow) args() []any {
	return []any{
		r.VerificationCode, r.CreatedAtMS, r.SharedStatus, r.LongTermToken, r.Certificate,
		r.RevisionToken, r.OnsetDate, r.HasSymptoms, r.TestResult, r.TravelStatus,
	}
}

func toRow(rec models.Record) diagnosisRow {
	row := diagnosisRow{
		VerificationCode: rec.VerificationCode,
		SharedStatus:     rec.SharedStatus.String(),
		LongTermToken:    rec.LongTermToken,
		Certificate:      rec.Certificate,
		RevisionToken:    rec.RevisionToken,
		HasSymptoms:      rec.HasSymptoms.String(),
		TestResult:       rec.TestResult.String(),
		TravelStatus:     rec.TravelStatus.String(),
	}
	if rec.CreatedAt != nil {
		row.CreatedAtMS = sql.NullInt64{Int64: rec.CreatedAt.UnixMilli(), Valid: true}
	}
	if rec.OnsetDate != nil {
		row.OnsetDate = sql.NullString{String: rec.OnsetDate.String(), Valid: true}
	}
	return row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(scanner rowScanner) (models.Record, error) {
	var (
		id  int64
		row diagnosisRow
	)
	err := scanner.Scan(&id, &row.VerificationCode, &row.CreatedAtMS, &row.SharedStatus,
		&row.LongTermToken, &row.Certificate, &row.RevisionToken, &row.OnsetDate,
		&row.HasSymptoms, &row.TestResult, &row.TravelStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Record{}, err
		}
		return models.Record{}, sentinel.Unavailable(err)
	}
	return fromRow(id, row)
}

func fromRow(id int64, row diagnosisRow) (models.Record, error) {
	rec := models.Record{
		ID:               id,
		VerificationCode: row.VerificationCode,
		LongTermToken:    row.LongTermToken,
		Certificate:      row.Certificate,
		RevisionToken:    row.RevisionToken,
	}
	var err error
	if rec.SharedStatus, err = models.ParseShared(row.SharedStatus); err != nil {
		return models.Record{}, fmt.Errorf("diagnosis %d: %w: %w", id, sentinel.ErrInvalidState, err)
	}
	if rec.HasSymptoms, err = models.ParseHasSymptoms(row.HasSymptoms); err != nil {
		return models.Record{}, fmt.Errorf("diagnosis %d: %w: %w", id, sentinel.ErrInvalidState, err)
	}
	if rec.TestResult, err = models.ParseTestResult(row.TestResult); err != nil {
		return models.Record{}, fmt.Errorf("diagnosis %d: %w: %w", id, sentinel.ErrInvalidState, err)
	}
	if rec.TravelStatus, err = models.ParseTravelStatus(row.TravelStatus); err != nil {
		return models.Record{}, fmt.Errorf("diagnosis %d: %w: %w", id, sentinel.ErrInvalidState, err)
	}
	if row.CreatedAtMS.Valid {
		rec.CreatedAt = models.TimestampMillis(row.CreatedAtMS.Int64)
	}
	if row.OnsetDate.Valid {
		d, err := models.ParseDate(row.OnsetDate.String)
		if err != nil {
			return models.Record{}, fmt.Errorf("diagnosis %d onset date: %w: %w", id, sentinel.ErrInvalidState, err)
		}
		rec.OnsetDate = &d
	}
	if err := rec.Validate(); err != nil {
		return models.Record{}, fmt.Errorf("diagnosis %d: %w: %w", id, sentinel.ErrInvalidState, err)
	}
	return rec, nil
}
