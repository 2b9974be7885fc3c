package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// Querier — минимальный интерфейс исполнения одного параметризованного запроса.
// Ему удовлетворяют *sql.Conn, *sql.Tx и *sql.DB.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Record — нормализованная строка результата: имя колонки → значение.
// Имена берутся из метаданных statement, значения приводятся к базовым типам Go.
type Record map[string]any

// queryOne выполняет запрос и возвращает первую строку или nil, если строк нет.
func queryOne(ctx context.Context, q Querier, query string, params ...any) (Record, error) {
	records, err := queryMany(ctx, q, query, params...)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// queryMany выполняет запрос и возвращает все строки, нормализованные в Record.
func queryMany(ctx context.Context, q Querier, query string, params ...any) ([]Record, error) {
	rows, err := q.QueryContext(ctx, query, bindParams(params)...)
	if err != nil {
		return nil, classify("execute query", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, classify("scan query result", err)
	}
	return records, nil
}

// execute выполняет statement без результата и возвращает число затронутых строк.
func execute(ctx context.Context, q Querier, query string, params ...any) (int64, error) {
	res, err := q.ExecContext(ctx, query, bindParams(params)...)
	if err != nil {
		return 0, classify("execute statement", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, classify("rows affected", err)
	}
	return affected, nil
}

// bindParams приводит параметры к виду, который принимает драйвер:
// UUID сериализуются в строковую форму на границе привязки.
func bindParams(params []any) []any {
	if len(params) == 0 {
		return nil
	}
	bound := make([]any, len(params))
	for i, p := range params {
		switch v := p.(type) {
		case uuid.UUID:
			bound[i] = v.String()
		case *uuid.UUID:
			if v == nil {
				bound[i] = nil
			} else {
				bound[i] = v.String()
			}
		default:
			bound[i] = p
		}
	}
	return bound
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read column metadata: %w", err)
	}

	records := make([]Record, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		record := make(Record, len(columns))
		for i, name := range columns {
			record[name] = normalizeValue(values[i])
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return records, nil
}

func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// pgErrorKinds — единственная таблица классификации диагностик драйвера.
// Классификация выполняется здесь один раз и выше по стеку не пересматривается.
var pgErrorKinds = map[string]domain.Kind{
	"23000": domain.KindIntegrity, // integrity_constraint_violation
	"23502": domain.KindIntegrity, // not_null_violation
	"23503": domain.KindIntegrity, // foreign_key_violation
	"23505": domain.KindIntegrity, // unique_violation
	"23514": domain.KindIntegrity, // check_violation
	"P0002": domain.KindNotFound,  // no_data_found
	"42501": domain.KindForbidden, // insufficient_privilege
}

// classify переводит ошибку драйвера в доменную, сохраняя исходную причину.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var domErr *domain.Error
	if errors.As(err, &domErr) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if kind, ok := pgErrorKinds[pgErr.Code]; ok {
			return domain.Wrap(kind, op, err)
		}
	}
	return domain.Wrap(domain.KindGeneric, op, err)
}

// Хелперы декодирования нормализованных записей. Драйвер через database/sql
// отдаёт значения базовыми типами; ниже сведены встречающиеся варианты.

func recordString(rec Record, key string) (string, error) {
	v, ok := rec[key]
	if !ok || v == nil {
		return "", fmt.Errorf("column %q is absent or NULL", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("column %q has unexpected type %T", key, v)
	}
	return s, nil
}

func recordStringPtr(rec Record, key string) (*string, error) {
	v, ok := rec[key]
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("column %q has unexpected type %T", key, v)
	}
	return &s, nil
}

func recordUUID(rec Record, key string) (uuid.UUID, error) {
	s, err := recordString(rec, key)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("column %q is not a valid uuid: %w", key, err)
	}
	return id, nil
}

func recordInt32(rec Record, key string) (int32, error) {
	v, ok := rec[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("column %q is absent or NULL", key)
	}
	switch n := v.(type) {
	case int64:
		return int32(n), nil
	case int32:
		return n, nil
	default:
		return 0, fmt.Errorf("column %q has unexpected type %T", key, v)
	}
}

func recordDecimal(rec Record, key string) (decimal.Decimal, error) {
	v, ok := rec[key]
	if !ok || v == nil {
		return decimal.Decimal{}, fmt.Errorf("column %q is absent or NULL", key)
	}
	switch n := v.(type) {
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("column %q is not a valid decimal: %w", key, err)
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(n), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("column %q has unexpected type %T", key, v)
	}
}

func recordTime(rec Record, key string) (time.Time, error) {
	v, ok := rec[key]
	if !ok || v == nil {
		return time.Time{}, fmt.Errorf("column %q is absent or NULL", key)
	}
	ts, ok := v.(time.Time)
	if !ok {
		return time.Time{}, fmt.Errorf("column %q has unexpected type %T", key, v)
	}
	return ts, nil
}

func recordTimePtr(rec Record, key string) (*time.Time, error) {
	v, ok := rec[key]
	if !ok || v == nil {
		return nil, nil
	}
	ts, ok := v.(time.Time)
	if !ok {
		return nil, fmt.Errorf("column %q has unexpected type %T", key, v)
	}
	return &ts, nil
}

func recordBool(rec Record, key string) (bool, error) {
	v, ok := rec[key]
	if !ok || v == nil {
		return false, fmt.Errorf("column %q is absent or NULL", key)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("column %q has unexpected type %T", key, v)
	}
	return b, nil
}
