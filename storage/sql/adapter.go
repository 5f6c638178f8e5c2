package sql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/sig-0/p2prates/storage/types"
)

var errInvalidNumeric = errors.New("invalid numeric value")

const (
	saveRateQuery = `INSERT INTO named_rates (name, value, as_of) VALUES ($1, $2, $3)`

	latestRatesQuery = `SELECT name, value, as_of
FROM named_rates
WHERE name = $1
ORDER BY as_of DESC, id DESC
LIMIT $2`

	listRateNamesQuery = `SELECT DISTINCT name FROM named_rates ORDER BY name`

	saveBucketRateQuery = `INSERT INTO bucket_rates (label, fiat, side, bucket, value, seller, methods, as_of)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	latestBucketRatesQuery = `SELECT DISTINCT ON (bucket) label, fiat, side, bucket, value, seller, methods, as_of
FROM bucket_rates
WHERE label = $1 AND side = $2
ORDER BY bucket, as_of DESC, id DESC`
)

// Querier is the subset of the pgx API used by the storage.
// Satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Storage is the PostgreSQL rate log
type Storage struct {
	db Querier
}

// NewStorage creates a new instance of the PostgreSQL storage
func NewStorage(db Querier) *Storage {
	return &Storage{
		db: db,
	}
}

func (s *Storage) SaveRate(ctx context.Context, rate *types.NamedRate) error {
	if _, err := s.db.Exec(
		ctx,
		saveRateQuery,
		rate.Name,
		decimalToNumeric(rate.Value),
		timeToTimestamptz(rate.AsOf),
	); err != nil {
		return fmt.Errorf("unable to save rate %q: %w", rate.Name, err)
	}

	return nil
}

func (s *Storage) LatestRates(ctx context.Context, name string, limit int) ([]*types.NamedRate, error) {
	rows, err := s.db.Query(ctx, latestRatesQuery, name, limit)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch rates: %w", err)
	}
	defer rows.Close()

	out := make([]*types.NamedRate, 0, limit)

	for rows.Next() {
		var (
			rateName string
			value    pgtype.Numeric
			asOf     pgtype.Timestamptz
		)

		if err = rows.Scan(&rateName, &value, &asOf); err != nil {
			return nil, fmt.Errorf("unable to scan rate: %w", err)
		}

		v, err := numericToDecimal(value)
		if err != nil {
			return nil, fmt.Errorf("unable to parse rate %q: %w", rateName, err)
		}

		out = append(out, &types.NamedRate{
			Name:  rateName,
			Value: v,
			AsOf:  timestamptzToTime(asOf),
		})
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to iterate rates: %w", err)
	}

	return out, nil
}

func (s *Storage) ListRateNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, listRateNamesQuery)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch rate names: %w", err)
	}

	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("unable to collect rate names: %w", err)
	}

	return names, nil
}

func (s *Storage) SaveBucketRate(ctx context.Context, rate *types.BucketRate) error {
	methods := rate.Methods
	if methods == nil {
		methods = []string{}
	}

	if _, err := s.db.Exec(
		ctx,
		saveBucketRateQuery,
		rate.Label,
		rate.Fiat,
		rate.Side.String(),
		rate.Bucket.String(),
		decimalToNumeric(rate.Value),
		rate.Seller,
		methods,
		timeToTimestamptz(rate.AsOf),
	); err != nil {
		return fmt.Errorf("unable to save bucket rate: %w", err)
	}

	return nil
}

func (s *Storage) LatestBucketRates(
	ctx context.Context,
	label string,
	side types.Side,
) ([]*types.BucketRate, error) {
	rows, err := s.db.Query(ctx, latestBucketRatesQuery, label, side.String())
	if err != nil {
		return nil, fmt.Errorf("unable to fetch bucket rates: %w", err)
	}
	defer rows.Close()

	out := make([]*types.BucketRate, 0, 4)

	for rows.Next() {
		var (
			r            types.BucketRate
			sideRaw      string
			bucketRaw    string
			value        pgtype.Numeric
			asOf         pgtype.Timestamptz
			methodsSlice []string
		)

		if err = rows.Scan(
			&r.Label,
			&r.Fiat,
			&sideRaw,
			&bucketRaw,
			&value,
			&r.Seller,
			&methodsSlice,
			&asOf,
		); err != nil {
			return nil, fmt.Errorf("unable to scan bucket rate: %w", err)
		}

		if r.Value, err = numericToDecimal(value); err != nil {
			return nil, fmt.Errorf("unable to parse bucket rate: %w", err)
		}

		r.Side = types.Side(sideRaw)
		r.Bucket = types.Bucket(bucketRaw)
		r.Methods = methodsSlice
		r.AsOf = timestamptzToTime(asOf)

		out = append(out, &r)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to iterate bucket rates: %w", err)
	}

	return out, nil
}

// decimalToNumeric converts the decimal value to postgres numeric, without loss
func decimalToNumeric(value decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{
		Int:   value.Coefficient(),
		Exp:   value.Exponent(),
		Valid: true,
	}
}

// numericToDecimal converts the postgres value to decimal
func numericToDecimal(value pgtype.Numeric) (decimal.Decimal, error) {
	if !value.Valid || value.Int == nil || value.NaN || value.InfinityModifier != pgtype.Finite {
		return decimal.Zero, errInvalidNumeric
	}

	return decimal.NewFromBigInt(value.Int, value.Exp), nil
}

// timeToTimestamptz converts the time value to postgres timestamp
func timeToTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{
		Time:  t.UTC(),
		Valid: true,
	}
}

// timestamptzToTime converts the postgres timestamp value to time
func timestamptzToTime(ts pgtype.Timestamptz) time.Time {
	if !ts.Valid {
		return time.Time{}
	}

	return ts.Time.In(types.Zone)
}
