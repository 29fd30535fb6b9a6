package extractors

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/LilVoxy/sakila_analytics/ETL/models"
	"github.com/LilVoxy/sakila_analytics/ETL/utils"
)

// Source reads the transactional store. A since at or before the Unix epoch
// extracts the whole table; otherwise only rows changed after since.
type Source interface {
	Actors(ctx context.Context, since time.Time) ([]models.Actor, error)
	Categories(ctx context.Context, since time.Time) ([]models.Category, error)
	Stores(ctx context.Context, since time.Time) ([]models.Store, error)
	Customers(ctx context.Context, since time.Time) ([]models.Customer, error)
	Films(ctx context.Context, since time.Time) ([]models.Film, error)
	FilmActors(ctx context.Context, since time.Time) ([]models.FilmActor, error)
	FilmCategories(ctx context.Context, since time.Time) ([]models.FilmCategory, error)
	Rentals(ctx context.Context, since time.Time) ([]models.Rental, error)
	Payments(ctx context.Context, since time.Time) ([]models.Payment, error)
}

// Querier is satisfied by *sql.DB
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// MySQLExtractor reads the sakila schema. It never writes to the source.
type MySQLExtractor struct {
	db     Querier
	logger *utils.ETLLogger
}

// NewMySQLExtractor creates a new MySQLExtractor
func NewMySQLExtractor(db Querier, logger *utils.ETLLogger) *MySQLExtractor {
	return &MySQLExtractor{
		db:     db,
		logger: logger,
	}
}

// extractQuery describes one extraction: the SELECT without WHERE, the change
// marker columns compared against since, and the ORDER BY clause
type extractQuery struct {
	entity  string
	base    string
	markers []string
	order   string
}

func (q extractQuery) build(since time.Time) (string, []interface{}) {
	var (
		b    strings.Builder
		args []interface{}
	)
	b.WriteString(q.base)
	if since.Unix() > 0 {
		conds := make([]string, 0, len(q.markers))
		for _, m := range q.markers {
			conds = append(conds, m+" > ?")
			args = append(args, since)
		}
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " OR "))
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(q.order)
	return b.String(), args
}

func extract[T any](ctx context.Context, e *MySQLExtractor, q extractQuery, since time.Time,
	scan func(*sql.Rows, *T) error) ([]T, error) {

	startTime := time.Now()
	query, args := q.build(since)

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.entity, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var item T
		if err := scan(rows, &item); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", q.entity, err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", q.entity, err)
	}

	e.logger.Debug("Extracted %d %s rows in %v", len(out), q.entity, time.Since(startTime))
	return out, nil
}
