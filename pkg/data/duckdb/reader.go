package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/jan-sykora/meridian/pkg/common"
	"github.com/jan-sykora/meridian/pkg/utility/fixed"
)

// Reader streams OHLCV rows out of a duckdb file. Each symbol lives in its
// own <symbol>_bars table.
type Reader struct {
	dataSourceName string
	db             *sql.DB
}

func NewReader(dataSourceName string) *Reader {
	return &Reader{
		dataSourceName: dataSourceName,
	}
}

func (r *Reader) Connect() error {
	db, err := sql.Open("duckdb", r.dataSourceName)
	if err != nil {
		return fmt.Errorf("sql.Open: %v", err)
	}
	r.db = db
	return nil
}

func (r *Reader) Close() {
	_ = r.db.Close()
}

// LoadBars invokes the handler for every bar of the symbol within [from, to],
// in storage order. Rows violating the price invariants fail the load.
func (r *Reader) LoadBars(ctx context.Context, symbol string, from, to time.Time, handler func(bar common.Bar) error) error {

	query := fmt.Sprintf(`SELECT ts, open, high, low, close, volume, adj_close FROM %s_bars WHERE ts BETWEEN ? AND ? ORDER BY ts`, symbol)

	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return fmt.Errorf("error preparing query: %w", err)
	}
	defer func(rows *sql.Rows) {
		err := rows.Close()
		if err != nil {
			panic(err)
		}
	}(rows)

	for rows.Next() {
		var (
			timeStamp                   time.Time
			open, high, low, closePrice float64
			volume, adjClose            float64
		)
		if err := rows.Scan(&timeStamp, &open, &high, &low, &closePrice, &volume, &adjClose); err != nil {
			return fmt.Errorf("error scanning row: %w", err)
		}

		bar, err := common.NewBar(symbol, timeStamp,
			fixed.FromFloat64(open), fixed.FromFloat64(high),
			fixed.FromFloat64(low), fixed.FromFloat64(closePrice),
			fixed.FromFloat64(volume), fixed.FromFloat64(adjClose))
		if err != nil {
			return fmt.Errorf("error building bar: %w", err)
		}

		if err := handler(bar); err != nil {
			return fmt.Errorf("error processing bar: %w", err)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error scanning rows: %w", err)
	}

	return nil
}
