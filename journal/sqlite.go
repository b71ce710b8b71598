package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordOrder(o OrderRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO orders
		(order_id, symbol, side, quantity, price, success, raw, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.OrderID, o.Symbol, o.Side, o.Quantity, o.Price, o.Success, o.Raw, o.Time,
	)
	return err
}

func (j *SQLite) RecordBalance(b BalanceSnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO balances
		(time, securities_eval, total_pl, total_eval)
		VALUES (?, ?, ?, ?)`,
		b.Time, b.SecuritiesEval, b.TotalPL, b.TotalEval,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
