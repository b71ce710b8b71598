// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS orders (
	order_id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	price INTEGER NOT NULL,
	success INTEGER NOT NULL,
	raw TEXT NOT NULL,
	time DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS balances (
	time DATETIME NOT NULL,
	securities_eval INTEGER NOT NULL,
	total_pl INTEGER NOT NULL,
	total_eval INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_balances_time ON balances(time);
`
