// Package testdb 는 테스트용 인메모리 SQLite 데이터베이스를 제공한다.
// 레포지토리 SQL 은 $n 플레이스홀더와 RETURNING 만 사용하므로
// PostgreSQL 과 SQLite 양쪽에서 동일하게 동작한다.
package testdb

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE members (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT NOT NULL UNIQUE,
    city        TEXT NOT NULL DEFAULT '',
    street      TEXT NOT NULL DEFAULT '',
    zipcode     TEXT NOT NULL DEFAULT '',
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL
);

CREATE TABLE items (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    kind            TEXT NOT NULL,
    name            TEXT NOT NULL,
    price           INTEGER NOT NULL,
    stock_quantity  INTEGER NOT NULL CHECK (stock_quantity >= 0),
    author          TEXT NOT NULL DEFAULT '',
    isbn            TEXT NOT NULL DEFAULT '',
    version         INTEGER NOT NULL DEFAULT 0,
    created_at      INTEGER NOT NULL,
    updated_at      INTEGER NOT NULL
);

CREATE TABLE deliveries (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    city     TEXT NOT NULL DEFAULT '',
    street   TEXT NOT NULL DEFAULT '',
    zipcode  TEXT NOT NULL DEFAULT '',
    status   TEXT NOT NULL
);

CREATE TABLE orders (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    member_id    INTEGER NOT NULL REFERENCES members (id),
    delivery_id  INTEGER NOT NULL REFERENCES deliveries (id),
    order_date   INTEGER NOT NULL,
    status       TEXT NOT NULL,
    version      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE order_items (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id     INTEGER NOT NULL REFERENCES orders (id) ON DELETE CASCADE,
    item_id      INTEGER NOT NULL REFERENCES items (id),
    order_price  INTEGER NOT NULL,
    count        INTEGER NOT NULL CHECK (count > 0)
);

CREATE TABLE outbox_events (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    aggregate_type  TEXT NOT NULL,
    aggregate_id    INTEGER NOT NULL,
    event_type      TEXT NOT NULL,
    payload         TEXT NOT NULL,
    status          TEXT NOT NULL DEFAULT 'PENDING',
    created_at      INTEGER NOT NULL,
    sent_at         INTEGER
);
`

// Open 스키마가 적용된 인메모리 데이터베이스를 연다.
// 테스트 종료 시 자동으로 닫힌다.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// 인메모리 DB 는 커넥션마다 별도 인스턴스가 되므로 하나로 고정한다.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("apply schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}
