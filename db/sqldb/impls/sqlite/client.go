// Package sqlite is the single-file sqldb.Client used for development, the certgen tool and tests.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"
	"github.com/zeptools/certgw/db/sqldb"
	"github.com/zeptools/certgw/db/sqldb/impls/stdsql"
)

const DBType = "sqlite"

// Client keeps one connection. For ":memory:" that connection is the database.
type Client struct {
	conf  *sqldb.Conf
	db    *sql.DB
	stmts *sqldb.Stmts
}

var _ sqldb.Client = (*Client)(nil)

// Register makes "sqlite" available to sqldb.New
func Register() {
	sqldb.RegisterFactory(DBType, func(conf *sqldb.Conf) (sqldb.Client, error) {
		return &Client{conf: conf}, nil
	})
}

func (c *Client) dsn() string {
	switch {
	case c.conf.DSN != "":
		return c.conf.DSN
	case c.conf.DB == "" || c.conf.DB == ":memory:":
		return "file::memory:?_foreign_keys=on"
	}
	return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", c.conf.DB)
}

func (c *Client) Init() (err error) {
	dsn := c.dsn()
	if c.db, err = sql.Open("sqlite3", dsn); err != nil {
		return err
	}
	c.db.SetMaxOpenConns(1)
	if err = c.db.PingContext(context.Background()); err != nil {
		return fmt.Errorf("sqlite open %s: %w", dsn, err)
	}
	if c.stmts, err = sqldb.LoadStmts(DBType); err != nil {
		return err
	}
	log.Printf("[INFO][SQLDB] sqlite ready (%s)", dsn)
	return nil
}

func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *Client) Conf() *sqldb.Conf        { return c.conf }
func (c *Client) DBType() string           { return DBType }
func (c *Client) Stmts() *sqldb.Stmts      { return c.stmts }
func (c *Client) DBHandle() sqldb.DBHandle { return stdsql.NewDBHandle(c.db) }

func (c *Client) BeginTx(ctx context.Context) (sqldb.Tx, error) {
	return stdsql.BeginTx(ctx, c.db)
}
