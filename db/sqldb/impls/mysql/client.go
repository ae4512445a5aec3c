// Package mysql is the go-sql-driver/mysql sqldb.Client.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	driver "github.com/go-sql-driver/mysql"
	"github.com/zeptools/certgw/db/sqldb"
	"github.com/zeptools/certgw/db/sqldb/impls/stdsql"
)

const DBType = "mysql"

type Client struct {
	conf  *sqldb.Conf
	db    *sql.DB
	stmts *sqldb.Stmts
}

var _ sqldb.Client = (*Client)(nil)

// Register makes "mysql" available to sqldb.New
func Register() {
	sqldb.RegisterFactory(DBType, func(conf *sqldb.Conf) (sqldb.Client, error) {
		return &Client{conf: conf}, nil
	})
}

// dsn quotes identifiers the ANSI way so the shared `.sql` statements run unchanged
func (c *Client) dsn() (string, error) {
	if c.conf.DSN != "" {
		return c.conf.DSN, nil
	}
	loc, err := time.LoadLocation(c.conf.Zone())
	if err != nil {
		return "", fmt.Errorf("mysql tz: %w", err)
	}
	cfg := driver.NewConfig()
	cfg.User = c.conf.User
	cfg.Passwd = c.conf.PW
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", c.conf.Host, c.conf.Port)
	cfg.DBName = c.conf.DB
	cfg.ParseTime = true
	cfg.Loc = loc
	cfg.MultiStatements = true
	cfg.Params = map[string]string{"sql_mode": "'ANSI_QUOTES'"}
	return cfg.FormatDSN(), nil
}

func (c *Client) Init() error {
	dsn, err := c.dsn()
	if err != nil {
		return err
	}
	if c.db, err = sql.Open("mysql", dsn); err != nil {
		return err
	}
	c.db.SetConnMaxLifetime(c.conf.ConnLifetime())
	c.db.SetMaxOpenConns(c.conf.PoolSize())
	c.db.SetMaxIdleConns(c.conf.PoolSize())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("mysql ping: %w", err)
	}
	if c.stmts, err = sqldb.LoadStmts(DBType); err != nil {
		return err
	}
	log.Printf("[INFO][SQLDB] mysql %s/%s ready", c.conf.Host, c.conf.DB)
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
