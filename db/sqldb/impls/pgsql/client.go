// Package pgsql is the pgx pool backed sqldb.Client.
package pgsql

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zeptools/certgw/db/sqldb"
)

const DBType = "pgsql"

var errNotReady = errors.New("pgsql: client not initialized")

type Client struct {
	conf  *sqldb.Conf
	pool  *pgxpool.Pool
	stmts *sqldb.Stmts
}

var _ sqldb.Client = (*Client)(nil)

// Register makes "pgsql" available to sqldb.New
func Register() {
	sqldb.RegisterFactory(DBType, func(conf *sqldb.Conf) (sqldb.Client, error) {
		return &Client{conf: conf}, nil
	})
}

func (c *Client) poolConfig() (*pgxpool.Config, error) {
	dsn := c.conf.DSN
	if dsn == "" {
		dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=%s",
			c.conf.Host, c.conf.Port, c.conf.User, c.conf.PW, c.conf.DB, c.conf.Zone())
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pgsql dsn: %w", err)
	}
	cfg.MaxConns = int32(c.conf.PoolSize())
	cfg.MinConns = min(2, cfg.MaxConns)
	cfg.MaxConnLifetime = c.conf.ConnLifetime()
	return cfg, nil
}

func (c *Client) Init() error {
	cfg, err := c.poolConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if c.pool, err = pgxpool.NewWithConfig(ctx, cfg); err != nil {
		return fmt.Errorf("pgsql pool: %w", err)
	}
	if err = c.pool.Ping(ctx); err != nil {
		return fmt.Errorf("pgsql ping: %w", err)
	}
	if c.stmts, err = sqldb.LoadStmts(DBType); err != nil {
		return err
	}
	log.Printf("[INFO][SQLDB] pgsql %s/%s ready, pool %d", cfg.ConnConfig.Host, cfg.ConnConfig.Database, cfg.MaxConns)
	return nil
}

func (c *Client) Close() error {
	if c.pool != nil {
		c.pool.Close()
	}
	return nil
}

func (c *Client) Conf() *sqldb.Conf        { return c.conf }
func (c *Client) DBType() string           { return DBType }
func (c *Client) Stmts() *sqldb.Stmts      { return c.stmts }
func (c *Client) DBHandle() sqldb.DBHandle { return &handle{q: c.pool, pool: c.pool} }

func (c *Client) BeginTx(ctx context.Context) (sqldb.Tx, error) {
	if c.pool == nil {
		return nil, errNotReady
	}
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("pgsql begin: %w", err)
	}
	return &txHandle{handle: handle{q: tx}, tx: tx}, nil
}
