package sqldb

import "time"

type Conf struct {
	Type     string        `json:"type"` // mysql, pgsql, sqlite
	Host     string        `json:"host"`
	Port     int           `json:"port"`
	User     string        `json:"user"`
	PW       string        `json:"pw"`
	DB       string        `json:"db"`  // name, or the file path for sqlite
	TZ       string        `json:"tz"`  // session time zone
	DSN      string        `json:"dsn"` // replaces the built DSN when set
	Pool     int           `json:"pool"`
	Lifetime time.Duration `json:"conn_lifetime,format:units"`
}

func (c *Conf) PoolSize() int {
	if c.Pool > 0 {
		return c.Pool
	}
	return 10
}

func (c *Conf) ConnLifetime() time.Duration {
	if c.Lifetime > 0 {
		return c.Lifetime
	}
	return 3 * time.Minute
}

func (c *Conf) Zone() string {
	if c.TZ == "" {
		return "UTC"
	}
	return c.TZ
}
