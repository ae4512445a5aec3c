package kvdb

import "time"

type Conf struct {
	Type    string        `json:"type"` // redis, memory
	Host    string        `json:"host"`
	Port    int           `json:"port"`
	PW      string        `json:"pw"`
	DB      int           `json:"db"`
	Timeout time.Duration `json:"timeout,format:units"` // dial and ping, 0 -> 5s
}

func (c *Conf) PingTimeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return 5 * time.Second
}
