package config

import (
	"crypto/tls"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisOptions parses a redis:// URL or an Azure style connection string
// ("host:port,password=...,ssl=true").
func RedisOptions(conn string) (*redis.Options, error) {
	if conn == "" {
		return nil, errors.New("empty redis connection string")
	}
	if opts, err := redis.ParseURL(conn); err == nil {
		return opts, nil
	}
	parts := strings.Split(conn, ",")
	opts := &redis.Options{Addr: strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(kv[0])) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.EqualFold(kv[1], "true") {
				opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
			}
		}
	}
	return opts, nil
}

// NewRedisClient returns a client for c.Redis.ConnectionString, or nil when
// Redis is not configured.
func (c *Config) NewRedisClient() (*redis.Client, error) {
	if c.Redis.ConnectionString == "" {
		return nil, nil
	}
	opts, err := RedisOptions(c.Redis.ConnectionString)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}
