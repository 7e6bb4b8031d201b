package backend

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"pkt.systems/pslog"

	"github.com/kvterm/kvterm/schema"
)

// Config describes the key-value backend connection.
type Config struct {
	Addr     string
	Username string
	Password string
	DB       int
	TLS      bool
	Logger   pslog.Logger
}

// Client executes console command lines against a Redis-compatible backend.
// It implements console.Executor.
type Client struct {
	rdb *redis.Client
	log pslog.Logger
}

// blockedCommands are refused client-side: transactions need a dedicated
// flow and subscriptions would park the shared connection.
var blockedCommands = map[string]struct{}{
	"MULTI":        {},
	"EXEC":         {},
	"DISCARD":      {},
	"SUBSCRIBE":    {},
	"UNSUBSCRIBE":  {},
	"PSUBSCRIBE":   {},
	"PUNSUBSCRIBE": {},
}

// New connects to the backend described by cfg. The connection is verified
// with a ping so a bad address fails at startup, not at first keystroke.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("backend address is required")
	}
	log := cfg.Logger
	if log == nil {
		log = pslog.Ctx(ctx)
	}
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping backend %s: %w", cfg.Addr, err)
	}
	log.Info("backend connected", "addr", cfg.Addr, "db", cfg.DB, "tls", cfg.TLS)
	return &Client{rdb: rdb, log: log.With("backend", cfg.Addr)}, nil
}

// Execute tokenizes the line, refuses blocked commands, and runs the command
// against the backend, shaping the reply into a tabular result.
func (c *Client) Execute(ctx context.Context, command string) (schema.Result, error) {
	args, err := Split(command)
	if err != nil {
		return schema.Result{}, err
	}
	if len(args) == 0 {
		return schema.Result{}, errors.New("empty command")
	}
	name := strings.ToUpper(args[0])
	if _, blocked := blockedCommands[name]; blocked {
		return schema.Result{}, fmt.Errorf("%s: %w", name, schema.ErrCommandBlocked)
	}

	doArgs := make([]any, len(args))
	for i, a := range args {
		doArgs[i] = a
	}
	reply, err := c.rdb.Do(ctx, doArgs...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return shapeReply(nil), nil
		}
		c.log.Warn("backend command failed", "command", name, "err", err)
		return schema.Result{}, err
	}
	c.log.Debug("backend command ok", "command", name)
	return shapeReply(normalizeReply(reply)), nil
}

// Close releases the backend connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}
