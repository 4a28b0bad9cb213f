// Package corpus holds the token dictionary, items, pools, and clues that
// the classifier pipeline trains and scores against.
package corpus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Dictionary is the persisted, monotonically growing bijection between
// tokens and their ids. Ids are never reused once assigned, so every
// component that has ever seen a token id may keep using it forever.
//
// Lookups are fronted by a bounded LRU; the LRU is a read-through cache
// over the durable table, never the source of truth.
type Dictionary struct {
	db *sql.DB

	mu        sync.Mutex
	byToken   *lru.Cache[string, int64]
	byID      *lru.Cache[int64, string]
}

// NewDictionary builds a Dictionary backed by db, with an LRU of the given size.
func NewDictionary(db *sql.DB, cacheSize int) (*Dictionary, error) {
	byToken, err := lru.New[string, int64](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create token lru: %w", err)
	}
	byID, err := lru.New[int64, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create id lru: %w", err)
	}
	return &Dictionary{db: db, byToken: byToken, byID: byID}, nil
}

// Atomize returns the id for token, allocating one if it has never been
// seen before. Concurrent callers racing on a new token converge on a
// single id via the unique constraint on tokens.token.
func (d *Dictionary) Atomize(ctx context.Context, token string) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if id, ok := d.byToken.Get(token); ok {
		return id, nil
	}

	var id int64
	err := d.db.QueryRowContext(ctx, `SELECT id FROM tokens WHERE token = $1`, token).Scan(&id)
	if err == nil {
		d.cache(token, id)
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("lookup token: %w", err)
	}

	err = d.db.QueryRowContext(ctx,
		`INSERT INTO tokens (id, token) VALUES (nextval('tokens_id_seq'), $1)
		 ON CONFLICT (token) DO UPDATE SET token = EXCLUDED.token
		 RETURNING id`, token).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert token: %w", err)
	}

	d.cache(token, id)
	return id, nil
}

// Globalize returns the token text for an id previously returned by Atomize.
func (d *Dictionary) Globalize(ctx context.Context, id int64) (string, error) {
	d.mu.Lock()
	if token, ok := d.byID.Get(id); ok {
		d.mu.Unlock()
		return token, nil
	}
	d.mu.Unlock()

	var token string
	err := d.db.QueryRowContext(ctx, `SELECT token FROM tokens WHERE id = $1`, id).Scan(&token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("unknown token id %d", id)
		}
		return "", fmt.Errorf("lookup token id: %w", err)
	}

	d.mu.Lock()
	d.cache(token, id)
	d.mu.Unlock()
	return token, nil
}

// cache must be called with mu held.
func (d *Dictionary) cache(token string, id int64) {
	d.byToken.Add(token, id)
	d.byID.Add(id, token)
}
