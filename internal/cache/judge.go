package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// JudgeCache stores raw judge replies keyed by request hash and model.
type JudgeCache struct {
	s *Store
}

// Get returns the cached reply and whether it was found.
func (c *JudgeCache) Get(key, model string) (string, bool, error) {
	var content string
	err := c.s.db.QueryRow(
		`SELECT content FROM judge_replies WHERE request_key = ? AND model = ?`,
		key, model,
	).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get judge reply: %w", err)
	}
	c.s.touch("judge_replies", key, model)
	return content, true, nil
}

// Put stores a judge reply.
func (c *JudgeCache) Put(key, model, content string) error {
	now := time.Now().UnixNano()
	if _, err := c.s.db.Exec(
		`INSERT INTO judge_replies(request_key, model, content, created_at, accessed_at)
		 VALUES(?, ?, ?, ?, ?)
		 ON CONFLICT(request_key, model) DO UPDATE SET content=excluded.content, accessed_at=excluded.accessed_at`,
		key, model, content, now, now,
	); err != nil {
		return fmt.Errorf("put judge reply: %w", err)
	}
	return c.s.evict("judge_replies", "LENGTH(content)")
}
