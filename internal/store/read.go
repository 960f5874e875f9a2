package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/assetsync/internal/asset"
)

// Get returns the entity with the given type and id.
func (s *SQLite) Get(ctx context.Context, t asset.Type, id string) (*asset.Entity, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `
		SELECT body FROM entities WHERE id = ? AND type = ?
	`, id, string(t)).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s %s: %w", t, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", t, id, err)
	}
	return unmarshalEntity(body)
}

// Find returns the entity with the given (type, path, site). The implicit
// site root is reported as ErrNotFound.
func (s *SQLite) Find(ctx context.Context, ref asset.Ref) (*asset.Entity, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `
		SELECT body FROM entities WHERE type = ? AND path = ? AND site = ?
	`, string(ref.Type), asset.CleanPath(ref.Path), ref.Site).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find %s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", ref, err)
	}
	return unmarshalEntity(body)
}

// Children returns the entities directly inside containerPath, in creation
// order.
//
// Returns empty slice (not nil) if the container has no children.
func (s *SQLite) Children(ctx context.Context, containerPath, site string) ([]*asset.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT body FROM entities
		WHERE site = ? AND parent_path = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, site, asset.CleanPath(containerPath))
	if err != nil {
		return nil, fmt.Errorf("query children: %w", err)
	}
	defer rows.Close()

	children := []*asset.Entity{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		e, err := unmarshalEntity(body)
		if err != nil {
			return nil, err
		}
		children = append(children, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate children: %w", err)
	}
	return children, nil
}

// Count returns the number of stored entities.
func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entities`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entities: %w", err)
	}
	return n, nil
}
