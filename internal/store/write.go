package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/assetsync/internal/asset"
)

// Create inserts a new entity and returns it with its assigned id.
//
// The parent container must exist unless the entity sits directly under
// the site root. A taken (type, path, site) triple yields ErrConflict.
func (s *SQLite) Create(ctx context.Context, e *asset.Entity) (*asset.Entity, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("create entity: %w: %w", ErrInvalid, err)
	}

	c := e.Clone()
	c.ID = s.ids.NewID()
	c.Path = asset.CleanPath(c.Path)
	ref := c.Ref()

	body, err := marshalEntity(c)
	if err != nil {
		return nil, fmt.Errorf("create entity: %w", err)
	}
	fp, err := asset.ContentFingerprint(c)
	if err != nil {
		return nil, fmt.Errorf("create entity: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create entity: begin: %w", err)
	}
	defer tx.Rollback()

	parent := ref.ParentPath()
	if parent != "/" {
		var exists int
		err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM entities
			WHERE type = ? AND path = ? AND site = ?
		`, string(asset.TypeContainer), parent, ref.Site).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("create entity: check parent: %w", err)
		}
		if exists == 0 {
			return nil, fmt.Errorf("create %s: %w", ref, ErrParentNotFound)
		}
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM entities`).Scan(&seq); err != nil {
		return nil, fmt.Errorf("create entity: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entities
		(id, seq, type, path, site, parent_path, body, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID,
		seq,
		string(ref.Type),
		ref.Path,
		ref.Site,
		parent,
		body,
		fp,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, fmt.Errorf("create %s: %w", ref, ErrConflict)
		}
		return nil, fmt.Errorf("create entity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create entity: commit: %w", err)
	}

	s.logger.Debug("entity created",
		"type", ref.Type,
		"path", ref.Path,
		"site", ref.Site,
		"id", c.ID,
	)
	return unmarshalEntity(body)
}

// Update replaces the content of an existing entity. The id must exist and
// its (type, path, site) must match; entities are never moved by Update.
func (s *SQLite) Update(ctx context.Context, e *asset.Entity) (*asset.Entity, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("update entity: %w: %w", ErrInvalid, err)
	}
	if e.ID == "" {
		return nil, fmt.Errorf("update %s: missing id: %w", e.Ref(), ErrInvalid)
	}

	c := e.Clone()
	c.Path = asset.CleanPath(c.Path)
	ref := c.Ref()

	body, err := marshalEntity(c)
	if err != nil {
		return nil, fmt.Errorf("update entity: %w", err)
	}
	fp, err := asset.ContentFingerprint(c)
	if err != nil {
		return nil, fmt.Errorf("update entity: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("update entity: begin: %w", err)
	}
	defer tx.Rollback()

	var typ, path, site string
	err = tx.QueryRowContext(ctx, `
		SELECT type, path, site FROM entities WHERE id = ?
	`, c.ID).Scan(&typ, &path, &site)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update %s (%s): %w", ref, c.ID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update entity: %w", err)
	}
	if asset.NewRef(asset.Type(typ), path, site) != ref {
		return nil, fmt.Errorf("update %s: id %s belongs to %s://%s%s: %w", ref, c.ID, typ, site, path, ErrConflict)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE entities SET body = ?, fingerprint = ? WHERE id = ?
	`, body, fp, c.ID); err != nil {
		return nil, fmt.Errorf("update entity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update entity: commit: %w", err)
	}

	s.logger.Debug("entity updated",
		"type", ref.Type,
		"path", ref.Path,
		"site", ref.Site,
		"id", c.ID,
	)
	return unmarshalEntity(body)
}
