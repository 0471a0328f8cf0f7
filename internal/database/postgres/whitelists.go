package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kozaktomas/face-whitelist/internal/database"
	"github.com/kozaktomas/face-whitelist/internal/whitelist"
)

// WhitelistRepository provides PostgreSQL-backed whitelist snapshot storage
type WhitelistRepository struct {
	pool *Pool
}

// NewWhitelistRepository creates a new PostgreSQL whitelist repository
func NewWhitelistRepository(pool *Pool) *WhitelistRepository {
	return &WhitelistRepository{pool: pool}
}

// SaveWhitelist replaces all rows of a whitelist in one transaction
func (r *WhitelistRepository) SaveWhitelist(ctx context.Context, snap *whitelist.Snapshot) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM whitelists WHERE id = $1`, snap.WhitelistID); err != nil {
		return fmt.Errorf("clear whitelist: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO whitelists (id, updated_at) VALUES ($1, NOW())`, snap.WhitelistID); err != nil {
		return fmt.Errorf("insert whitelist: %w", err)
	}

	personStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO whitelist_persons (whitelist_id, person_id, name, source_folder, position)
		VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return fmt.Errorf("prepare person insert: %w", err)
	}
	defer personStmt.Close()

	faceStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO whitelist_faces (whitelist_id, face_id, person_id, image_path, position)
		VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return fmt.Errorf("prepare face insert: %w", err)
	}
	defer faceStmt.Close()

	for i, p := range snap.Persons {
		if _, err := personStmt.ExecContext(ctx, snap.WhitelistID, p.ID, p.Name, p.SourceFolder, i); err != nil {
			return fmt.Errorf("insert person %s: %w", p.Name, err)
		}
		for j, f := range p.Faces {
			if _, err := faceStmt.ExecContext(ctx, snap.WhitelistID, f.ID, p.ID, f.ImagePath, j); err != nil {
				return fmt.Errorf("insert face %s: %w", f.ImagePath, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit whitelist: %w", err)
	}
	return nil
}

// LoadWhitelist reads a whitelist snapshot, returns database.ErrNotFound if it does not exist
func (r *WhitelistRepository) LoadWhitelist(ctx context.Context, whitelistID string) (*whitelist.Snapshot, error) {
	var id string
	err := r.pool.QueryRow(ctx, `SELECT id FROM whitelists WHERE id = $1`, whitelistID).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get whitelist: %w", err)
	}

	snap := &whitelist.Snapshot{WhitelistID: id}
	byPerson, err := r.loadPersons(ctx, snap)
	if err != nil {
		return nil, err
	}
	if err := r.loadFaces(ctx, snap, byPerson); err != nil {
		return nil, err
	}
	return snap, nil
}

func (r *WhitelistRepository) loadPersons(ctx context.Context, snap *whitelist.Snapshot) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT person_id, name, source_folder
		FROM whitelist_persons
		WHERE whitelist_id = $1
		ORDER BY position
	`, snap.WhitelistID)
	if err != nil {
		return nil, fmt.Errorf("query persons: %w", err)
	}
	defer rows.Close()

	byPerson := make(map[string]int)
	for rows.Next() {
		var p whitelist.PersonSnapshot
		if err := rows.Scan(&p.ID, &p.Name, &p.SourceFolder); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		p.Faces = []whitelist.Face{}
		byPerson[p.ID] = len(snap.Persons)
		snap.Persons = append(snap.Persons, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate persons: %w", err)
	}
	return byPerson, nil
}

func (r *WhitelistRepository) loadFaces(ctx context.Context, snap *whitelist.Snapshot, byPerson map[string]int) error {
	rows, err := r.pool.Query(ctx, `
		SELECT face_id, person_id, image_path
		FROM whitelist_faces
		WHERE whitelist_id = $1
		ORDER BY person_id, position
	`, snap.WhitelistID)
	if err != nil {
		return fmt.Errorf("query faces: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f whitelist.Face
		if err := rows.Scan(&f.ID, &f.PersonID, &f.ImagePath); err != nil {
			return fmt.Errorf("scan face: %w", err)
		}
		i, ok := byPerson[f.PersonID]
		if !ok {
			continue
		}
		snap.Persons[i].Faces = append(snap.Persons[i].Faces, f)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate faces: %w", err)
	}
	return nil
}

// DeleteWhitelist removes a whitelist with all persons and faces
func (r *WhitelistRepository) DeleteWhitelist(ctx context.Context, whitelistID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM whitelists WHERE id = $1`, whitelistID); err != nil {
		return fmt.Errorf("delete whitelist: %w", err)
	}
	return nil
}
