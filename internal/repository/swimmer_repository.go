package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/aquadapt/swimbook/internal/model"
)

// SwimmerRepo provides data access to the swimmers table.
type SwimmerRepo struct {
    db *sql.DB
}

// NewSwimmerRepo returns a new SwimmerRepo bound to the provided database.
func NewSwimmerRepo(db *sql.DB) *SwimmerRepo { return &SwimmerRepo{db: db} }

const swimmerColumns = `id, parent_id, first_name, last_name, birth_date, notes, created_at, updated_at`

func scanSwimmer(row interface {
    Scan(dest ...interface{}) error
}) (*model.Swimmer, error) {
    var s model.Swimmer
    err := row.Scan(&s.ID, &s.ParentID, &s.FirstName, &s.LastName,
        &s.BirthDate, &s.Notes, &s.CreatedAt, &s.UpdatedAt)
    if err != nil {
        return nil, err
    }
    return &s, nil
}

// Create inserts a swimmer under the given parent and populates the ID.
func (r *SwimmerRepo) Create(ctx context.Context, s *model.Swimmer) error {
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO swimmers (parent_id, first_name, last_name, birth_date, notes) VALUES (?,?,?,?,?)`,
        s.ParentID, s.FirstName, s.LastName, s.BirthDate.UTC(), s.Notes)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    s.ID = uint64(id)
    return nil
}

// GetByID fetches one swimmer.  It returns ErrSwimmerNotFound when the id
// does not exist.
func (r *SwimmerRepo) GetByID(ctx context.Context, id uint64) (*model.Swimmer, error) {
    row := r.db.QueryRowContext(ctx, `SELECT `+swimmerColumns+` FROM swimmers WHERE id = ?`, id)
    s, err := scanSwimmer(row)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrSwimmerNotFound
    }
    return s, err
}

// ListAll returns every swimmer, for staff views.
func (r *SwimmerRepo) ListAll(ctx context.Context) ([]model.Swimmer, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+swimmerColumns+` FROM swimmers ORDER BY id ASC`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Swimmer, 0)
    for rows.Next() {
        s, err := scanSwimmer(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *s)
    }
    return out, rows.Err()
}

// ListByParent returns the swimmers owned by a parent, oldest first.
func (r *SwimmerRepo) ListByParent(ctx context.Context, parentID uint64) ([]model.Swimmer, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+swimmerColumns+` FROM swimmers WHERE parent_id = ? ORDER BY id ASC`, parentID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Swimmer, 0)
    for rows.Next() {
        s, err := scanSwimmer(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *s)
    }
    return out, rows.Err()
}
