package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/friendlyi/reservation-backend/internal/model"
)

// LocationRepo provides persistence for locations. Name uniqueness is
// case-insensitive; resolve-or-create for reservation requests matches
// on the (name, address) pair.
type LocationRepo struct{ DB *sql.DB }

// NewLocationRepo returns a LocationRepo bound to the given database.
func NewLocationRepo(db *sql.DB) *LocationRepo { return &LocationRepo{DB: db} }

const locationCols = "id, name, address, description, url, is_active, created_at, updated_at"

func scanLocation(row interface{ Scan(...any) error }) (model.Location, error) {
	var (
		l    model.Location
		addr sql.NullString
		desc sql.NullString
	)
	err := row.Scan(&l.ID, &l.Name, &addr, &desc, &l.URL, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return l, err
	}
	if addr.Valid {
		v := addr.String
		l.Address = &v
	}
	if desc.Valid {
		v := desc.String
		l.Description = &v
	}
	return l, nil
}

// Create inserts a location and populates the generated ID. A name
// collision on the case-insensitive unique index surfaces as
// ErrLocationNameExists.
func (r *LocationRepo) Create(ctx context.Context, l *model.Location) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO locations (name, address, description, url, is_active) VALUES (?,?,?,?,?)",
		l.Name, l.Address, l.Description, l.URL, l.IsActive)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrLocationNameExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

// FindByID fetches a location by id.
func (r *LocationRepo) FindByID(ctx context.Context, id uint64) (model.Location, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+locationCols+" FROM locations WHERE id=? LIMIT 1", id)
	l, err := scanLocation(row)
	if err == sql.ErrNoRows {
		return l, ErrLocationNotFound
	}
	return l, err
}

// FindByNameAndAddress resolves a location by the case-insensitive
// (name, address) pair. A nil address matches rows whose address is
// NULL. Returns ErrLocationNotFound when no row matches.
func (r *LocationRepo) FindByNameAndAddress(ctx context.Context, name string, address *string) (model.Location, error) {
	var row *sql.Row
	if address == nil {
		row = r.DB.QueryRowContext(ctx,
			"SELECT "+locationCols+" FROM locations WHERE LOWER(name)=LOWER(?) AND address IS NULL LIMIT 1", name)
	} else {
		row = r.DB.QueryRowContext(ctx,
			"SELECT "+locationCols+" FROM locations WHERE LOWER(name)=LOWER(?) AND LOWER(address)=LOWER(?) LIMIT 1", name, *address)
	}
	l, err := scanLocation(row)
	if err == sql.ErrNoRows {
		return l, ErrLocationNotFound
	}
	return l, err
}

// FindAll returns every location ordered by name.
func (r *LocationRepo) FindAll(ctx context.Context) ([]model.Location, error) {
	return r.queryLocations(ctx, "SELECT "+locationCols+" FROM locations ORDER BY name")
}

// FindActive returns locations usable for new reservations.
func (r *LocationRepo) FindActive(ctx context.Context) ([]model.Location, error) {
	return r.queryLocations(ctx,
		"SELECT "+locationCols+" FROM locations WHERE is_active=TRUE ORDER BY name")
}

// SearchByName performs a case-insensitive substring match on name.
func (r *LocationRepo) SearchByName(ctx context.Context, name string) ([]model.Location, error) {
	return r.queryLocations(ctx,
		"SELECT "+locationCols+" FROM locations WHERE LOWER(name) LIKE LOWER(?) ORDER BY name",
		"%"+name+"%")
}

// FindInUse returns locations referenced by at least one
// current-or-future reservation.
func (r *LocationRepo) FindInUse(ctx context.Context) ([]model.Location, error) {
	return r.queryLocations(ctx,
		`SELECT DISTINCT l.id, l.name, l.address, l.description, l.url, l.is_active, l.created_at, l.updated_at
		 FROM locations l
		 JOIN reservations r ON r.location_id = l.id
		 WHERE r.reservation_date >= CURDATE()
		 ORDER BY l.name`)
}

// Update overwrites the mutable location fields.
func (r *LocationRepo) Update(ctx context.Context, l *model.Location) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE locations SET name=?, address=?, description=?, url=? WHERE id=?",
		l.Name, l.Address, l.Description, l.URL, l.ID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrLocationNameExists
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var c int
		if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM locations WHERE id=?", l.ID).Scan(&c); err != nil {
			return err
		}
		if c == 0 {
			return ErrLocationNotFound
		}
	}
	return nil
}

// SetActive flips the is_active flag. Deactivation is rejected with
// ErrLocationInUse while any current-or-future reservation points at
// the location.
func (r *LocationRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	if !active {
		var n int
		err := r.DB.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM reservations WHERE location_id=? AND reservation_date >= CURDATE()",
			id).Scan(&n)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrLocationInUse
		}
	}
	res, err := r.DB.ExecContext(ctx, "UPDATE locations SET is_active=? WHERE id=?", active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var c int
		if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM locations WHERE id=?", id).Scan(&c); err != nil {
			return err
		}
		if c == 0 {
			return ErrLocationNotFound
		}
	}
	return nil
}

// FindByIDs returns the locations for the given id batch, keyed by id.
func (r *LocationRepo) FindByIDs(ctx context.Context, ids []uint64) (map[uint64]model.Location, error) {
	out := make(map[uint64]model.Location, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+locationCols+" FROM locations WHERE id IN ("+strings.Join(placeholders, ",")+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out[l.ID] = l
	}
	return out, rows.Err()
}

func (r *LocationRepo) queryLocations(ctx context.Context, query string, args ...any) ([]model.Location, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Location, 0)
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
