package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/friendlyi/reservation-backend/internal/model"
)

// MemberRepo provides persistence for members. Pure data access; the
// administrator rule (grade == ROOSTER) and password policy live in
// the service layer.
type MemberRepo struct{ DB *sql.DB }

// NewMemberRepo returns a MemberRepo bound to the given database.
func NewMemberRepo(db *sql.DB) *MemberRepo { return &MemberRepo{DB: db} }

const memberCols = "id, login_id, password_hash, name, email, phone, birth_year, grade, profile_image, created_at, updated_at"

func scanMember(row interface{ Scan(...any) error }) (model.Member, error) {
	var (
		m     model.Member
		email sql.NullString
		phone sql.NullString
		img   sql.NullString
		grade string
	)
	err := row.Scan(&m.ID, &m.LoginID, &m.PasswordHash, &m.Name, &email, &phone,
		&m.BirthYear, &grade, &img, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return m, err
	}
	m.Grade = model.Grade(grade)
	if email.Valid {
		v := email.String
		m.Email = &v
	}
	if phone.Valid {
		v := phone.String
		m.Phone = &v
	}
	if img.Valid {
		v := img.String
		m.ProfileImage = &v
	}
	return m, nil
}

// Create inserts a member and populates the generated ID. The caller
// supplies an already-hashed password. A duplicate login id surfaces
// as ErrLoginIDExists.
func (r *MemberRepo) Create(ctx context.Context, m *model.Member) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO members (login_id, password_hash, name, email, phone, birth_year, grade) VALUES (?,?,?,?,?,?,?)",
		m.LoginID, m.PasswordHash, m.Name, m.Email, m.Phone, m.BirthYear, string(m.Grade))
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrLoginIDExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// FindByID fetches a member by id.
func (r *MemberRepo) FindByID(ctx context.Context, id uint64) (model.Member, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+memberCols+" FROM members WHERE id=? LIMIT 1", id)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return m, ErrMemberNotFound
	}
	return m, err
}

// FindByLoginID fetches a member by its case-sensitive login id. The
// BINARY cast forces a case-sensitive match on the default collation.
func (r *MemberRepo) FindByLoginID(ctx context.Context, loginID string) (model.Member, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+memberCols+" FROM members WHERE BINARY login_id=? LIMIT 1", loginID)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return m, ErrMemberNotFound
	}
	return m, err
}

// ExistsByLoginID reports whether a member with the login id exists.
func (r *MemberRepo) ExistsByLoginID(ctx context.Context, loginID string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM members WHERE BINARY login_id=?", loginID).Scan(&n)
	return n > 0, err
}

// Update overwrites the mutable member fields (name, email, phone,
// grade, profile image).
func (r *MemberRepo) Update(ctx context.Context, m *model.Member) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE members SET name=?, email=?, phone=?, grade=?, profile_image=? WHERE id=?",
		m.Name, m.Email, m.Phone, string(m.Grade), m.ProfileImage, m.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// RowsAffected is 0 both for a missing row and for a no-op
		// update; distinguish by existence.
		var c int
		if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM members WHERE id=?", m.ID).Scan(&c); err != nil {
			return err
		}
		if c == 0 {
			return ErrMemberNotFound
		}
	}
	return nil
}

// Delete removes a member. Applications cascade at the schema level
// (FK ON DELETE CASCADE).
func (r *MemberRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM members WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// FindAll returns every member ordered by id.
func (r *MemberRepo) FindAll(ctx context.Context) ([]model.Member, error) {
	return r.queryMembers(ctx, "SELECT "+memberCols+" FROM members ORDER BY id")
}

// FindPaged returns one page of members ordered by id.
func (r *MemberRepo) FindPaged(ctx context.Context, offset, limit int) ([]model.Member, error) {
	return r.queryMembers(ctx,
		"SELECT "+memberCols+" FROM members ORDER BY id LIMIT ? OFFSET ?", limit, offset)
}

// Count returns the total number of members.
func (r *MemberRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM members").Scan(&n)
	return n, err
}

// FindByGrade returns members with the given grade ordered by id.
func (r *MemberRepo) FindByGrade(ctx context.Context, grade model.Grade) ([]model.Member, error) {
	return r.queryMembers(ctx,
		"SELECT "+memberCols+" FROM members WHERE grade=? ORDER BY id", string(grade))
}

// Search performs a case-insensitive substring match over name, email
// and login id.
func (r *MemberRepo) Search(ctx context.Context, keyword string) ([]model.Member, error) {
	like := "%" + keyword + "%"
	return r.queryMembers(ctx,
		`SELECT `+memberCols+` FROM members
		 WHERE LOWER(name) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?) OR LOWER(login_id) LIKE LOWER(?)
		 ORDER BY id`, like, like, like)
}

// FindByIDs returns the members for the given id batch, keyed by id.
// Used by read projections to assemble summaries without N+1 lookups.
func (r *MemberRepo) FindByIDs(ctx context.Context, ids []uint64) (map[uint64]model.Member, error) {
	out := make(map[uint64]model.Member, len(ids))
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
		"SELECT "+memberCols+" FROM members WHERE id IN ("+strings.Join(placeholders, ",")+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out[m.ID] = m
	}
	return out, rows.Err()
}

func (r *MemberRepo) queryMembers(ctx context.Context, query string, args ...any) ([]model.Member, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
