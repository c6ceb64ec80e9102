package store

import (
	"database/sql"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// User is an account row without its password hash.
type User struct {
	Username        string `json:"username"`
	Name            string `json:"name"`
	Department      string `json:"department"`
	PersonnelNumber string `json:"personnel_number"`
	IsAdmin         bool   `json:"is_admin"`
}

// UserUpdate carries the fields of an account to change; nil fields are
// left as they are.
type UserUpdate struct {
	Name            *string `json:"name"`
	Department      *string `json:"department"`
	PersonnelNumber *string `json:"personnel_number"`
	IsAdmin         *bool   `json:"is_admin"`
}

// RegisterUser creates an account with a bcrypt-hashed password. A
// duplicate username returns ErrUserExists.
func (s *Store) RegisterUser(u User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.write(func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO users
			(username, password_hash, name, department, personnel_number, is_admin)
			VALUES (?, ?, ?, ?, ?, ?)`,
			normalizeUsername(u.Username), string(hash), u.Name, u.Department,
			u.PersonnelNumber, boolInt(u.IsAdmin))
		if isConstraint(err) {
			return ErrUserExists
		}
		return err
	})
}

// VerifyUser checks a username/password pair. Unknown usernames and
// wrong passwords both report false without error.
func (s *Store) VerifyUser(username, password string) (bool, error) {
	var hash string
	found := false
	err := s.read(func(db *sql.DB) error {
		err := db.QueryRow("SELECT password_hash FROM users WHERE username = ?",
			normalizeUsername(username)).Scan(&hash)
		if err == sql.ErrNoRows {
			found = false
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil || !found {
		return false, err
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil, nil
}

// GetUser fetches an account; the second return is false when the
// username is unknown.
func (s *Store) GetUser(username string) (User, bool, error) {
	var u User
	found := false
	err := s.read(func(db *sql.DB) error {
		var name, dept, personnel sql.NullString
		var isAdmin sql.NullInt64
		err := db.QueryRow(`SELECT username, name, department, personnel_number, is_admin
			FROM users WHERE username = ?`, normalizeUsername(username)).
			Scan(&u.Username, &name, &dept, &personnel, &isAdmin)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}
		u.Name, u.Department, u.PersonnelNumber = name.String, dept.String, personnel.String
		u.IsAdmin = isAdmin.Int64 != 0
		found = true
		return nil
	})
	return u, found, err
}

// SearchUsers filters accounts; every non-blank criterion narrows the
// result with a substring match.
func (s *Store) SearchUsers(username, name, personnelNumber, department string) ([]User, error) {
	conds := []string{"1=1"}
	var args []any
	if v := strings.TrimSpace(username); v != "" {
		conds = append(conds, "username LIKE ?")
		args = append(args, "%"+strings.ToLower(v)+"%")
	}
	if v := strings.TrimSpace(name); v != "" {
		conds = append(conds, "name LIKE ?")
		args = append(args, "%"+v+"%")
	}
	if v := strings.TrimSpace(personnelNumber); v != "" {
		conds = append(conds, "personnel_number LIKE ?")
		args = append(args, "%"+v+"%")
	}
	if v := strings.TrimSpace(department); v != "" {
		conds = append(conds, "department LIKE ?")
		args = append(args, "%"+v+"%")
	}

	var out []User
	err := s.read(func(db *sql.DB) error {
		out = out[:0]
		rows, err := db.Query(`SELECT username, name, department, personnel_number, is_admin
			FROM users WHERE `+strings.Join(conds, " AND ")+` ORDER BY username`, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var u User
			var name, dept, personnel sql.NullString
			var isAdmin sql.NullInt64
			if err := rows.Scan(&u.Username, &name, &dept, &personnel, &isAdmin); err != nil {
				return err
			}
			u.Name, u.Department, u.PersonnelNumber = name.String, dept.String, personnel.String
			u.IsAdmin = isAdmin.Int64 != 0
			out = append(out, u)
		}
		return rows.Err()
	})
	return out, err
}

// UpdateUser applies the non-nil fields of upd to an account.
func (s *Store) UpdateUser(username string, upd UserUpdate) error {
	var sets []string
	var args []any
	if upd.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *upd.Name)
	}
	if upd.Department != nil {
		sets = append(sets, "department = ?")
		args = append(args, *upd.Department)
	}
	if upd.PersonnelNumber != nil {
		sets = append(sets, "personnel_number = ?")
		args = append(args, *upd.PersonnelNumber)
	}
	if upd.IsAdmin != nil {
		sets = append(sets, "is_admin = ?")
		args = append(args, boolInt(*upd.IsAdmin))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, normalizeUsername(username))
	return s.write(func(tx *sql.Tx) error {
		_, err := tx.Exec("UPDATE users SET "+strings.Join(sets, ", ")+
			" WHERE username = ?", args...)
		return err
	})
}

// ChangePassword replaces an account's password hash.
func (s *Store) ChangePassword(username, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.write(func(tx *sql.Tx) error {
		_, err := tx.Exec("UPDATE users SET password_hash = ? WHERE username = ?",
			string(hash), normalizeUsername(username))
		return err
	})
}

// DeleteUser removes an account; reports false when it did not exist.
func (s *Store) DeleteUser(username string) (bool, error) {
	var deleted bool
	err := s.write(func(tx *sql.Tx) error {
		res, err := tx.Exec("DELETE FROM users WHERE username = ?",
			normalizeUsername(username))
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		deleted = n > 0
		return err
	})
	return deleted, err
}

// SavedFilter returns the account's stored filter JSON, empty when none
// is saved.
func (s *Store) SavedFilter(username string) (string, error) {
	var data sql.NullString
	err := s.read(func(db *sql.DB) error {
		err := db.QueryRow("SELECT user_filter FROM users WHERE username = ?",
			normalizeUsername(username)).Scan(&data)
		if err == sql.ErrNoRows {
			return nil
		}
		return err
	})
	return data.String, err
}

// SaveFilter stores the account's filter JSON; pass empty to clear it.
func (s *Store) SaveFilter(username, filterJSON string) error {
	return s.write(func(tx *sql.Tx) error {
		_, err := tx.Exec("UPDATE users SET user_filter = ? WHERE username = ?",
			filterJSON, normalizeUsername(username))
		return err
	})
}

func normalizeUsername(u string) string {
	return strings.ToLower(strings.TrimSpace(u))
}
