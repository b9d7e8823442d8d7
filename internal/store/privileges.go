package store

import (
	"database/sql"
	"fmt"
)

// Privilege groups form a directed graph of named groups. The schema exists
// so deployments can model staff hierarchies ahead of time; command
// authorization still keys off the account administrator flag.

// CreatePrivilegeGroup registers a new named group and returns its id.
func (s *Store) CreatePrivilegeGroup(name string) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO privilege_groups(name) VALUES(?)`, name)
	if err != nil {
		return 0, fmt.Errorf("create group %q: %w", name, err)
	}
	return res.LastInsertId()
}

// DeletePrivilegeGroup removes a group and, through cascading deletes, every
// edge that references it.
func (s *Store) DeletePrivilegeGroup(name string) error {
	_, err := s.db.Exec(`DELETE FROM privilege_groups WHERE name = ?`, name)
	return err
}

// LinkPrivilegeGroups records that child is directly subordinate to parent.
func (s *Store) LinkPrivilegeGroups(parent, child string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO privilege_links(parent_id, child_id)
		 SELECT p.id, c.id FROM privilege_groups p, privilege_groups c
		 WHERE p.name = ? AND c.name = ?`,
		parent, child,
	)
	return err
}

// PrivilegeGroups returns all group names in creation order.
func (s *Store) PrivilegeGroups() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM privilege_groups ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// HasDescendant reports whether descendant is reachable from root by
// following parent → child edges, at any depth. A group is not its own
// descendant.
func (s *Store) HasDescendant(root, descendant string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`WITH RECURSIVE reachable(id) AS (
			SELECT l.child_id FROM privilege_links l
			JOIN privilege_groups g ON g.id = l.parent_id
			WHERE g.name = ?
			UNION
			SELECT l.child_id FROM privilege_links l
			JOIN reachable r ON r.id = l.parent_id
		)
		SELECT COUNT(*) FROM reachable
		JOIN privilege_groups g ON g.id = reachable.id
		WHERE g.name = ?`,
		root, descendant,
	).Scan(&n)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return n != 0, nil
}
