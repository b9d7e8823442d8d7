package store

import (
	"database/sql"
	"fmt"
)

// AccountRecord is the persisted form of a registered account.
type AccountRecord struct {
	Name          string
	Password      string
	Administrator bool
	Forgiven      int
	Contacts      []string
	Messages      []MessageRecord
}

// MessageRecord is one inbox entry belonging to an account.
type MessageRecord struct {
	Source string
	Body   string
	Unread bool
}

// ChannelRecord is the persisted form of a channel, transient connection
// state excluded.
type ChannelRecord struct {
	ID         int
	Name       string
	Owner      string
	Password   string
	BufferSize int
	ReplaySize int
	State      string
	Lines      []LineRecord
}

// LineRecord is one buffered channel line.
type LineRecord struct {
	Source string
	Body   string
}

// ReplaceAccounts atomically swaps the stored account table for the given
// records. Contacts and messages are replaced along with their accounts.
func (s *Store) ReplaceAccounts(records []AccountRecord) error {
	return s.inTx(func(tx *sql.Tx) error {
		for _, table := range []string{"messages", "contacts", "accounts"} {
			if _, err := tx.Exec("DELETE FROM " + table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		for _, rec := range records {
			_, err := tx.Exec(
				`INSERT INTO accounts(name, password, administrator, forgiven)
				 VALUES(?, ?, ?, ?)`,
				rec.Name, rec.Password, rec.Administrator, rec.Forgiven,
			)
			if err != nil {
				return fmt.Errorf("insert account %q: %w", rec.Name, err)
			}
			for _, contact := range rec.Contacts {
				_, err := tx.Exec(
					`INSERT INTO contacts(account, contact) VALUES(?, ?)`,
					rec.Name, contact,
				)
				if err != nil {
					return fmt.Errorf("insert contact for %q: %w", rec.Name, err)
				}
			}
			for _, msg := range rec.Messages {
				_, err := tx.Exec(
					`INSERT INTO messages(account, source, body, unread)
					 VALUES(?, ?, ?, ?)`,
					rec.Name, msg.Source, msg.Body, msg.Unread,
				)
				if err != nil {
					return fmt.Errorf("insert message for %q: %w", rec.Name, err)
				}
			}
		}
		return nil
	})
}

// LoadAccounts reads every stored account with its contacts and inbox.
func (s *Store) LoadAccounts() ([]AccountRecord, error) {
	rows, err := s.db.Query(
		`SELECT name, password, administrator, forgiven
		 FROM accounts ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []AccountRecord
	for rows.Next() {
		var rec AccountRecord
		if err := rows.Scan(
			&rec.Name, &rec.Password, &rec.Administrator, &rec.Forgiven,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range records {
		rec := &records[i]
		if rec.Contacts, err = s.loadContacts(rec.Name); err != nil {
			return nil, err
		}
		if rec.Messages, err = s.loadMessages(rec.Name); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (s *Store) loadContacts(account string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT contact FROM contacts WHERE account = ? ORDER BY id`, account)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []string
	for rows.Next() {
		var contact string
		if err := rows.Scan(&contact); err != nil {
			return nil, err
		}
		contacts = append(contacts, contact)
	}
	return contacts, rows.Err()
}

func (s *Store) loadMessages(account string) ([]MessageRecord, error) {
	rows, err := s.db.Query(
		`SELECT source, body, unread FROM messages
		 WHERE account = ? ORDER BY id`, account)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []MessageRecord
	for rows.Next() {
		var msg MessageRecord
		if err := rows.Scan(&msg.Source, &msg.Body, &msg.Unread); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// ReplaceChannels atomically swaps the stored channel registry for the given
// records, line buffers included.
func (s *Store) ReplaceChannels(records []ChannelRecord) error {
	return s.inTx(func(tx *sql.Tx) error {
		for _, table := range []string{"channel_lines", "channels"} {
			if _, err := tx.Exec("DELETE FROM " + table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		for _, rec := range records {
			_, err := tx.Exec(
				`INSERT INTO channels(id, name, owner, password,
					buffer_size, replay_size, state)
				 VALUES(?, ?, ?, ?, ?, ?, ?)`,
				rec.ID, rec.Name, rec.Owner, rec.Password,
				rec.BufferSize, rec.ReplaySize, rec.State,
			)
			if err != nil {
				return fmt.Errorf("insert channel %q: %w", rec.Name, err)
			}
			for _, line := range rec.Lines {
				_, err := tx.Exec(
					`INSERT INTO channel_lines(channel_id, source, body)
					 VALUES(?, ?, ?)`,
					rec.ID, line.Source, line.Body,
				)
				if err != nil {
					return fmt.Errorf("insert line for %q: %w", rec.Name, err)
				}
			}
		}
		return nil
	})
}

// LoadChannels reads every stored channel with its buffered lines, ordered
// by channel id.
func (s *Store) LoadChannels() ([]ChannelRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, name, owner, password, buffer_size, replay_size, state
		 FROM channels ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ChannelRecord
	for rows.Next() {
		var rec ChannelRecord
		if err := rows.Scan(
			&rec.ID, &rec.Name, &rec.Owner, &rec.Password,
			&rec.BufferSize, &rec.ReplaySize, &rec.State,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range records {
		rec := &records[i]
		if rec.Lines, err = s.loadLines(rec.ID); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (s *Store) loadLines(channelID int) ([]LineRecord, error) {
	rows, err := s.db.Query(
		`SELECT source, body FROM channel_lines
		 WHERE channel_id = ? ORDER BY id`, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []LineRecord
	for rows.Next() {
		var line LineRecord
		if err := rows.Scan(&line.Source, &line.Body); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// inTx runs fn inside a transaction, rolling back on error.
func (s *Store) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
