// Package store is the durable record store for users, notes and digest
// recipients.
//
// Every method runs as its own unit of work unless it is called on the
// Store handed to a Transaction callback. Returned values are plain copies;
// nothing returned is bound to an open transaction.
package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// Transaction runs fn against a Store bound to a single database
// transaction. Any error returned by fn rolls back everything fn wrote.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{DB: tx})
	})
}

// UpsertUser creates the user if missing. An existing row is left as is.
func (s *Store) UpsertUser(ctx context.Context, nick string) error {
	u := User{Nick: nick}
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "nick"}}, DoNothing: true}).
		Create(&u).Error
	if err != nil {
		return fmt.Errorf("upsert user %q: %w", nick, err)
	}
	return nil
}

// SetRealname creates or updates the user with the given display name.
// An empty realname never overwrites a stored one.
func (s *Store) SetRealname(ctx context.Context, nick, realname string) error {
	if realname == "" {
		return s.UpsertUser(ctx, nick)
	}
	u := User{Nick: nick, Realname: realname}
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "nick"}},
			DoUpdates: clause.AssignmentColumns([]string{"realname"}),
		}).
		Create(&u).Error
	if err != nil {
		return fmt.Errorf("set realname for %q: %w", nick, err)
	}
	return nil
}

// User returns the user row for nick, or gorm.ErrRecordNotFound.
func (s *Store) User(ctx context.Context, nick string) (User, error) {
	var u User
	if err := s.DB.WithContext(ctx).Where("nick = ?", nick).First(&u).Error; err != nil {
		return User{}, err
	}
	return u, nil
}

// CreateNote upserts the owner and inserts a new unsent note. The store
// assigns the note ID.
func (s *Store) CreateNote(ctx context.Context, nick, body string) (Note, error) {
	n := Note{Nick: nick, Body: body}
	err := s.Transaction(ctx, func(tx *Store) error {
		if err := tx.UpsertUser(ctx, nick); err != nil {
			return err
		}
		return tx.DB.WithContext(ctx).Create(&n).Error
	})
	if err != nil {
		return Note{}, fmt.Errorf("create note for %q: %w", nick, err)
	}
	return n, nil
}

// UnsentFor returns nick's unsent notes in creation order. The slice index
// of each note is its display position.
func (s *Store) UnsentFor(ctx context.Context, nick string) ([]Note, error) {
	var notes []Note
	err := s.DB.WithContext(ctx).
		Where("nick = ? AND sent_at IS NULL", nick).
		Order("created_at asc, id asc").
		Find(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("select unsent notes for %q: %w", nick, err)
	}
	return notes, nil
}

// UnsentForUpdate is UnsentFor with the selected rows locked until the
// surrounding transaction ends. Call it on a Store from Transaction.
func (s *Store) UnsentForUpdate(ctx context.Context, nick string) ([]Note, error) {
	var notes []Note
	err := s.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("nick = ? AND sent_at IS NULL", nick).
		Order("created_at asc, id asc").
		Find(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("lock unsent notes for %q: %w", nick, err)
	}
	return notes, nil
}

// AllUnsent returns every user with at least one unsent note, sorted by
// display name and then nick, each with their notes in creation order.
func (s *Store) AllUnsent(ctx context.Context) ([]UserNotes, error) {
	var (
		notes []Note
		users []User
	)
	err := s.Transaction(ctx, func(tx *Store) error {
		if err := tx.DB.WithContext(ctx).
			Where("sent_at IS NULL").
			Order("created_at asc, id asc").
			Find(&notes).Error; err != nil {
			return err
		}
		if len(notes) == 0 {
			return nil
		}

		nicks := make([]string, 0)
		seen := map[string]struct{}{}
		for _, n := range notes {
			if _, ok := seen[n.Nick]; ok {
				continue
			}
			seen[n.Nick] = struct{}{}
			nicks = append(nicks, n.Nick)
		}
		return tx.DB.WithContext(ctx).Where("nick IN ?", nicks).Find(&users).Error
	})
	if err != nil {
		return nil, fmt.Errorf("select unsent notes: %w", err)
	}

	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.Nick] = u.Name()
	}

	byNick := map[string]*UserNotes{}
	out := make([]*UserNotes, 0)
	for _, n := range notes {
		un, ok := byNick[n.Nick]
		if !ok {
			name := names[n.Nick]
			if name == "" {
				name = n.Nick
			}
			un = &UserNotes{Nick: n.Nick, Name: name}
			byNick[n.Nick] = un
			out = append(out, un)
		}
		un.Notes = append(un.Notes, n)
	}

	slices.SortFunc(out, func(a, b *UserNotes) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.Nick, b.Nick)
	})

	result := make([]UserNotes, 0, len(out))
	for _, un := range out {
		result = append(result, *un)
	}
	return result, nil
}

// DeleteByIDs hard-deletes the notes with the given IDs and reports how many
// rows were actually removed.
func (s *Store) DeleteByIDs(ctx context.Context, ids []uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.DB.WithContext(ctx).Where("id IN ?", ids).Delete(&Note{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete notes %v: %w", ids, res.Error)
	}
	return res.RowsAffected, nil
}

// MarkAllSent stamps every unsent note with the same instant in one
// statement and returns the number of notes stamped.
func (s *Store) MarkAllSent(ctx context.Context, now time.Time) (int64, error) {
	res := s.DB.WithContext(ctx).
		Model(&Note{}).
		Where("sent_at IS NULL").
		Update("sent_at", now)
	if res.Error != nil {
		return 0, fmt.Errorf("mark notes sent: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// MarkSent stamps the listed notes with now in one statement. Notes already
// sent keep their original stamp.
func (s *Store) MarkSent(ctx context.Context, ids []uint64, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.DB.WithContext(ctx).
		Model(&Note{}).
		Where("id IN ? AND sent_at IS NULL", ids).
		Update("sent_at", now)
	if res.Error != nil {
		return 0, fmt.Errorf("mark %d notes sent: %w", len(ids), res.Error)
	}
	return res.RowsAffected, nil
}

// UpsertRecipient adds an address. addressee only ever raises the primary
// flag; re-adding an address without it keeps the stored flag.
func (s *Store) UpsertRecipient(ctx context.Context, email string, addressee bool) error {
	r := Recipient{Email: email, IsAddressee: addressee}
	oc := clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}
	if addressee {
		oc = clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_addressee"}),
		}
	}
	if err := s.DB.WithContext(ctx).Clauses(oc).Create(&r).Error; err != nil {
		return fmt.Errorf("upsert recipient %q: %w", email, err)
	}
	return nil
}

// DeleteRecipient removes an address. Removing an unknown address is not an
// error; the returned count is 0.
func (s *Store) DeleteRecipient(ctx context.Context, email string) (int64, error) {
	res := s.DB.WithContext(ctx).Where("email = ?", email).Delete(&Recipient{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete recipient %q: %w", email, res.Error)
	}
	return res.RowsAffected, nil
}

// Recipients lists the distribution list, primary addressees first.
func (s *Store) Recipients(ctx context.Context) ([]Recipient, error) {
	var rs []Recipient
	err := s.DB.WithContext(ctx).
		Order("is_addressee desc, email asc").
		Find(&rs).Error
	if err != nil {
		return nil, fmt.Errorf("select recipients: %w", err)
	}
	return rs, nil
}
