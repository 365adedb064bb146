package store

import "time"

// User is someone writing bullets. Realname is empty until registered.
type User struct {
	Nick      string    `gorm:"primaryKey;type:text"`
	Realname  string    `gorm:"type:text;not null;default:''"`
	CreatedAt time.Time `gorm:"not null"`
}

// Name is the label used for the user's digest section.
func (u User) Name() string {
	if u.Realname != "" {
		return u.Realname
	}
	return u.Nick
}

// Note is a single bullet. Its position in a listing is never stored; it is
// derived from (CreatedAt, ID) among the owner's notes with SentAt unset.
type Note struct {
	ID        uint64     `gorm:"primaryKey"`
	Nick      string     `gorm:"type:text;not null;index:idx_notes_nick_unsent,priority:1"`
	Body      string     `gorm:"type:text;not null"`
	CreatedAt time.Time  `gorm:"not null;index:idx_notes_nick_unsent,priority:3"`
	SentAt    *time.Time `gorm:"index:idx_notes_nick_unsent,priority:2"`
}

// Recipient is an address on the digest distribution list.
type Recipient struct {
	Email       string    `gorm:"primaryKey;type:text"`
	IsAddressee bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time `gorm:"not null"`
}

// UserNotes is one user's unsent notes in creation order.
type UserNotes struct {
	Nick  string
	Name  string
	Notes []Note
}

// Models lists the tables owned by the store, in migration order.
func Models() []any {
	return []any{&User{}, &Note{}, &Recipient{}}
}
