package entity

import "time"

// The records below reference a user by foreign key. They are kept minimal;
// the user side only reads them.

type Post struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Body        string     `json:"body"`
	UserID      *int64     `json:"user_id"`
	PublishedAt *time.Time `json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Comment struct {
	ID              int64     `json:"id"`
	Body            string    `json:"body"`
	UserID          *int64    `json:"user_id"`
	CommentableType string    `json:"commentable_type"`
	CommentableID   *int64    `json:"commentable_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Fish struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	UserID    *int64    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Person struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	UserID    *int64    `json:"user_id"`
	PersonID  *int64    `json:"person_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Spouse is a Person row with type "Spouse".
type Spouse = Person

type Project struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Stage     string    `json:"stage"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Attachment links one stored blob to a record under a name such as "cv".
type Attachment struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	RecordType  string    `json:"record_type"`
	RecordID    int64     `json:"record_id"`
	Key         string    `json:"key"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	ByteSize    int64     `json:"byte_size"`
	Checksum    string    `json:"checksum"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
}

const (
	RecordTypeUser = "User"
	AttachmentCV   = "cv"
)
