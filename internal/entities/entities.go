package entities

import "time"

// Collection is a named folder in the library forest. A nil ParentID marks a
// root. The parent graph stays acyclic by construction: a parent must already
// exist when a child is created and collections are never reparented.
type Collection struct {
	ID              string  `gorm:"primaryKey;size:36" json:"id"`
	Name            string  `gorm:"index;size:256" json:"name"`
	ParentID        *string `gorm:"index;size:36" json:"parent_id,omitempty"`
	ThumbnailBlobID *uint   `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasThumbnail is included in JSON so clients know whether to request one.
func (c Collection) HasThumbnail() bool {
	return c.ThumbnailBlobID != nil
}

// Book is an ingested publication. It belongs to exactly one collection and
// owns its pages; both are created in a single ingestion and never mutated.
type Book struct {
	ID           string `gorm:"primaryKey;size:36" json:"id"`
	Title        string `gorm:"index;size:512" json:"title"`
	CollectionID string `gorm:"index;size:36" json:"collection_id"`
	CoverBlobID  *uint  `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Page is one rendered image of a book. PageNumber is zero-based and dense
// within a book, fixed at ingestion time.
type Page struct {
	ID         string `gorm:"primaryKey;size:36" json:"id"`
	BookID     string `gorm:"index;size:36" json:"-"`
	PageNumber int    `gorm:"index" json:"page_number"`
	BlobID     uint   `json:"-"`
	FileName   string `gorm:"size:1024" json:"file_name"`

	CreatedAt time.Time `json:"created_at"`
}

// Blob is an opaque binary payload. Blobs are only ever created and deleted;
// the store does no reference counting, so whoever drops the last reference
// must delete the blob with it.
type Blob struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Mime    string `gorm:"size:128" json:"mime"`
	Content []byte `gorm:"type:blob" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}
