// Package models contains the domain models and application errors.
package models

import "time"

// Post is a blog entry. It always has an author and may belong to a group.
type Post struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Text     string `gorm:"type:text;not null" json:"text"`
	Image    string `gorm:"size:255" json:"image,omitempty"`
	AuthorID uint   `gorm:"not null;index" json:"author_id"`
	Author   User   `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	GroupID  *uint  `gorm:"index" json:"group_id,omitempty"`
	Group    *Group `gorm:"foreignKey:GroupID;constraint:OnDelete:SET NULL" json:"group,omitempty"`
	// ImageURL is resolved through the media backend, never persisted.
	ImageURL  string    `gorm:"-" json:"image_url,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PostOrder is the default feed ordering, newest first.
const PostOrder = "posts.created_at DESC, posts.id DESC"
