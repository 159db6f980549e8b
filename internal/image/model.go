package image

import "time"

// Image is the stored gallery entry. AuthorID references the owner's user
// profile; every image has exactly one owner.
type Image struct {
	ID        string
	Src       string
	Name      string
	AuthorID  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Author is the owner's public profile slice embedded in API responses.
type Author struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// APIImage is the response shape for gallery listings.
type APIImage struct {
	ID     string `json:"id"`
	Src    string `json:"src"`
	Name   string `json:"name"`
	Author Author `json:"author"`
}
