// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

// Graduate is one stored graduate profile.
//
// The JSON tags use snake_case because that is the shape the frontend has always
// received from /allGraduates (the db_data half of each entry).
//
// ID is assigned by the store on insert and never changes afterwards.
// Name is unique across all rows; the store enforces it with a UNIQUE constraint.
type Graduate struct {
	ID        int64  `json:"id"         db:"id"`
	Name      string `json:"name"       db:"name"`
	GitHubURL string `json:"github_url" db:"github_url"` // e.g. "https://github.com/octocat"
	Role      string `json:"role"       db:"role"`
	CVLink    string `json:"cv_link"    db:"cv_link"`
}
