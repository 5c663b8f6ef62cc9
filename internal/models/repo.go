package models

import "time"

// Provenance records where a repo's labels came from during the current cycle.
type Provenance string

const (
	ProvenanceNone       Provenance = "none"
	ProvenanceCarried    Provenance = "carried"
	ProvenanceClassified Provenance = "classified"
	ProvenanceDefault    Provenance = "default"
)

// Repo is a starred repository, rebuilt from the upstream fetch every cycle.
type Repo struct {
	ID          string     `json:"id"`
	Owner       string     `json:"owner"`
	Name        string     `json:"name"`
	FullName    string     `json:"fullName"`
	URL         string     `json:"url"`
	Description string     `json:"description"`
	Language    string     `json:"language"`
	Topics      []string   `json:"topics"`
	Archived    bool       `json:"archived"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	PushedAt    *time.Time `json:"pushedAt,omitempty"`
	Stars       int        `json:"stars"`
	License     string     `json:"license"`
	Homepage    string     `json:"homepage"`

	Tags          []string   `json:"tags"`
	Technologies  []string   `json:"technologies"`
	AIFingerprint string     `json:"aiFingerprint,omitempty"`
	Provenance    Provenance `json:"-"`
}

// HasLabels reports whether the repo carries any tags or technologies.
func (r Repo) HasLabels() bool {
	return len(r.Tags) > 0 || len(r.Technologies) > 0
}

// ClassifyInput is the summary of a repo sent to the classifier.
type ClassifyInput struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	FullName    string   `json:"fullName"`
	Description string   `json:"description"`
	Language    string   `json:"language"`
	Topics      []string `json:"topics"`
	Archived    bool     `json:"archived"`
}

// Metadata is one classifier result, matched back to a repo by ID.
type Metadata struct {
	ID           string   `json:"id"`
	Tags         []string `json:"tags"`
	Technologies []string `json:"technologies"`
}

// Stats summarizes one sync cycle.
type Stats struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	AIUpdated int `json:"aiUpdated"`
	Carried   int `json:"carried,omitempty"`
	Fallback  int `json:"fallback,omitempty"`
	Pending   int `json:"pending,omitempty"`
	Batches   int `json:"batches,omitempty"`
}
