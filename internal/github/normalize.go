package github

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/kevinmichaelchen/star-sync/internal/models"
)

const maxTopics = 12

type apiRepo struct {
	ID       json.RawMessage `json:"id"`
	Name     string          `json:"name"`
	FullName string          `json:"full_name"`
	Owner    *struct {
		Login string `json:"login"`
	} `json:"owner"`
	HTMLURL         string   `json:"html_url"`
	Description     *string  `json:"description"`
	Language        *string  `json:"language"`
	Topics          []string `json:"topics"`
	UpdatedAt       string   `json:"updated_at"`
	PushedAt        string   `json:"pushed_at"`
	Archived        bool     `json:"archived"`
	Homepage        *string  `json:"homepage"`
	StargazersCount int      `json:"stargazers_count"`
	License         *struct {
		SPDXID string `json:"spdx_id"`
		Name   string `json:"name"`
	} `json:"license"`
}

type starEnvelope struct {
	StarredAt string   `json:"starred_at"`
	Repo      *apiRepo `json:"repo"`
}

var errNoRepoID = errors.New("record has no repository id")

// resolveRecord accepts both shapes of a starred-list element: the star
// envelope {"starred_at", "repo"} and a bare repository object.
func resolveRecord(raw StarRecord) (apiRepo, string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return apiRepo{}, "", errNoRepoID
	}

	var env starEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return apiRepo{}, "", err
	}

	repo := env.Repo
	if repo == nil {
		var bare apiRepo
		if err := json.Unmarshal(trimmed, &bare); err != nil {
			return apiRepo{}, "", err
		}
		repo = &bare
	}

	if idString(repo.ID) == "" {
		return apiRepo{}, "", errNoRepoID
	}
	return *repo, env.StarredAt, nil
}

// Normalize maps raw star records to repos sorted most recently updated
// first. Records without a resolvable repository id are dropped with a
// warning. now stands in for a missing update time.
func Normalize(records []StarRecord, now time.Time) []models.Repo {
	repos := make([]models.Repo, 0, len(records))
	for i, raw := range records {
		api, starredAt, err := resolveRecord(raw)
		if err != nil {
			slog.Warn("skipping unparseable star record", "index", i, "error", err)
			continue
		}
		repos = append(repos, toRepo(api, starredAt, now))
	}

	sort.SliceStable(repos, func(i, j int) bool {
		return repos[i].UpdatedAt.After(repos[j].UpdatedAt)
	})
	return repos
}

func toRepo(a apiRepo, starredAt string, now time.Time) models.Repo {
	id := idString(a.ID)

	owner := ""
	if a.Owner != nil {
		owner = a.Owner.Login
	}

	fullName := a.FullName
	if fullName == "" {
		o := owner
		if o == "" {
			o = "unknown"
		}
		fullName = o + "/" + a.Name
	}

	name := a.Name
	if name == "" {
		if _, after, ok := strings.Cut(a.FullName, "/"); ok && after != "" {
			name = after
		} else {
			name = id
		}
	}

	url := a.HTMLURL
	if url == "" {
		url = "https://github.com/" + fullName
	}

	r := models.Repo{
		ID:       id,
		Owner:    owner,
		Name:     name,
		FullName: fullName,
		URL:      url,
		Archived: a.Archived,
		Stars:    a.StargazersCount,
	}

	if a.Description != nil {
		r.Description = strings.Join(strings.Fields(*a.Description), " ")
	}
	if a.Language != nil {
		r.Language = *a.Language
	}
	if a.Homepage != nil {
		r.Homepage = *a.Homepage
	}
	if a.License != nil {
		r.License = a.License.SPDXID
		if r.License == "" {
			r.License = a.License.Name
		}
	}

	topics := a.Topics
	if len(topics) > maxTopics {
		topics = topics[:maxTopics]
	}
	r.Topics = append([]string{}, topics...)

	r.UpdatedAt = now.UTC()
	for _, ts := range []string{a.UpdatedAt, starredAt} {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			r.UpdatedAt = t
			break
		}
	}
	if t, err := time.Parse(time.RFC3339, a.PushedAt); err == nil {
		r.PushedAt = &t
	}

	return r
}

// idString renders a JSON id (number or string) as a plain string.
func idString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
