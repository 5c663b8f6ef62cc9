package surrealdb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kevinmichaelchen/star-sync/internal/config"
	"github.com/kevinmichaelchen/star-sync/internal/ledger"
	"github.com/kevinmichaelchen/star-sync/internal/models"
	"github.com/kevinmichaelchen/star-sync/internal/publish"
	sdk "github.com/surrealdb/surrealdb.go"
)

type Client struct {
	db *sdk.DB
}

func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	db, err := sdk.FromEndpointURLString(ctx, cfg.SurrealURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, sdk.Auth{
		Namespace: cfg.SurrealNS,
		Database:  cfg.SurrealDB,
		Username:  cfg.SurrealUser,
		Password:  cfg.SurrealPass,
	}); err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("signing in: %w", err)
	}

	if err := db.Use(ctx, cfg.SurrealNS, cfg.SurrealDB); err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("selecting ns/db: %w", err)
	}

	return &Client{db: db}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.db.Close(ctx)
}

const schema = `
DEFINE TABLE IF NOT EXISTS repo SCHEMAFULL;

DEFINE FIELD IF NOT EXISTS repo_id        ON TABLE repo TYPE string;
DEFINE FIELD IF NOT EXISTS owner          ON TABLE repo TYPE string;
DEFINE FIELD IF NOT EXISTS name           ON TABLE repo TYPE string;
DEFINE FIELD IF NOT EXISTS full_name      ON TABLE repo TYPE string;
DEFINE FIELD IF NOT EXISTS description    ON TABLE repo TYPE option<string>;
DEFINE FIELD IF NOT EXISTS url            ON TABLE repo TYPE string;
DEFINE FIELD IF NOT EXISTS homepage_url   ON TABLE repo TYPE option<string>;
DEFINE FIELD IF NOT EXISTS stars          ON TABLE repo TYPE int;
DEFINE FIELD IF NOT EXISTS language       ON TABLE repo TYPE option<string>;
DEFINE FIELD IF NOT EXISTS license        ON TABLE repo TYPE option<string>;
DEFINE FIELD IF NOT EXISTS topics         ON TABLE repo TYPE array<string>;
DEFINE FIELD IF NOT EXISTS archived       ON TABLE repo TYPE bool;
DEFINE FIELD IF NOT EXISTS tags           ON TABLE repo TYPE array<string>;
DEFINE FIELD IF NOT EXISTS technologies   ON TABLE repo TYPE array<string>;
DEFINE FIELD IF NOT EXISTS ai_fingerprint ON TABLE repo TYPE option<string>;
DEFINE FIELD IF NOT EXISTS updated_at     ON TABLE repo TYPE datetime;
DEFINE FIELD IF NOT EXISTS pushed_at      ON TABLE repo TYPE option<datetime>;
DEFINE FIELD IF NOT EXISTS synced_at      ON TABLE repo TYPE datetime;

DEFINE INDEX IF NOT EXISTS idx_repo_id   ON TABLE repo FIELDS repo_id UNIQUE;
DEFINE INDEX IF NOT EXISTS idx_full_name ON TABLE repo FIELDS full_name;
`

func (c *Client) InitSchema(ctx context.Context) error {
	_, err := sdk.Query[any](ctx, c.db, schema, nil)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

// recordData builds the record for r. Empty optional fields are left out
// so they are stored as NONE rather than NULL.
func recordData(r models.Repo, syncedAt time.Time) map[string]any {
	data := map[string]any{
		"repo_id":      r.ID,
		"owner":        r.Owner,
		"name":         r.Name,
		"full_name":    r.FullName,
		"url":          r.URL,
		"stars":        r.Stars,
		"archived":     r.Archived,
		"topics":       nonNil(r.Topics),
		"tags":         nonNil(r.Tags),
		"technologies": nonNil(r.Technologies),
		"updated_at":   r.UpdatedAt.UTC(),
		"synced_at":    syncedAt.UTC(),
	}
	optional := map[string]string{
		"description":    r.Description,
		"homepage_url":   r.Homepage,
		"language":       r.Language,
		"license":        r.License,
		"ai_fingerprint": r.AIFingerprint,
	}
	for k, v := range optional {
		if v != "" {
			data[k] = v
		}
	}
	if r.PushedAt != nil {
		data["pushed_at"] = r.PushedAt.UTC()
	}
	return data
}

func (c *Client) UpsertRepo(ctx context.Context, r models.Repo, syncedAt time.Time) error {
	_, err := sdk.Query[any](ctx, c.db,
		`UPSERT type::thing("repo", $id) CONTENT $data`,
		map[string]any{
			"id":   r.ID,
			"data": recordData(r, syncedAt),
		})
	if err != nil {
		return fmt.Errorf("upserting %s: %w", r.FullName, err)
	}
	return nil
}

// PruneExcept deletes records whose repo id is not in keep.
func (c *Client) PruneExcept(ctx context.Context, keep []string) error {
	if keep == nil {
		keep = []string{}
	}
	_, err := sdk.Query[any](ctx, c.db,
		`DELETE repo WHERE repo_id NOT IN $keep`,
		map[string]any{"keep": keep})
	if err != nil {
		return fmt.Errorf("pruning unstarred repos: %w", err)
	}
	return nil
}

// Stats counts the records in the repo table.
type Stats struct {
	Total    int
	Labeled  int
	Archived int
}

func (c *Client) GetStats(ctx context.Context) (*Stats, error) {
	results, err := sdk.Query[[]map[string]any](ctx, c.db,
		`SELECT
			count() AS total,
			math::sum(IF array::len(tags) > 0 OR array::len(technologies) > 0 THEN 1 ELSE 0 END) AS labeled,
			math::sum(IF archived THEN 1 ELSE 0 END) AS archived
		FROM repo GROUP ALL`,
		nil)
	if err != nil {
		return nil, fmt.Errorf("getting stats: %w", err)
	}
	if len(*results) == 0 || len((*results)[0].Result) == 0 {
		return &Stats{}, nil
	}
	row := (*results)[0].Result[0]
	return &Stats{
		Total:    toInt(row["total"]),
		Labeled:  toInt(row["labeled"]),
		Archived: toInt(row["archived"]),
	}, nil
}

// toInt reads a numeric column. The CBOR decoder yields unsigned or signed
// integers depending on the value, JSON yields float64.
func toInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	default:
		return 0
	}
}

// Target mirrors the enriched repos into a SurrealDB table. Each sync
// opens its own connection. The handle is "namespace/database".
type Target struct {
	cfg *config.Config
}

func NewTarget(cfg *config.Config) *Target {
	return &Target{cfg: cfg}
}

func (t *Target) Name() string { return config.TargetSurreal }

func (t *Target) Sync(ctx context.Context, repos []models.Repo, _ bool, syncedAt time.Time, _ *ledger.Ledger) (string, error) {
	if t.cfg.SurrealURL == "" || t.cfg.SurrealNS == "" || t.cfg.SurrealDB == "" {
		return "", publish.ErrNotConfigured
	}

	db, err := NewClient(ctx, t.cfg)
	if err != nil {
		return "", err
	}
	defer func() { _ = db.Close(ctx) }()

	if err := db.InitSchema(ctx); err != nil {
		return "", err
	}

	keep := make([]string, 0, len(repos))
	for i, r := range repos {
		if err := db.UpsertRepo(ctx, r, syncedAt); err != nil {
			return "", err
		}
		keep = append(keep, r.ID)
		if (i+1)%50 == 0 || i+1 == len(repos) {
			slog.Debug("upserted repos", "done", i+1, "total", len(repos))
		}
	}

	if err := db.PruneExcept(ctx, keep); err != nil {
		return "", err
	}
	return t.cfg.SurrealNS + "/" + t.cfg.SurrealDB, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
