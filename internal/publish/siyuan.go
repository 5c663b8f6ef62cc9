package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kevinmichaelchen/star-sync/internal/config"
	"github.com/kevinmichaelchen/star-sync/internal/ledger"
)

// SiYuan publishes the table document through the SiYuan kernel API.
type SiYuan struct {
	baseURL    string
	token      string
	notebook   string
	docPath    string
	httpClient *http.Client
}

func NewSiYuan(cfg *config.Config) *SiYuan {
	return &SiYuan{
		baseURL:    strings.TrimSuffix(cfg.SiYuanAPIURL, "/"),
		token:      cfg.SiYuanToken,
		notebook:   cfg.SiYuanNotebookID,
		docPath:    cfg.SiYuanDocPath,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

// APIError is a failed SiYuan call: either a non-2xx HTTP response or a
// response envelope with a non-zero code.
type APIError struct {
	Endpoint string
	Status   int
	Code     int
	Msg      string
	Body     string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("siyuan %s: code %d: %s", e.Endpoint, e.Code, e.Msg)
	}
	return fmt.Sprintf("siyuan %s: HTTP %d", e.Endpoint, e.Status)
}

func (e *APIError) HTTPStatus() int  { return e.Status }
func (e *APIError) HTTPBody() string { return e.Body }

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// Publish updates the document recorded in prev, or finds the document at
// the configured path and updates it, or creates it.
func (s *SiYuan) Publish(ctx context.Context, doc string, prev *ledger.Ledger) (string, error) {
	if s.token == "" || s.notebook == "" {
		return "", ErrNotConfigured
	}

	if id := prev.Handle(config.TargetSiYuan); id != "" {
		if err := s.updateBlock(ctx, id, doc); err != nil {
			return "", err
		}
		return id, nil
	}

	id, err := s.findDoc(ctx)
	if err != nil {
		return "", fmt.Errorf("looking up %s: %w", s.docPath, err)
	}
	if id != "" {
		if err := s.updateBlock(ctx, id, doc); err != nil {
			return "", err
		}
		return id, nil
	}

	var created string
	if err := s.post(ctx, "/api/filetree/createDocWithMd", map[string]any{
		"notebook": s.notebook,
		"path":     s.docPath,
		"markdown": doc,
	}, &created); err != nil {
		return "", fmt.Errorf("creating %s: %w", s.docPath, err)
	}
	slog.Info("created siyuan document", "path", s.docPath, "id", created)
	return created, nil
}

func (s *SiYuan) findDoc(ctx context.Context) (string, error) {
	var ids []string
	if err := s.post(ctx, "/api/filetree/getIDsByHPath", map[string]any{
		"notebook": s.notebook,
		"path":     s.docPath,
	}, &ids); err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", nil
	}
	return ids[0], nil
}

func (s *SiYuan) updateBlock(ctx context.Context, id, doc string) error {
	if err := s.post(ctx, "/api/block/updateBlock", map[string]any{
		"id":       id,
		"dataType": "markdown",
		"data":     doc,
	}, nil); err != nil {
		return fmt.Errorf("updating document %s: %w", id, err)
	}
	slog.Info("updated siyuan document", "id", id)
	return nil
}

func (s *SiYuan) post(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Endpoint: endpoint, Status: resp.StatusCode, Body: string(raw)}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if env.Code != 0 {
		msg := env.Msg
		if msg == "" {
			msg = "unexpected response"
		}
		return &APIError{Endpoint: endpoint, Status: resp.StatusCode, Code: env.Code, Msg: msg, Body: string(raw)}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decoding data: %w", err)
	}
	return nil
}
