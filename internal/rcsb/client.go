// Package rcsb is the structure data source: entry metadata, polymer entity
// sequences, raw coordinate downloads and full-text search against the RCSB
// PDB web services.
package rcsb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultFilesURL  = "https://files.rcsb.org"
	DefaultDataURL   = "https://data.rcsb.org/rest/v1"
	DefaultSearchURL = "https://search.rcsb.org"
)

// Config holds the service endpoints and client tuning.
type Config struct {
	FilesURL  string
	DataURL   string
	SearchURL string
	Format    string // download extension, "pdb" by default
	Rows      int    // search page size
	Timeout   time.Duration
	CacheSize int
	CacheTTL  time.Duration
}

func (c *Config) setDefaults() {
	if c.FilesURL == "" {
		c.FilesURL = DefaultFilesURL
	}
	if c.DataURL == "" {
		c.DataURL = DefaultDataURL
	}
	if c.SearchURL == "" {
		c.SearchURL = DefaultSearchURL
	}
	if c.Format == "" {
		c.Format = "pdb"
	}
	if c.Rows <= 0 {
		c.Rows = 10
	}
	if c.Timeout <= 0 {
		c.Timeout = 120 * time.Second
	}
	if c.CacheSize <= 0 {
		c.CacheSize = 256
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 10 * time.Minute
	}
	c.FilesURL = strings.TrimRight(c.FilesURL, "/")
	c.DataURL = strings.TrimRight(c.DataURL, "/")
	c.SearchURL = strings.TrimRight(c.SearchURL, "/")
}

// Client talks to the RCSB services. Entry documents are cached and
// concurrent lookups of the same entry share one request.
type Client struct {
	cfg     Config
	http    *http.Client
	entries *expirable.LRU[string, *Entry]
	group   singleflight.Group
	logger  *zap.Logger
}

// NewClient creates a client. A nil logger disables logging.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	cfg.setDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		entries: expirable.NewLRU[string, *Entry](cfg.CacheSize, nil, cfg.CacheTTL),
		logger:  logger.Named("rcsb"),
	}
}

// Format returns the structure download format.
func (c *Client) Format() string { return c.cfg.Format }

func normalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// FetchEntry returns the core entry document for id.
func (c *Client) FetchEntry(ctx context.Context, id string) (*Entry, error) {
	id = normalizeID(id)
	if id == "" {
		return nil, fmt.Errorf("entry id is required")
	}
	if e, ok := c.entries.Get(id); ok {
		return e, nil
	}

	v, err, _ := c.group.Do("entry/"+id, func() (interface{}, error) {
		url := fmt.Sprintf("%s/core/entry/%s", c.cfg.DataURL, id)
		var e Entry
		if err := c.getJSON(ctx, url, &e); err != nil {
			return nil, err
		}
		if e.ID == "" {
			e.ID = id
		}
		c.entries.Add(id, &e)
		return &e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entry), nil
}

// FetchStructure downloads the raw coordinate text. Any failure here is fatal
// to a load.
func (c *Client) FetchStructure(ctx context.Context, id string) (string, error) {
	id = normalizeID(id)
	if id == "" {
		return "", fmt.Errorf("structure id is required")
	}
	url := fmt.Sprintf("%s/download/%s.%s", c.cfg.FilesURL, id, c.cfg.Format)
	body, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", id, err)
	}
	return string(body), nil
}

// FetchSequence resolves the display sequence of an entry. It reads the
// declared polymer entity count and tries entity 1, falling back to entity 2
// only when more than one entity exists and entity 1 has no usable sequence.
// It never fails: the result is nil when no entity yields a sequence, or a
// record with an empty sequence when the entry itself is unreadable.
func (c *Client) FetchSequence(ctx context.Context, id string) *SequenceRecord {
	id = normalizeID(id)
	entry, err := c.FetchEntry(ctx, id)
	if err != nil {
		c.logger.Warn("entry lookup for sequence failed", zap.String("id", id), zap.Error(err))
		return noSequence()
	}

	count, ok := entry.EntityCount()
	if !ok {
		c.logger.Debug("no entity count, trying entity 1", zap.String("id", id))
		return c.fetchEntitySequence(ctx, id, 1)
	}
	if count == 1 {
		return c.fetchEntitySequence(ctx, id, 1)
	}

	if rec := c.fetchEntitySequence(ctx, id, 1); rec != nil {
		return rec
	}
	return c.fetchEntitySequence(ctx, id, 2)
}

func (c *Client) fetchEntitySequence(ctx context.Context, id string, entity int) *SequenceRecord {
	url := fmt.Sprintf("%s/core/polymer_entity/%s/%d", c.cfg.DataURL, id, entity)
	var p polymerEntity
	if err := c.getJSON(ctx, url, &p); err != nil {
		c.logger.Warn("polymer entity fetch failed",
			zap.String("id", id), zap.Int("entity", entity), zap.Error(err))
		return nil
	}
	if p.EntityPoly.Sequence == "" {
		c.logger.Debug("entity has no sequence", zap.String("id", id), zap.Int("entity", entity))
		return nil
	}

	typ := p.EntityPoly.Type
	if typ == "" {
		typ = "polypeptide(L)"
	}
	return &SequenceRecord{
		EntityID: entity,
		Sequence: strings.Join(strings.Fields(p.EntityPoly.Sequence), ""),
		Type:     typ,
		Chains:   p.chains(),
	}
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	body, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &DataShapeError{URL: url, Err: err}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, url string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &NetworkError{URL: url, StatusCode: resp.StatusCode}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	return data, nil
}

// IsNotFound reports whether err is a 404 from the services.
func IsNotFound(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne) && ne.StatusCode == http.StatusNotFound
}
