package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wayBiggger/way-bigger-sub000/errs"
)

const (
	DefaultPineconeIndex = "waybigger-projects"
	pineconeAPIVersion   = "2025-01"
	pineconeControlURL   = "https://api.pinecone.io"
)

type PineconeConfig struct {
	APIKey    string
	IndexName string
	// IndexHost skips the describe-index lookup when set. It may carry a scheme.
	IndexHost  string
	ControlURL string
	Timeout    time.Duration
}

// PineconeClient talks to the Pinecone REST API for a single index.
type PineconeClient struct {
	cfg  PineconeConfig
	http *http.Client
	host string
}

func NewPineconeClient(cfg PineconeConfig) (*PineconeClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errs.NewConfigError("PINECONE_API_KEY", nil)
	}
	if cfg.IndexName == "" {
		cfg.IndexName = DefaultPineconeIndex
	}
	if cfg.ControlURL == "" {
		cfg.ControlURL = pineconeControlURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &PineconeClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		host: cfg.IndexHost,
	}, nil
}

type pineconeIndexDescription struct {
	Name   string `json:"name"`
	Host   string `json:"host"`
	Status struct {
		Ready bool `json:"ready"`
	} `json:"status"`
}

// Resolve looks up the index data-plane host. It fails when the index does not exist.
func (c *PineconeClient) Resolve(ctx context.Context) error {
	if c.host != "" {
		return nil
	}
	u := strings.TrimRight(c.cfg.ControlURL, "/") + "/indexes/" + c.cfg.IndexName
	desc, err := doPinecone[pineconeIndexDescription](c, ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("pinecone index %s not found: %w", c.cfg.IndexName, err)
	}
	if strings.TrimSpace(desc.Host) == "" {
		return fmt.Errorf("pinecone index %s has no host", c.cfg.IndexName)
	}
	c.host = desc.Host
	return nil
}

type PineconeVector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type pineconeUpsertRequest struct {
	Vectors []PineconeVector `json:"vectors"`
}

type pineconeUpsertResponse struct {
	UpsertedCount int64 `json:"upsertedCount"`
}

type pineconeQueryRequest struct {
	Vector          []float32      `json:"vector"`
	TopK            int            `json:"topK"`
	Filter          map[string]any `json:"filter,omitempty"`
	IncludeValues   bool           `json:"includeValues"`
	IncludeMetadata bool           `json:"includeMetadata"`
}

type PineconeMatch struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type pineconeQueryResponse struct {
	Matches []PineconeMatch `json:"matches"`
}

func (c *PineconeClient) Upsert(ctx context.Context, vectors ...PineconeVector) error {
	if len(vectors) == 0 {
		return nil
	}
	if err := c.Resolve(ctx); err != nil {
		return err
	}
	_, err := doPinecone[pineconeUpsertResponse](c, ctx, http.MethodPost, c.dataURL("/vectors/upsert"), pineconeUpsertRequest{Vectors: vectors})
	return err
}

func (c *PineconeClient) Query(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]PineconeMatch, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector required")
	}
	if err := c.Resolve(ctx); err != nil {
		return nil, err
	}
	resp, err := doPinecone[pineconeQueryResponse](c, ctx, http.MethodPost, c.dataURL("/query"), pineconeQueryRequest{
		Vector:          vector,
		TopK:            topK,
		Filter:          filter,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, err
	}
	return resp.Matches, nil
}

func (c *PineconeClient) dataURL(path string) string {
	host := strings.TrimRight(c.host, "/")
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	return host + path
}

func doPinecone[T any](c *PineconeClient, ctx context.Context, method, url string, body any) (*T, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Api-Key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Pinecone-Api-Version", pineconeAPIVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errs.NewServiceUnreachableError("pinecone", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errs.NewServiceUnreachableError("pinecone", fmt.Errorf("http %d: %s", resp.StatusCode, string(raw)))
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("pinecone decode error: %w", err)
	}
	return &out, nil
}
