// Package platform implements the e-commerce platform's REST entity API with resty.
package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/erp/bridge/internal/domain/platform"
	"github.com/erp/bridge/internal/infrastructure/config"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client talks to the platform's admin API
type Client struct {
	http   *resty.Client
	tokens *tokenSource
	logger *zap.Logger
}

var (
	_ platform.Client        = (*Client)(nil)
	_ platform.MediaUploader = (*Client)(nil)
)

// NewClient creates a client for the configured platform
func NewClient(cfg *config.PlatformConfig, logger *zap.Logger) (*Client, error) {
	if !cfg.Enabled() {
		return nil, platform.ErrNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(10*cfg.RetryWait).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")

	c := &Client{
		http:   httpClient,
		tokens: newTokenSource(resty.New().SetBaseURL(httpClient.BaseURL).SetTimeout(cfg.Timeout), cfg.ClientID, cfg.ClientSecret),
		logger: logger.Named("platform"),
	}

	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		token, err := c.tokens.Token(req.Context())
		if err != nil {
			return err
		}
		req.SetAuthToken(token)
		return nil
	})
	httpClient.AddRetryCondition(func(resp *resty.Response, err error) bool {
		if err != nil {
			return !errors.Is(err, platform.ErrAuthFailed)
		}
		switch resp.StatusCode() {
		case http.StatusUnauthorized:
			c.tokens.Invalidate()
			return true
		case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	})

	return c, nil
}

type searchResponse struct {
	Total int               `json:"total"`
	Data  []platform.Record `json:"data"`
}

type entityResponse struct {
	Data platform.Record `json:"data"`
}

// Search runs criteria against the entity's search endpoint
func (c *Client) Search(ctx context.Context, entity platform.Entity, criteria *platform.Criteria) (*platform.SearchResult, error) {
	if criteria == nil {
		criteria = platform.NewCriteria()
	}
	var res searchResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(criteria).
		SetResult(&res).
		Post("/api/search/" + string(entity))
	if err := c.check(resp, err, "search", entity); err != nil {
		return nil, err
	}
	return &platform.SearchResult{Total: res.Total, Data: res.Data}, nil
}

// Get fetches one entity by id
func (c *Client) Get(ctx context.Context, entity platform.Entity, id string) (platform.Record, error) {
	var res entityResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&res).
		Get(entityPath(entity, id))
	if err := c.check(resp, err, "get", entity); err != nil {
		return nil, err
	}
	if res.Data == nil {
		return nil, fmt.Errorf("%w: %s %s has no data", platform.ErrInvalidResponse, entity, id)
	}
	return res.Data, nil
}

// Create posts a new entity. The payload's id becomes the entity id.
func (c *Client) Create(ctx context.Context, entity platform.Entity, payload platform.Payload) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		Post("/api/" + string(entity))
	return c.check(resp, err, "create", entity)
}

// Update patches an existing entity
func (c *Client) Update(ctx context.Context, entity platform.Entity, id string, payload platform.Payload) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload.Without("id")).
		Patch(entityPath(entity, id))
	return c.check(resp, err, "update", entity)
}

// Delete removes an entity
func (c *Client) Delete(ctx context.Context, entity platform.Entity, id string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Delete(entityPath(entity, id))
	return c.check(resp, err, "delete", entity)
}

type syncOperation struct {
	Entity  string             `json:"entity"`
	Action  string             `json:"action"`
	Payload []platform.Payload `json:"payload"`
}

// Upsert writes many entities in one sync request
func (c *Client) Upsert(ctx context.Context, entity platform.Entity, payloads []platform.Payload) error {
	if len(payloads) == 0 {
		return nil
	}
	body := map[string]syncOperation{
		"upsert-" + string(entity): {Entity: string(entity), Action: "upsert", Payload: payloads},
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post("/api/_action/sync")
	return c.check(resp, err, "upsert", entity)
}

// UploadMedia uploads the file behind a media entity
func (c *Client) UploadMedia(ctx context.Context, mediaID, fileName, contentType string, content io.Reader) error {
	ext := strings.TrimPrefix(path.Ext(fileName), ".")
	base := strings.TrimSuffix(fileName, path.Ext(fileName))
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetQueryParams(map[string]string{"extension": ext, "fileName": base}).
		SetBody(content).
		Post("/api/_action/media/" + url.PathEscape(mediaID) + "/upload")
	return c.check(resp, err, "upload", platform.EntityMedia)
}

type errorResponse struct {
	Errors []struct {
		Status string `json:"status"`
		Code   string `json:"code"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// check maps transport failures and HTTP status codes onto platform errors
func (c *Client) check(resp *resty.Response, err error, op string, entity platform.Entity) error {
	if err != nil {
		if errors.Is(err, platform.ErrAuthFailed) || errors.Is(err, platform.ErrUnavailable) {
			return err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %s %s: %v", platform.ErrUnavailable, op, entity, err)
	}

	status := resp.StatusCode()
	if status < http.StatusBadRequest {
		c.logger.Debug("Platform request",
			zap.String("op", op),
			zap.String("entity", string(entity)),
			zap.Int("status", status),
			zap.Duration("latency", resp.Time().Truncate(time.Millisecond)),
		)
		return nil
	}

	detail := describeError(resp.Body())
	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", platform.ErrNotFound, op, entity)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s %s: %s", platform.ErrAuthFailed, op, entity, detail)
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s %s: status %d: %s", platform.ErrUnavailable, op, entity, status, detail)
	default:
		return fmt.Errorf("%w: %s %s: status %d: %s", platform.ErrRequestFailed, op, entity, status, detail)
	}
}

func describeError(body []byte) string {
	var res errorResponse
	if err := json.Unmarshal(body, &res); err != nil || len(res.Errors) == 0 {
		return strings.TrimSpace(string(body))
	}
	parts := make([]string, 0, len(res.Errors))
	for _, e := range res.Errors {
		msg := e.Detail
		if msg == "" {
			msg = e.Title
		}
		if e.Code != "" {
			msg = e.Code + ": " + msg
		}
		parts = append(parts, msg)
	}
	return strings.Join(parts, "; ")
}

func entityPath(entity platform.Entity, id string) string {
	return "/api/" + string(entity) + "/" + url.PathEscape(id)
}
