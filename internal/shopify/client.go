// Package shopify is a small Admin GraphQL API client covering the metaobject
// operations the moderation workflow needs.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/leathercraft-class-submissions/internal/config"
	"github.com/leathercraft-class-submissions/internal/models"
)

// ErrNotConfigured is returned when no shop or access token is set
var ErrNotConfigured = errors.New("shopify admin api is not configured")

// UserError is a business-level error returned inside a successful response
type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
	Code    string   `json:"code,omitempty"`
}

// UserErrors is returned when a mutation reports userErrors
type UserErrors []UserError

func (e UserErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, ue := range e {
		msgs = append(msgs, ue.Message)
	}
	return strings.Join(msgs, "; ")
}

// GraphQLError is a top-level "errors" array (bad query, throttling, auth)
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "graphql: " + strings.Join(e.Messages, "; ")
}

// Client talks to one shop's Admin GraphQL endpoint
type Client struct {
	endpoint       string
	token          string
	metaobjectType string
	http           *http.Client
	log            zerolog.Logger
}

// NewClient creates a client; an unconfigured shop yields a client whose calls
// all return ErrNotConfigured.
func NewClient(cfg config.ShopifyConfig, log zerolog.Logger) *Client {
	c := &Client{
		token:          cfg.AccessToken,
		metaobjectType: cfg.MetaobjectType,
		http:           &http.Client{Timeout: cfg.Timeout},
		log:            log.With().Str("component", "shopify").Logger(),
	}
	if cfg.Enabled() {
		c.endpoint = Endpoint(cfg.Shop, cfg.APIVersion)
	}
	return c
}

// NewClientWithEndpoint targets an explicit GraphQL URL
func NewClientWithEndpoint(endpoint, token, metaobjectType string, httpClient *http.Client, log zerolog.Logger) *Client {
	return &Client{
		endpoint:       endpoint,
		token:          token,
		metaobjectType: metaobjectType,
		http:           httpClient,
		log:            log.With().Str("component", "shopify").Logger(),
	}
}

// Endpoint builds https://{shop}/admin/api/{version}/graphql.json
func Endpoint(shop, version string) string {
	shop = strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(shop, "https://"), "http://"), "/")
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", shop, version)
}

// UpsertMetaobject creates or updates the metaobject with the given handle
func (c *Client) UpsertMetaobject(ctx context.Context, handle string, fields []models.MetaobjectField) (*models.Metaobject, error) {
	vars := map[string]interface{}{
		"handle":     map[string]string{"type": c.metaobjectType, "handle": handle},
		"metaobject": map[string]interface{}{"fields": fields},
	}

	var out struct {
		MetaobjectUpsert mutationPayload `json:"metaobjectUpsert"`
	}
	if err := c.do(ctx, upsertMutation, vars, &out); err != nil {
		return nil, err
	}
	return out.MetaobjectUpsert.result()
}

// UpdateMetaobjectFields overwrites the given fields on an existing metaobject
func (c *Client) UpdateMetaobjectFields(ctx context.Context, id string, fields []models.MetaobjectField) (*models.Metaobject, error) {
	return c.update(ctx, id, map[string]interface{}{"fields": fields})
}

// PublishMetaobject sets the publishable capability to ACTIVE
func (c *Client) PublishMetaobject(ctx context.Context, id string) (*models.Metaobject, error) {
	return c.update(ctx, id, map[string]interface{}{
		"capabilities": map[string]interface{}{
			"publishable": map[string]string{"status": models.PublishStatusActive},
		},
	})
}

func (c *Client) update(ctx context.Context, id string, input map[string]interface{}) (*models.Metaobject, error) {
	vars := map[string]interface{}{"id": id, "metaobject": input}

	var out struct {
		MetaobjectUpdate mutationPayload `json:"metaobjectUpdate"`
	}
	if err := c.do(ctx, updateMutation, vars, &out); err != nil {
		return nil, err
	}
	return out.MetaobjectUpdate.result()
}

// ListMetaobjects returns the first page of metaobjects of the configured type
func (c *Client) ListMetaobjects(ctx context.Context, first int) ([]models.Metaobject, error) {
	vars := map[string]interface{}{"type": c.metaobjectType, "first": first}

	var out struct {
		Metaobjects struct {
			Nodes []metaobjectNode `json:"nodes"`
		} `json:"metaobjects"`
	}
	if err := c.do(ctx, listQuery, vars, &out); err != nil {
		return nil, err
	}

	result := make([]models.Metaobject, 0, len(out.Metaobjects.Nodes))
	for _, n := range out.Metaobjects.Nodes {
		result = append(result, n.model())
	}
	return result, nil
}

// do posts one GraphQL operation and decodes "data" into out
func (c *Client) do(ctx context.Context, query string, vars map[string]interface{}, out interface{}) error {
	if c.endpoint == "" {
		return ErrNotConfigured
	}

	payload, err := json.Marshal(map[string]interface{}{"query": query, "variables": vars})
	if err != nil {
		return fmt.Errorf("failed to encode graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("admin api request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return fmt.Errorf("failed to read admin api response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("admin api returned status %d: %s", resp.StatusCode, truncateBody(body))
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("invalid admin api response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		gqlErr := &GraphQLError{}
		for _, e := range envelope.Errors {
			gqlErr.Messages = append(gqlErr.Messages, e.Message)
		}
		return gqlErr
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return fmt.Errorf("admin api response had no data")
	}

	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode admin api data: %w", err)
	}

	c.log.Debug().Int("status", resp.StatusCode).Msg("Admin API call completed")
	return nil
}

func truncateBody(b []byte) string {
	const max = 512
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}

type metaobjectNode struct {
	ID           string                   `json:"id"`
	Handle       string                   `json:"handle"`
	Fields       []models.MetaobjectField `json:"fields"`
	Capabilities *struct {
		Publishable *struct {
			Status string `json:"status"`
		} `json:"publishable"`
	} `json:"capabilities"`
}

func (n metaobjectNode) model() models.Metaobject {
	m := models.Metaobject{ID: n.ID, Handle: n.Handle, Fields: n.Fields}
	if n.Capabilities != nil && n.Capabilities.Publishable != nil {
		m.PublishStatus = n.Capabilities.Publishable.Status
	}
	return m
}

type mutationPayload struct {
	Metaobject *metaobjectNode `json:"metaobject"`
	UserErrors UserErrors      `json:"userErrors"`
}

func (p mutationPayload) result() (*models.Metaobject, error) {
	if len(p.UserErrors) > 0 {
		return nil, p.UserErrors
	}
	if p.Metaobject == nil {
		return nil, fmt.Errorf("admin api returned no metaobject")
	}
	m := p.Metaobject.model()
	return &m, nil
}
