// ABOUTME: HTTP client for a running incial server's /api/v1 surface
// ABOUTME: Implements the coordinator backend per collection and maps statuses to error kinds
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/incial/crm/coordinator"
	"github.com/incial/crm/models"
)

const defaultTimeout = 15 * time.Second

// Client talks to one server with one bearer token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New builds a client. baseURL includes the /api/v1 prefix.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Deals returns the backend for /crm, whose list is wrapped in crmList.
func (c *Client) Deals() *Collection[models.Deal, models.DealPatch] {
	return &Collection[models.Deal, models.DealPatch]{client: c, name: models.CollectionDeals, path: "crm", listKey: "crmList"}
}

func (c *Client) Tasks() *Collection[models.Task, models.TaskPatch] {
	return &Collection[models.Task, models.TaskPatch]{client: c, name: models.CollectionTasks, path: "tasks"}
}

func (c *Client) Meetings() *Collection[models.Meeting, models.MeetingPatch] {
	return &Collection[models.Meeting, models.MeetingPatch]{client: c, name: models.CollectionMeetings, path: "meetings"}
}

// Users lists the server's user directory. It doubles as a credential check.
func (c *Client) Users(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.do(ctx, http.MethodGet, "/users/all", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Collection is the remote CRUD surface for one entity type.
type Collection[E models.Record, P any] struct {
	client  *Client
	name    string
	path    string
	listKey string
}

var (
	_ coordinator.Backend[models.Deal, models.DealPatch]       = (*Collection[models.Deal, models.DealPatch])(nil)
	_ coordinator.Backend[models.Task, models.TaskPatch]       = (*Collection[models.Task, models.TaskPatch])(nil)
	_ coordinator.Backend[models.Meeting, models.MeetingPatch] = (*Collection[models.Meeting, models.MeetingPatch])(nil)
)

func (r *Collection[E, P]) GetAll(ctx context.Context) ([]E, error) {
	path := "/" + r.path + "/all"
	if r.listKey == "" {
		var items []E
		if err := r.client.do(ctx, http.MethodGet, path, nil, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var envelope map[string][]E
	if err := r.client.do(ctx, http.MethodGet, path, nil, &envelope); err != nil {
		return nil, err
	}
	return envelope[r.listKey], nil
}

func (r *Collection[E, P]) Create(ctx context.Context, draft E) (E, error) {
	var created E
	err := r.client.do(ctx, http.MethodPost, "/"+r.path+"/create", draft, &created)
	return created, err
}

func (r *Collection[E, P]) Update(ctx context.Context, id int64, patch P) (E, error) {
	var updated E
	err := r.client.do(ctx, http.MethodPut, "/"+r.path+"/update/"+strconv.FormatInt(id, 10), patch, &updated)
	return updated, err
}

// Delete treats a missing id as already deleted.
func (r *Collection[E, P]) Delete(ctx context.Context, id int64) error {
	err := r.client.do(ctx, http.MethodDelete, "/"+r.path+"/delete/"+strconv.FormatInt(id, 10), nil, nil)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	return err
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	op := method + " " + path

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return models.Transport(op, fmt.Errorf("failed to create request: %w", err))
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Transport(op, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("Remote request",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode >= 300 {
		return statusError(op, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return models.Transport(op, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// statusError maps a non-2xx response onto an error kind.
func statusError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	message := strings.TrimSpace(string(raw))
	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil && eb.Error.Message != "" {
		message = eb.Error.Message
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return &models.Error{Kind: models.KindValidation, Op: op, Message: message}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &models.Error{Kind: models.KindUnauthorized, Op: op, Message: message}
	case resp.StatusCode == http.StatusNotFound:
		return &models.Error{Kind: models.KindNotFound, Op: op, Message: message}
	default:
		return &models.Error{Kind: models.KindTransport, Op: op, Message: message,
			Err: fmt.Errorf("status=%d", resp.StatusCode)}
	}
}
