package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public REST endpoint of the store.
const DefaultBaseURL = "https://firestore.googleapis.com"

// RESTConfig configures a RESTClient.
type RESTConfig struct {
	BaseURL    string
	ProjectID  string
	Database   string
	APIKey     string
	Timeout    time.Duration
	RetryCount int
}

// RESTClient queries the store over its REST API. It is constructed once by
// the application entry point and shared by every fetch.
type RESTClient struct {
	httpClient *resty.Client
	apiKey     string
	logger     *zap.Logger
}

// NewRESTClient creates a REST client for one project database.
func NewRESTClient(cfg RESTConfig, logger *zap.Logger) (*RESTClient, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project id is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Database == "" {
		cfg.Database = "(default)"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(5*time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetPathParams(map[string]string{
			"project":  cfg.ProjectID,
			"database": cfg.Database,
		})

	return &RESTClient{
		httpClient: client,
		apiKey:     cfg.APIKey,
		logger:     logger,
	}, nil
}

type runQueryRequest struct {
	StructuredQuery structuredQuery `json:"structuredQuery"`
}

type structuredQuery struct {
	From    []collectionSelector `json:"from"`
	OrderBy []order              `json:"orderBy,omitempty"`
}

type collectionSelector struct {
	CollectionID string `json:"collectionId"`
}

type order struct {
	Field     fieldReference `json:"field"`
	Direction Direction      `json:"direction"`
}

type fieldReference struct {
	FieldPath string `json:"fieldPath"`
}

type runQueryResult struct {
	Document *Document `json:"document"`
	ReadTime string    `json:"readTime"`
}

type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// RunQuery runs q and returns the matching documents in store order.
func (c *RESTClient) RunQuery(ctx context.Context, q Query) ([]Document, error) {
	dir := q.Direction
	if dir == "" {
		dir = Ascending
	}
	body := runQueryRequest{
		StructuredQuery: structuredQuery{
			From: []collectionSelector{{CollectionID: q.Collection}},
		},
	}
	if q.OrderBy != "" {
		body.StructuredQuery.OrderBy = []order{{
			Field:     fieldReference{FieldPath: quoteFieldPath(q.OrderBy)},
			Direction: dir,
		}}
	}

	req := c.httpClient.R().
		SetContext(ctx).
		SetBody(body)
	if c.apiKey != "" {
		req.SetQueryParam("key", c.apiKey)
	}

	start := time.Now()
	resp, err := req.Post("/v1/projects/{project}/databases/{database}/documents:runQuery")
	if err != nil {
		c.logger.Error("Document store request failed",
			zap.String("query", q.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("running query %s: %w", q, err)
	}

	if resp.IsError() {
		qe := &QueryError{StatusCode: resp.StatusCode(), Status: resp.Status(), Message: string(resp.Body())}
		if msg := decodeErrorBody(resp.Body()); msg != "" {
			qe.Message = msg
		}
		c.logger.Error("Document store rejected query",
			zap.String("query", q.String()),
			zap.Int("status_code", qe.StatusCode),
			zap.String("message", qe.Message),
		)
		return nil, qe
	}

	var results []runQueryResult
	if err := json.Unmarshal(resp.Body(), &results); err != nil {
		return nil, fmt.Errorf("decoding query response: %w", err)
	}

	docs := make([]Document, 0, len(results))
	for _, r := range results {
		// results without a document only carry the read time
		if r.Document != nil {
			docs = append(docs, *r.Document)
		}
	}

	c.logger.Debug("Document store query complete",
		zap.String("query", q.String()),
		zap.Int("documents", len(docs)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return docs, nil
}

// The error body is an object for most failures and a one-element array
// for failures reported mid-stream.
func decodeErrorBody(body []byte) string {
	var single apiErrorBody
	if err := json.Unmarshal(body, &single); err == nil && single.Error.Message != "" {
		return single.Error.Message
	}
	var list []apiErrorBody
	if err := json.Unmarshal(body, &list); err == nil && len(list) > 0 {
		return list[0].Error.Message
	}
	return ""
}

var simpleSegment = regexp.MustCompile(`^[A-Za-z_][A-Za-z_0-9]*$`)

// quoteFieldPath backtick-quotes segments that are not simple identifiers.
func quoteFieldPath(p string) string {
	parts := strings.Split(p, ".")
	for i, seg := range parts {
		if !simpleSegment.MatchString(seg) {
			seg = strings.ReplaceAll(seg, `\`, `\\`)
			seg = strings.ReplaceAll(seg, "`", "\\`")
			parts[i] = "`" + seg + "`"
		}
	}
	return strings.Join(parts, ".")
}
