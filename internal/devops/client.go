package devops

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/aviator-co/adoexport/internal/utils/logutils"
	"github.com/sirupsen/logrus"
)

const maxLoggedBody = 2048

type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	username   string
	password   string
	userAgent  string
	timeout    time.Duration
}

type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (mostly useful for
// tests).
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) { client.httpClient = c }
}

// WithTimeout bounds every request. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(client *Client) { client.timeout = d }
}

func WithUserAgent(ua string) Option {
	return func(client *Client) { client.userAgent = ua }
}

// NewClient creates a new Azure DevOps REST client rooted at baseURL (the
// project-scoped "_apis/" URL). Every request is authenticated with basic
// auth using the given username and password (a personal access token).
func NewClient(baseURL, username, password string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.Errorf("no Azure DevOps base URL provided")
	}
	if password == "" {
		return nil, errors.Errorf("no personal access token provided (do you need to set DEVOPS_PAT?)")
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.WrapIff(err, "invalid base URL %q", baseURL)
	}
	c := &Client{
		httpClient: http.DefaultClient,
		baseURL:    u,
		username:   username,
		password:   password,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, result any) error {
	return c.do(ctx, http.MethodGet, endpoint, query, nil, result)
}

func (c *Client) post(ctx context.Context, endpoint string, query url.Values, body any, result any) error {
	return c.do(ctx, http.MethodPost, endpoint, query, body, result)
}

// do executes a request against the endpoint (relative to the base URL, e.g.
// "git/repositories"). It unmarshals the response into the given result
// (unless it's nil).
func (c *Client) do(
	ctx context.Context,
	method, endpoint string,
	query url.Values,
	body any,
	result any,
) error {
	if strings.HasPrefix(endpoint, "/") {
		logrus.WithField("endpoint", endpoint).Panicf("malformed REST endpoint")
	}
	rel := &url.URL{Path: endpoint, RawQuery: encodeQuery(query)}
	reqURL := c.baseURL.ResolveReference(rel).String()

	log := logrus.WithFields(logrus.Fields{
		"method": method,
		"url":    reqURL,
	})

	var reqBody io.Reader
	if body != nil {
		bodyJSON, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request body to JSON")
		}
		reqBody = bytes.NewReader(bodyJSON)
		log = log.WithField("body", logutils.Truncate(maxLoggedBody, "%s", bodyJSON))
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	startTime := time.Now()
	log.Debug("executing Azure DevOps API request...")
	res, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to make API request")
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}
	log = log.WithFields(logrus.Fields{
		"elapsed": time.Since(startTime),
		"status":  res.StatusCode,
	})

	if res.StatusCode < 200 || res.StatusCode > 299 {
		log.WithField("body", logutils.Truncate(maxLoggedBody, "%s", resBody)).Debug("Azure DevOps API request failed")
		return newAPIError(method, endpoint, res, resBody)
	}
	log.Debug("Azure DevOps API request completed")

	// Don't try to unmarshal into nil, it will return an error.
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(resBody, result); err != nil {
		return errors.Wrapf(err, "failed to unmarshal response body from %s", endpoint)
	}
	return nil
}

// encodeQuery is url.Values.Encode without escaping '$', which the service
// expects verbatim in OData-style parameters such as $top.
func encodeQuery(query url.Values) string {
	if len(query) == 0 {
		return ""
	}
	return strings.ReplaceAll(query.Encode(), "%24", "$")
}
