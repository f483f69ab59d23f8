package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/go-github/v55/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/kurihiro0119/github-portfolio/internal/domain"
	apperrors "github.com/kurihiro0119/github-portfolio/internal/errors"
)

const maxReadmeBytes = 1 << 20

// Options configures the GitHub collector
type Options struct {
	Token        string // optional personal access token
	BaseURL      string // REST API base URL, defaults to https://api.github.com/
	RawURL       string // raw content base URL, defaults to https://raw.githubusercontent.com/
	ReadmeBranch string
	ReadmePath   string
	ListRetries  int
	RetryBackoff time.Duration
	HTTPClient   *http.Client
	RateLimiter  RateLimiter
	Logger       *zap.Logger
}

// githubCollector implements Collector using GitHub API
type githubCollector struct {
	client       *github.Client
	httpClient   *http.Client
	rawURL       *url.URL
	readmeBranch string
	readmePath   string
	listRetries  int
	retryBackoff time.Duration
	rateLimiter  RateLimiter
	logger       *zap.Logger
}

// NewGitHubCollector creates a new GitHub collector
func NewGitHubCollector(opts Options) (Collector, error) {
	httpClient := opts.HTTPClient
	if opts.Token != "" {
		ctx := context.Background()
		if httpClient != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		}
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: opts.Token},
		)
		httpClient = oauth2.NewClient(ctx, ts)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	client := github.NewClient(httpClient)

	if opts.BaseURL != "" {
		baseURL, err := url.Parse(withTrailingSlash(opts.BaseURL))
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL: %w", err)
		}
		client.BaseURL = baseURL
	}

	rawURL, err := url.Parse(withTrailingSlash(valueOr(opts.RawURL, "https://raw.githubusercontent.com/")))
	if err != nil {
		return nil, fmt.Errorf("invalid raw content URL: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	limiter := opts.RateLimiter
	if limiter == nil {
		limiter = NewRateLimiter(100*time.Millisecond, time.Minute, logger)
	}

	backoff := opts.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	return &githubCollector{
		client:       client,
		httpClient:   httpClient,
		rawURL:       rawURL,
		readmeBranch: valueOr(opts.ReadmeBranch, "main"),
		readmePath:   valueOr(opts.ReadmePath, "README.md"),
		listRetries:  opts.ListRetries,
		retryBackoff: backoff,
		rateLimiter:  limiter,
		logger:       logger,
	}, nil
}

// GetUserRepositories retrieves all repositories for a user
func (c *githubCollector) GetUserRepositories(ctx context.Context, user string) ([]*domain.Repository, error) {
	if user == "" {
		return nil, apperrors.NewBadRequestError("user is required")
	}

	var allRepos []*domain.Repository
	opts := &github.RepositoryListOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		repos, resp, err := c.listPage(ctx, user, opts)
		if err != nil {
			return nil, err
		}

		for _, repo := range repos {
			allRepos = append(allRepos, &domain.Repository{
				Owner:         user,
				Name:          repo.GetName(),
				HTMLURL:       repo.GetHTMLURL(),
				Description:   repo.Description,
				DefaultBranch: repo.GetDefaultBranch(),
				Fork:          repo.GetFork(),
				Archived:      repo.GetArchived(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allRepos, nil
}

// listPage fetches one listing page, retrying transient failures with exponential backoff
func (c *githubCollector) listPage(ctx context.Context, user string, opts *github.RepositoryListOptions) ([]*github.Repository, *github.Response, error) {
	backoff := c.retryBackoff

	for attempt := 0; ; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, nil, err
		}

		repos, resp, err := c.client.Repositories.List(ctx, user, opts)
		c.updateRateLimitFromResponse(resp)
		if err == nil {
			return repos, resp, nil
		}

		var rateErr *github.RateLimitError
		if errors.As(err, &rateErr) {
			c.rateLimiter.UpdateLimit(rateErr.Rate.Remaining, rateErr.Rate.Reset.Time)
		}

		if attempt >= c.listRetries || !isRetryable(ctx, resp, err) {
			return nil, resp, classifyListError(user, resp, err)
		}

		c.logger.Warn("Listing repositories failed, retrying",
			zap.String("user", user),
			zap.Int("page", opts.Page),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// GetReadme retrieves the raw README text from the configured branch.
// Raw content is not metered by the REST quota, so the request bypasses
// go-github and its rate tracking.
func (c *githubCollector) GetReadme(ctx context.Context, user, repo string) (string, error) {
	readmeURL := c.rawURL.JoinPath(user, repo, c.readmeBranch, c.readmePath)
	name := user + "/" + repo

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, readmeURL.String(), nil)
	if err != nil {
		return "", apperrors.NewUnavailableError("failed to build README request for "+name, err)
	}
	req.Header.Set("Accept", "text/plain, text/markdown, */*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("failed to fetch README for %s: %w", name, ctx.Err())
		}
		return "", apperrors.NewUnavailableError("failed to fetch README for "+name, err)
	}
	defer resp.Body.Close()

	if err := classifyReadmeStatus(name, resp); err != nil {
		return "", err
	}

	if !isTextContent(resp.Header.Get("Content-Type")) {
		return "", apperrors.NewUnavailableError(
			fmt.Sprintf("README for %s has non-text content type %q", name, resp.Header.Get("Content-Type")), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReadmeBytes+1))
	if err != nil {
		return "", apperrors.NewUnavailableError("failed to read README for "+name, err)
	}
	if len(body) > maxReadmeBytes {
		return "", apperrors.NewUnavailableError(
			fmt.Sprintf("README for %s exceeds %d bytes", name, maxReadmeBytes), nil)
	}
	if !utf8.Valid(body) {
		return "", apperrors.NewUnavailableError("README for "+name+" is not valid UTF-8", nil)
	}

	return string(body), nil
}

// updateRateLimitFromResponse updates the rate limiter from API response
func (c *githubCollector) updateRateLimitFromResponse(resp *github.Response) {
	if resp != nil && resp.Rate.Limit > 0 {
		c.rateLimiter.UpdateLimit(resp.Rate.Remaining, resp.Rate.Reset.Time)
	}
}

func isRetryable(ctx context.Context, resp *github.Response, err error) bool {
	if ctx.Err() != nil {
		return false
	}

	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	switch {
	case errors.As(err, &rateErr), errors.As(err, &abuseErr):
		return true
	case resp == nil:
		// transport error
		return true
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return true
	default:
		return false
	}
}

func classifyListError(user string, resp *github.Response, err error) error {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	var appErr *apperrors.AppError

	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("failed to list repositories for %s: %w", user, err)
	case errors.As(err, &rateErr), errors.As(err, &abuseErr):
		return apperrors.NewRateLimitedError("GitHub rate limit exceeded while listing repositories", err)
	case resp == nil:
		return apperrors.NewUnavailableError("failed to list repositories for "+user, err)
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NewNotFoundError("GitHub user " + user)
	case resp.StatusCode == http.StatusUnauthorized:
		return apperrors.NewUnauthorizedError("GitHub rejected the configured token")
	case resp.StatusCode == http.StatusForbidden:
		return apperrors.NewForbiddenError("GitHub denied access to repositories of " + user)
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.NewRateLimitedError("GitHub rate limit exceeded while listing repositories", err)
	default:
		return apperrors.NewUnavailableError("failed to list repositories for "+user, err)
	}
}

func classifyReadmeStatus(name string, resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NewNotFoundError("README for " + name)
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.NewRateLimitedError("rate limited while fetching README for "+name, nil)
	default:
		return apperrors.NewUnavailableError(
			fmt.Sprintf("failed to fetch README for %s: status %d", name, resp.StatusCode), nil)
	}
}

// isTextContent accepts text/* media types; an absent header is treated as text
func isTextContent(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "text/")
}

func withTrailingSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
