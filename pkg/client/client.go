package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kurihiro0119/github-portfolio/internal/domain"
	apperrors "github.com/kurihiro0119/github-portfolio/internal/errors"
	"github.com/kurihiro0119/github-portfolio/internal/portfolio"
)

// Client is the API client for the portfolio preview server
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetProjects retrieves the stored projects of user partitioned by techs
func (c *Client) GetProjects(ctx context.Context, user string, techs []string) (*portfolio.View, error) {
	params := url.Values{}
	for _, tech := range techs {
		params.Add("tech", tech)
	}

	var response struct {
		Data *portfolio.View `json:"data"`
	}
	if err := c.get(ctx, userPath(user, "projects"), params, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetTechnologies retrieves every technology of user with its project count
func (c *Client) GetTechnologies(ctx context.Context, user string) ([]domain.TechnologyCount, error) {
	var response struct {
		Data []domain.TechnologyCount `json:"data"`
	}
	if err := c.get(ctx, userPath(user, "technologies"), nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetLatestBuild retrieves the most recent build record of user
func (c *Client) GetLatestBuild(ctx context.Context, user string) (*domain.Build, error) {
	var response struct {
		Data *domain.Build `json:"data"`
	}
	if err := c.get(ctx, userPath(user, "builds", "latest"), nil, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// HealthCheck checks if the API is healthy
func (c *Client) HealthCheck(ctx context.Context) error {
	var response struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, "/health", nil, &response); err != nil {
		return err
	}
	if response.Status != "ok" {
		return fmt.Errorf("unhealthy status: %s", response.Status)
	}
	return nil
}

func userPath(user string, elem ...string) string {
	return "/api/v1/users/" + url.PathEscape(user) + "/" + strings.Join(elem, "/")
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return err
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

// decodeError turns an error envelope back into an AppError
func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var envelope struct {
		Error struct {
			Code    apperrors.ErrCode `json:"code"`
			Message string            `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Code == "" {
		return fmt.Errorf("API error: %s - %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return &apperrors.AppError{
		Code:    envelope.Error.Code,
		Message: envelope.Error.Message,
	}
}
