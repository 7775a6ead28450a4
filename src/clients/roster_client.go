package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"campus-attendance-svc/src/internal/config"
	"campus-attendance-svc/src/internal/models"

	"github.com/sirupsen/logrus"
)

// RosterCache is the slice of the cache service the roster client needs.
type RosterCache interface {
	GetCourseRoster(ctx context.Context, courseID string) ([]string, error)
	SaveCourseRoster(ctx context.Context, courseID string, members []string) error
}

// RosterClient answers enrollment checks against the directory service,
// caching full course rosters in redis between calls.
type RosterClient struct {
	baseURL    string
	httpClient *http.Client
	cache      RosterCache
}

func NewRosterClient(cfg *config.Configuration, cache RosterCache) *RosterClient {
	return &RosterClient{
		baseURL: cfg.Roster.URL,
		cache:   cache,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Roster.Timeout) * time.Second,
		},
	}
}

// IsEnrolled reports whether the identity is on the course roster.
func (c *RosterClient) IsEnrolled(ctx context.Context, courseID, identity string) (bool, error) {
	if c.cache != nil {
		if members, err := c.cache.GetCourseRoster(ctx, courseID); err == nil && members != nil {
			return contains(members, identity), nil
		}
	}

	members, err := c.fetchRoster(ctx, courseID)
	if err != nil {
		return false, err
	}

	if c.cache != nil {
		if cerr := c.cache.SaveCourseRoster(ctx, courseID, members); cerr != nil {
			logrus.WithError(cerr).WithField("course_id", courseID).Warn("Failed to cache course roster")
		}
	}

	return contains(members, identity), nil
}

func (c *RosterClient) fetchRoster(ctx context.Context, courseID string) ([]string, error) {
	url := fmt.Sprintf("%s/courses/%s/roster", c.baseURL, courseID)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call roster service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, models.ErrRosterNotFound
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("roster service returned status: %d", resp.StatusCode)
	}

	var response struct {
		Members []string `json:"members"`
		Status  string   `json:"status"`
		Message string   `json:"message"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode roster response: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"course_id": courseID,
		"members":   len(response.Members),
	}).Debug("Course roster fetched from directory service")

	return response.Members, nil
}

func contains(members []string, identity string) bool {
	for _, member := range members {
		if member == identity {
			return true
		}
	}
	return false
}
