package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/openlearnhub/liveclass/domain"
)

// Client talks to the platform's identity and course-catalog API. This
// service only asks yes/no questions; everything else about users, courses
// and enrollments lives on the other side of this boundary.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a platform client against baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *Client) get(ctx context.Context, path string, out interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK && out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding platform response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// IsAdmin reports whether the user carries the platform admin role. An
// unknown user is simply not an admin.
func (c *Client) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var user struct {
		Role string `json:"role"`
	}
	status, err := c.get(ctx, "/users/"+url.PathEscape(userID), &user)
	if err != nil {
		return false, err
	}
	if status == http.StatusNotFound {
		return false, nil
	}
	if status != http.StatusOK {
		return false, fmt.Errorf("platform user lookup returned status %d", status)
	}
	return user.Role == "admin", nil
}

// IsCourseInstructor reports whether userID teaches courseID.
func (c *Client) IsCourseInstructor(ctx context.Context, userID, courseID string) (bool, error) {
	var course struct {
		InstructorID string `json:"instructorId"`
	}
	status, err := c.get(ctx, "/courses/"+url.PathEscape(courseID), &course)
	if err != nil {
		return false, err
	}
	if status == http.StatusNotFound {
		return false, nil
	}
	if status != http.StatusOK {
		return false, fmt.Errorf("platform course lookup returned status %d", status)
	}
	return course.InstructorID == userID, nil
}

// IsEnrolled reports whether userID has an enrollment record for courseID.
func (c *Client) IsEnrolled(ctx context.Context, userID, courseID string) (bool, error) {
	path := "/courses/" + url.PathEscape(courseID) + "/enrollments/" + url.PathEscape(userID)
	status, err := c.get(ctx, path, nil)
	if err != nil {
		return false, err
	}
	switch status {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("platform enrollment lookup returned status %d", status)
	}
}

// CourseExists resolves courseID against the catalog.
func (c *Client) CourseExists(ctx context.Context, courseID string) (bool, error) {
	status, err := c.get(ctx, "/courses/"+url.PathEscape(courseID), nil)
	if err != nil {
		return false, err
	}
	switch status {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("platform course lookup returned status %d", status)
	}
}

var (
	_ domain.AccessPolicy    = (*Client)(nil)
	_ domain.CourseDirectory = (*Client)(nil)
)
