package hubspot

import (
	"context"
	"iter"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"formexport/internal/model"
)

const (
	submissionsPath = "/form-integrations/v1/submissions/forms/"
	// Kept small to stay well inside the API rate limits.
	submissionsPageSize = 50
)

// submissionsResponse mirrors one page of a form's submissions.
type submissionsResponse struct {
	Results []model.Submission `json:"results"`
	Paging  *paging            `json:"paging,omitempty"`
}

// Submissions yields the submissions of one form, newest first as the API
// documents it. Every call starts a fresh walk from offset zero; paging
// ends when the API reports no offset, or offset 0, for the next page.
func (c *Client) Submissions(ctx context.Context, formID string) iter.Seq2[model.Submission, error] {
	return paginate(ctx, func(ctx context.Context, offset string) ([]model.Submission, string, error) {
		return c.submissionsPage(ctx, formID, offset)
	})
}

func (c *Client) submissionsPage(ctx context.Context, formID, offset string) ([]model.Submission, string, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(submissionsPageSize))
	if offset != "" {
		q.Set("after", offset)
	}

	var resp submissionsResponse
	if err := c.getJSON(ctx, submissionsPath+url.PathEscape(formID), q, &resp); err != nil {
		return nil, "", err
	}

	next := resp.Paging.after()
	if isEndOffset(next) {
		next = ""
	}
	c.logger.Debug("submissions page",
		zap.String("form_id", formID),
		zap.Int("count", len(resp.Results)),
		zap.String("next", next))
	return resp.Results, next, nil
}
