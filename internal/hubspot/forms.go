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
	formsPath     = "/marketing/v3/forms"
	formsPageSize = 100
)

// formsResponse mirrors one page of the forms listing.
type formsResponse struct {
	Results []model.Form `json:"results"`
	Paging  *paging      `json:"paging,omitempty"`
}

// Forms yields every form in the portal in the order the API returns
// them, following the `after` cursor until the API stops sending one.
func (c *Client) Forms(ctx context.Context) iter.Seq2[model.Form, error] {
	return paginate(ctx, c.formsPage)
}

// ListForms collects Forms into a slice. On error the partial listing is
// discarded.
func (c *Client) ListForms(ctx context.Context) ([]model.Form, error) {
	var forms []model.Form
	for f, err := range c.Forms(ctx) {
		if err != nil {
			return nil, err
		}
		forms = append(forms, f)
	}
	return forms, nil
}

func (c *Client) formsPage(ctx context.Context, after string) ([]model.Form, string, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(formsPageSize))
	if after != "" {
		q.Set("after", after)
	}

	var resp formsResponse
	if err := c.getJSON(ctx, formsPath, q, &resp); err != nil {
		return nil, "", err
	}

	next := resp.Paging.after()
	c.logger.Debug("forms page",
		zap.Int("count", len(resp.Results)),
		zap.String("next", next))
	return resp.Results, next, nil
}
