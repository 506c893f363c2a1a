package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strconv"
)

// ErrCursorStalled is returned when the API hands back the cursor it was
// just given, which would otherwise page forever.
var ErrCursorStalled = errors.New("pagination cursor did not advance")

// cursor is a paging token. The forms API sends strings and the
// submissions API has been seen sending both strings and numbers.
type cursor string

func (c *cursor) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = cursor(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("paging cursor: %w", err)
	}
	*c = cursor(n.String())
	return nil
}

// paging mirrors the `paging.next` envelope shared by both endpoints.
type paging struct {
	Next *struct {
		After cursor `json:"after"`
		Link  string `json:"link,omitempty"`
	} `json:"next,omitempty"`
}

func (p *paging) after() string {
	if p == nil || p.Next == nil {
		return ""
	}
	return string(p.Next.After)
}

// pageFunc fetches the page at after ("" for the first page) and returns
// its items plus the cursor of the following page, "" when there is none.
type pageFunc[T any] func(ctx context.Context, after string) ([]T, string, error)

// paginate turns a pageFunc into a lazy, single-pass sequence. A page is
// only requested once the consumer has taken every item of the previous
// one, so breaking out of the range stops all further requests. The first
// error is yielded once and ends the sequence.
func paginate[T any](ctx context.Context, fetch pageFunc[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		cur := ""
		for page := 1; ; page++ {
			items, next, err := fetch(ctx, cur)
			if err != nil {
				yield(zero, fmt.Errorf("page %d: %w", page, err))
				return
			}
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}
			if next == "" {
				return
			}
			if next == cur {
				yield(zero, fmt.Errorf("page %d: %w (%q)", page, ErrCursorStalled, next))
				return
			}
			cur = next
		}
	}
}

// isEndOffset reports whether a numeric offset cursor marks the last page.
func isEndOffset(s string) bool {
	if s == "" {
		return true
	}
	n, err := strconv.ParseInt(s, 10, 64)
	return err == nil && n == 0
}
