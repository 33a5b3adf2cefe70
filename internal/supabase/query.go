package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// QueryBuilder builds one PostgREST request.
type QueryBuilder struct {
	client  *Client
	table   string
	columns string
	filters url.Values
	orders  []string
	limit   int
	single  bool
}

func (q *QueryBuilder) Select(columns string) *QueryBuilder {
	q.columns = columns
	return q
}

func (q *QueryBuilder) filter(column, op, value string) *QueryBuilder {
	if q.filters == nil {
		q.filters = url.Values{}
	}
	q.filters.Add(column, op+"."+value)
	return q
}

func (q *QueryBuilder) Eq(column, value string) *QueryBuilder { return q.filter(column, "eq", value) }

func (q *QueryBuilder) Gt(column, value string) *QueryBuilder { return q.filter(column, "gt", value) }

func (q *QueryBuilder) Order(column string, ascending bool) *QueryBuilder {
	dir := "asc"
	if !ascending {
		dir = "desc"
	}
	q.orders = append(q.orders, column+"."+dir)
	return q
}

func (q *QueryBuilder) Limit(n int) *QueryBuilder {
	q.limit = n
	return q
}

// Single asks PostgREST for exactly one object; zero rows becomes ErrNoRows.
func (q *QueryBuilder) Single() *QueryBuilder {
	q.single = true
	return q
}

func (q *QueryBuilder) path() string { return "/rest/v1/" + q.table }

func (q *QueryBuilder) request(ctx context.Context) *resty.Request {
	params := url.Values{}
	for k, vs := range q.filters {
		for _, v := range vs {
			params.Add(k, v)
		}
	}
	if q.columns != "" {
		params.Set("select", q.columns)
	}
	if len(q.orders) > 0 {
		params.Set("order", strings.Join(q.orders, ","))
	}
	if q.limit > 0 {
		params.Set("limit", strconv.Itoa(q.limit))
	}
	req := q.client.http.R().SetContext(ctx).SetQueryParamsFromValues(params)
	if q.single {
		req.SetHeader("Accept", "application/vnd.pgrst.object+json")
	}
	return req
}

// Execute runs a SELECT and decodes the body into out.
func (q *QueryBuilder) Execute(ctx context.Context, out any) error {
	resp, err := q.request(ctx).Get(q.path())
	if err != nil {
		return fmt.Errorf("supabase select %s: %w", q.table, err)
	}
	if resp.IsError() {
		return q.fail("select", resp)
	}
	return decodeBody(resp, out)
}

// Insert posts rows and decodes the created representation into out (may be nil).
func (q *QueryBuilder) Insert(ctx context.Context, rows any, out any) error {
	prefer := "return=minimal"
	if out != nil {
		prefer = "return=representation"
	}
	resp, err := q.request(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Prefer", prefer).
		SetBody(rows).
		Post(q.path())
	if err != nil {
		return fmt.Errorf("supabase insert %s: %w", q.table, err)
	}
	if resp.IsError() {
		return q.fail("insert", resp)
	}
	return decodeBody(resp, out)
}

// InsertIgnoreDuplicates inserts rows, skipping any that collide on the
// primary key. out receives only the rows actually written.
func (q *QueryBuilder) InsertIgnoreDuplicates(ctx context.Context, rows any, out any) error {
	resp, err := q.request(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Prefer", "resolution=ignore-duplicates,return=representation").
		SetBody(rows).
		Post(q.path())
	if err != nil {
		return fmt.Errorf("supabase upsert %s: %w", q.table, err)
	}
	if resp.IsError() {
		return q.fail("upsert", resp)
	}
	return decodeBody(resp, out)
}

// Update patches every row matching the filters and decodes the updated rows into out.
func (q *QueryBuilder) Update(ctx context.Context, patch any, out any) error {
	if len(q.filters) == 0 {
		return errors.New("supabase: refusing update without filters")
	}
	resp, err := q.request(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Prefer", "return=representation").
		SetBody(patch).
		Patch(q.path())
	if err != nil {
		return fmt.Errorf("supabase update %s: %w", q.table, err)
	}
	if resp.IsError() {
		return q.fail("update", resp)
	}
	return decodeBody(resp, out)
}

func (q *QueryBuilder) fail(op string, resp *resty.Response) error {
	err := decodeError(resp)
	var apiErr *APIError
	if errors.As(err, &apiErr) && q.single &&
		(apiErr.Code == codeSingularNoRows || apiErr.Status == http.StatusNotAcceptable) {
		return ErrNoRows
	}
	q.client.logger.Debug("PostgREST request failed",
		zap.String("op", op),
		zap.String("table", q.table),
		zap.Int("status_code", resp.StatusCode()),
		zap.Error(err),
	)
	return err
}
