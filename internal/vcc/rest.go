package vcc

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"
)

// ListOptions 列表查詢選項
type ListOptions struct {
	Fields string // fields=id,name
	Filter string // filter=name=='x'
	Sort   string
	Order  string
	Limit  int // 每頁筆數，0 使用設定值
}

func (o ListOptions) values() url.Values {
	q := url.Values{}
	if o.Fields != "" {
		q.Set("fields", o.Fields)
	}
	if o.Filter != "" {
		q.Set("filter", o.Filter)
	}
	if o.Sort != "" {
		q.Set("sort", o.Sort)
	}
	if o.Order != "" {
		q.Set("order", o.Order)
	}
	return q
}

// GetJSON 讀取 REST 資源並解析為 JSON
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values) (gjson.Result, error) {
	resp, err := c.SendREST(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return gjson.Result{}, err
	}
	return parseJSON("get "+path, resp)
}

// PutJSON 以 PUT 更新 REST 資源
func (c *Client) PutJSON(ctx context.Context, path string, body any) (gjson.Result, error) {
	resp, err := c.SendREST(ctx, http.MethodPut, path, nil, body)
	if err != nil {
		return gjson.Result{}, err
	}
	return parseJSONLenient(resp), nil
}

// PostJSON 以 POST 建立 REST 資源
func (c *Client) PostJSON(ctx context.Context, path string, body any) (gjson.Result, error) {
	resp, err := c.SendREST(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return gjson.Result{}, err
	}
	return parseJSONLenient(resp), nil
}

// FirstEntity 以篩選條件查詢資源並返回第一筆，無結果時返回 NotFound
func (c *Client) FirstEntity(ctx context.Context, resource, filter string) (gjson.Result, error) {
	q := url.Values{}
	q.Set("filter", filter)
	doc, err := c.GetJSON(ctx, resource, q)
	if err != nil {
		return gjson.Result{}, err
	}
	first := doc.Get("entities.0")
	if !first.Exists() {
		return gjson.Result{}, Errorf(KindNotFound, "get "+resource, "no %s matches %s", resource, filter)
	}
	return first, nil
}

// ListAll 分頁讀取資源的所有項目
//
// 每頁以 limit/offset 請求，當該頁 resultsCount 等於 limit 時繼續；
// 回應帶有 totalCount 時，收滿該數量即停止。
func (c *Client) ListAll(ctx context.Context, resource string, opts ListOptions) ([]gjson.Result, error) {
	limit := opts.Limit
	if limit <= 0 || limit > c.config.PageSize {
		limit = c.config.PageSize
	}

	var items []gjson.Result
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return items, NewError(KindTransport, "list "+resource, 0, err)
		}

		q := opts.values()
		q.Set("limit", strconv.Itoa(limit))
		q.Set("offset", strconv.Itoa(offset))

		page, err := c.GetJSON(ctx, resource, q)
		if err != nil {
			return items, err
		}

		entities := page.Get("entities").Array()
		items = append(items, entities...)

		count := len(entities)
		if rc := page.Get("resultsCount"); rc.Exists() {
			count = int(rc.Int())
		}
		if count < limit || len(entities) == 0 {
			break
		}
		if total := page.Get("totalCount"); total.Exists() && len(items) >= int(total.Int()) {
			break
		}
		offset += limit
	}
	return items, nil
}

func parseJSON(op string, resp *Response) (gjson.Result, error) {
	if !gjson.ValidBytes(resp.Body) {
		return gjson.Result{}, NewError(KindParse, op, resp.Status, fmt.Errorf("%w: response is not valid JSON", ErrParse))
	}
	return gjson.ParseBytes(resp.Body), nil
}

// parseJSONLenient 寫入操作的回應可能為空
func parseJSONLenient(resp *Response) gjson.Result {
	if len(resp.Body) == 0 || !gjson.ValidBytes(resp.Body) {
		return gjson.Result{}
	}
	return gjson.ParseBytes(resp.Body)
}
