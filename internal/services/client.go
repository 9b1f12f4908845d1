package services

import (
	"context"
	"net/url"

	"github.com/tidwall/gjson"

	"vccadmin/internal/vcc"
)

// SOAPClient 腳本流程使用的 SOAP 傳輸
type SOAPClient interface {
	SendSOAP(ctx context.Context, body string) (*vcc.Response, error)
}

// RESTClient 管理服務使用的 REST 操作
type RESTClient interface {
	GetJSON(ctx context.Context, path string, query url.Values) (gjson.Result, error)
	PutJSON(ctx context.Context, path string, body any) (gjson.Result, error)
	PostJSON(ctx context.Context, path string, body any) (gjson.Result, error)
	FirstEntity(ctx context.Context, resource, filter string) (gjson.Result, error)
	ListAll(ctx context.Context, resource string, opts vcc.ListOptions) ([]gjson.Result, error)
	Domain() (vcc.Domain, error)
}

// Client 同時提供 SOAP 與 REST 的平台客戶端
type Client interface {
	SOAPClient
	RESTClient
}

var _ Client = (*vcc.Client)(nil)

// quoteFilter 以單引號包住篩選值
func quoteFilter(field, value string) string {
	return field + "=='" + value + "'"
}
