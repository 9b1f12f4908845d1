package vcc

import (
	"context"
	"fmt"
	"time"
)

// maxBootstrapBackoff 退避上限
const maxBootstrapBackoff = 30 * time.Second

// DomainProbe 描述如何向 SOAP 介面查詢網域資訊
type DomainProbe interface {
	Request() string
	ParseDomain(body []byte) (Domain, error)
}

// Bootstrap 查詢網域 ID 與名稱，失敗時以指數退避重試
//
// 重試次數受 bootstrap_max_attempts 限制，context 取消時立即返回。
// 認證失敗不重試。
func (c *Client) Bootstrap(ctx context.Context, probe DomainProbe) (Domain, error) {
	backoff := c.config.BootstrapInterval
	maxAttempts := c.config.BootstrapMaxAttempts
	startTime := time.Now()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return Domain{}, NewError(KindTransport, "bootstrap", 0,
					fmt.Errorf("cancelled after %d attempts: %w", attempt-1, ctx.Err()))
			case <-time.After(backoff):
			}
			// 指數退避
			backoff = min(backoff*2, maxBootstrapBackoff)
		}

		c.logger.LogBootstrapAttempt(attempt, maxAttempts, backoff)

		domain, err := c.probeDomain(ctx, probe)
		if err == nil {
			c.setDomain(domain)
			c.logger.LogBootstrapSuccess(domain.ID, domain.Name, attempt)
			return domain, nil
		}
		lastErr = err
		c.logger.LogBootstrapFailed(attempt, err)

		if KindOf(err) == KindAuth {
			return Domain{}, err
		}
		if ctx.Err() != nil {
			return Domain{}, NewError(KindTransport, "bootstrap", 0,
				fmt.Errorf("cancelled after %d attempts: %w", attempt, ctx.Err()))
		}
	}

	c.logger.LogBootstrapGiveUp(maxAttempts, time.Since(startTime))
	return Domain{}, fmt.Errorf("bootstrap gave up after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) probeDomain(ctx context.Context, probe DomainProbe) (Domain, error) {
	resp, err := c.SendSOAP(ctx, probe.Request())
	if err != nil {
		return Domain{}, err
	}
	return probe.ParseDomain(resp.Body)
}
