package webhook

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"go-inventory-uom/internal/config"
	"go-inventory-uom/internal/model"
)

// Client posts finished transformations to an external system (ERP, chat bot).
type Client struct {
	httpClient *resty.Client
	url        string
}

// NewClient builds a resty-backed webhook client. It returns nil when no URL is configured.
func NewClient(cfg config.WebhookConfig) *Client {
	if cfg.URL == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	restyClient := resty.New()
	restyClient.
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond)

	return &Client{httpClient: restyClient, url: cfg.URL}
}

// Payload is the body sent for every transformation.
type Payload struct {
	Event  string                     `json:"event"`
	Record model.TransformationRecord `json:"record"`
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) NotifyTransformation(ctx context.Context, record model.TransformationRecord) error {
	event := "transformation.completed"
	if record.Status == model.StatusFailed {
		event = "transformation.failed"
	}

	apiErr := new(apiError)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(Payload{Event: event, Record: record}).
		SetError(apiErr).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("post transformation webhook: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		message := apiErr.Message
		if message == "" {
			message = apiErr.Error
		}
		return fmt.Errorf("webhook error: status=%d, message=%s", resp.StatusCode(), message)
	}
	return nil
}
