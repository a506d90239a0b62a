package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Sender delivers one text message; a nil error means the gateway accepted it.
type Sender interface {
	Send(ctx context.Context, to, message string) error
}

// SMSRequest gateway request body
type SMSRequest struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Message string `json:"message"`
}

// SMSResponse gateway response body
type SMSResponse struct {
	Status    string `json:"status"`
	MessageID string `json:"message_id"`
	Message   string `json:"message"`
}

// Sends are POSTs the gateway may already have acted on, so only failures to
// connect are retried.
const (
	smsDialAttempts  = 3
	smsDialRetryWait = 500 * time.Millisecond
)

// HTTPSMSSender posts to a JSON SMS gateway (POST {base}/sms/send, bearer API key).
type HTTPSMSSender struct {
	httpClient *resty.Client
	senderID   string
	retryWait  time.Duration
	logger     *zap.Logger
}

func NewHTTPSMSSender(baseURL, apiKey, senderID string, timeout time.Duration, logger *zap.Logger) *HTTPSMSSender {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &HTTPSMSSender{
		httpClient: client,
		senderID:   senderID,
		retryWait:  smsDialRetryWait,
		logger:     logger,
	}
}

func (s *HTTPSMSSender) Send(ctx context.Context, to, message string) error {
	var (
		response SMSResponse
		resp     *resty.Response
		err      error
	)
	for attempt := 1; attempt <= smsDialAttempts; attempt++ {
		resp, err = s.httpClient.R().
			SetContext(ctx).
			SetBody(SMSRequest{To: to, From: s.senderID, Message: message}).
			SetResult(&response).
			SetError(&response).
			Post("/sms/send")
		if err == nil || !isDialError(err) || attempt == smsDialAttempts {
			break
		}
		s.logger.Warn("SMS gateway unreachable, retrying", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to call SMS gateway: %w", ctx.Err())
		case <-time.After(s.retryWait):
		}
	}
	if err != nil {
		s.logger.Error("SMS gateway call failed", zap.String("to", to), zap.Error(err))
		return fmt.Errorf("failed to call SMS gateway: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("SMS gateway returned %d: %s", resp.StatusCode(), response.Message)
	}
	if response.Status != "success" {
		return fmt.Errorf("SMS gateway rejected message: %s", response.Message)
	}

	s.logger.Debug("SMS accepted", zap.String("to", to), zap.String("message_id", response.MessageID))
	return nil
}

// isDialError reports whether the request failed before reaching the gateway.
func isDialError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// LogSender only logs; used when no gateway is configured.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, to, message string) error {
	s.logger.Info("SMS (not sent, gateway disabled)", zap.String("to", to), zap.String("message", message))
	return nil
}
