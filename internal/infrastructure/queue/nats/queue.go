package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/dalylak/internal/core/domain"
	"github.com/kirillkom/dalylak/internal/infrastructure/resilience"
)

const workerQueueGroup = "index-workers"

// publishPolicy retries while the client is between servers and gives up on
// requests the server would never accept.
var publishPolicy = resilience.Policy{
	Transient: func(err error) bool {
		return errors.Is(err, nats.ErrNoServers) ||
			errors.Is(err, nats.ErrTimeout) ||
			errors.Is(err, nats.ErrConnectionClosed) ||
			errors.Is(err, nats.ErrConnectionReconnecting) ||
			errors.Is(err, nats.ErrDisconnected)
	},
	Ignored: func(err error) bool {
		return errors.Is(err, nats.ErrBadSubject) || errors.Is(err, nats.ErrMaxPayload)
	},
}

// Queue carries project index jobs between the API/CLI and the worker.
type Queue struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
	logger   *slog.Logger
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("dalylak"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
		logger:   logger,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishIndexRequest(ctx context.Context, req domain.IndexRequest) error {
	if strings.TrimSpace(req.ProjectID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "publish index request", fmt.Errorf("project id is required"))
	}
	payload, err := encodeIndexRequest(req)
	if err != nil {
		return err
	}

	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, publishPolicy)
	} else {
		err = call(ctx)
	}
	return publishPolicy.Temporary("publish index request", err)
}

// SubscribeIndexRequests blocks until ctx is done, then drains the subscription.
func (q *Queue) SubscribeIndexRequests(ctx context.Context, handler func(context.Context, domain.IndexRequest) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, workerQueueGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		req, err := decodeIndexRequest(msg.Data)
		if err != nil {
			q.logger.Error("index_request_decode_failed", "error", err)
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, req); err != nil {
			q.logger.Error("index_job_failed", "project_id", req.ProjectID, "reset", req.Reset, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func encodeIndexRequest(req domain.IndexRequest) ([]byte, error) {
	req.ProjectID = strings.TrimSpace(req.ProjectID)
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode index request: %w", err)
	}
	return payload, nil
}

// decodeIndexRequest also accepts a bare project id for hand-published jobs.
func decodeIndexRequest(data []byte) (domain.IndexRequest, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return domain.IndexRequest{}, domain.WrapError(domain.ErrInvalidInput, "decode index request", fmt.Errorf("empty payload"))
	}
	if !strings.HasPrefix(trimmed, "{") {
		return domain.IndexRequest{ProjectID: trimmed}, nil
	}
	var req domain.IndexRequest
	if err := json.Unmarshal([]byte(trimmed), &req); err != nil {
		return domain.IndexRequest{}, domain.WrapError(domain.ErrInvalidInput, "decode index request", err)
	}
	req.ProjectID = strings.TrimSpace(req.ProjectID)
	if req.ProjectID == "" {
		return domain.IndexRequest{}, domain.WrapError(domain.ErrInvalidInput, "decode index request", fmt.Errorf("project id is required"))
	}
	return req, nil
}
