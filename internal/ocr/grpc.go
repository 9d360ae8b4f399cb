package ocr

import (
	"context"
	"image"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/wrapperspb"

	apperrors "github.com/GriffinCanCode/screenlog/internal/errors"
	"github.com/GriffinCanCode/screenlog/internal/resilience"
	"github.com/GriffinCanCode/screenlog/internal/trace"
)

// Wire names of the text extraction service. Requests carry PNG bytes in a
// BytesValue, responses carry the text in a StringValue.
const (
	ServiceName       = "screenlog.OCRService"
	ExtractTextMethod = "/" + ServiceName + "/ExtractText"
)

const (
	keepaliveTime      = 30 * time.Second
	keepaliveTimeout   = 5 * time.Second
	healthCheckTimeout = 2 * time.Second
)

// Client calls a remote extraction service.
type Client struct {
	conn    *grpc.ClientConn
	timeout time.Duration
	retry   resilience.RetryConfig
}

// Dial creates a client for addr. The connection is established lazily.
func Dial(addr string, timeout time.Duration, opts ...grpc.DialOption) (*Client, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(trace.UnaryClientInterceptor()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:    keepaliveTime,
			Timeout: keepaliveTimeout,
		}),
	}
	conn, err := grpc.NewClient(addr, append(base, opts...)...)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeOCRUnavailable, "dial ocr service %s", addr)
	}
	return &Client{conn: conn, timeout: timeout, retry: resilience.DefaultRetryConfig()}, nil
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) Extract(ctx context.Context, img image.Image) (string, error) {
	data, err := encodePNG(img)
	if err != nil {
		return "", err
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var text string
	err = resilience.Retry(ctx, c.retry, func() error {
		reply := &wrapperspb.StringValue{}
		if err := c.conn.Invoke(ctx, ExtractTextMethod, wrapperspb.Bytes(data), reply); err != nil {
			return apperrors.FromGRPCError(err)
		}
		text = reply.GetValue()
		return nil
	})
	if err != nil {
		return "", err
	}
	return normalize(text), nil
}

// Healthy asks the service's health endpoint whether extraction is serving.
func (c *Client) Healthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	resp, err := healthpb.NewHealthClient(c.conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return apperrors.FromGRPCError(err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return apperrors.Newf(apperrors.CodeOCRUnavailable, "ocr service status %s", resp.GetStatus())
	}
	return nil
}
