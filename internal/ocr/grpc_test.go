package ocr

import (
	"context"
	"errors"
	"image"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"

	apperrors "github.com/GriffinCanCode/screenlog/internal/errors"
	"github.com/GriffinCanCode/screenlog/internal/trace"
)

func startService(t *testing.T, ext Extractor) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewServer(ext)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	client, err := Dial("passthrough:///bufnet", 0,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	client.retry.MaxRetries = 1
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestClientExtract(t *testing.T) {
	var gotSize image.Point
	var gotTrace string
	client := startService(t, ExtractorFunc(func(ctx context.Context, img image.Image) (string, error) {
		gotSize = img.Bounds().Size()
		if tc, ok := trace.FromContext(ctx); ok {
			gotTrace = tc.TraceID
		}
		return " remote text \n", nil
	}))

	ctx, span := trace.StartSpan(context.Background(), "ocr")
	text, err := client.Extract(ctx, testImage())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "remote text" {
		t.Errorf("Extract() = %q", text)
	}
	if gotSize != image.Pt(16, 8) {
		t.Errorf("server saw %v", gotSize)
	}
	if gotTrace != span.Ctx.TraceID {
		t.Errorf("server trace = %q, want %q", gotTrace, span.Ctx.TraceID)
	}
}

func TestClientExtractErrorCodes(t *testing.T) {
	client := startService(t, ExtractorFunc(func(context.Context, image.Image) (string, error) {
		return "", apperrors.New(apperrors.CodeOCRExtractFailed, "engine crashed").WithMetadata("engine", "tesseract")
	}))

	_, err := client.Extract(context.Background(), testImage())
	if !apperrors.IsCode(err, apperrors.CodeOCRExtractFailed) {
		t.Fatalf("Extract() error = %v, want OCR_EXTRACT_FAILED", err)
	}
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Metadata["engine"] != "tesseract" {
		t.Errorf("metadata lost: %v", err)
	}
}

func TestClientHealthy(t *testing.T) {
	client := startService(t, ExtractorFunc(func(context.Context, image.Image) (string, error) { return "", nil }))
	if err := client.Healthy(context.Background()); err != nil {
		t.Errorf("Healthy() = %v", err)
	}
}

func TestServerRejectsGarbage(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	srv := NewServer(ExtractorFunc(func(context.Context, image.Image) (string, error) { return "x", nil }))
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	err = conn.Invoke(context.Background(), ExtractTextMethod, wrapperspb.Bytes([]byte("not a png")), &wrapperspb.StringValue{})
	if got := apperrors.FromGRPCError(err).Code; got != apperrors.CodeInvalidArgument {
		t.Errorf("code = %s, want INVALID_ARGUMENT", got)
	}
}

