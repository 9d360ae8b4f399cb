package ocr

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/wrapperspb"

	apperrors "github.com/GriffinCanCode/screenlog/internal/errors"
	"github.com/GriffinCanCode/screenlog/internal/trace"
)

// service serves any Extractor over gRPC.
type service struct {
	ext Extractor
}

func (s *service) extractText(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	img, err := decodePNG(in.GetValue())
	if err != nil {
		return nil, appStatus(err)
	}
	text, err := s.ext.Extract(ctx, img)
	if err != nil {
		trace.Logger(ctx).Warn("remote extraction failed", "error", err)
		return nil, appStatus(err)
	}
	return wrapperspb.String(text), nil
}

func appStatus(err error) error {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Wrap(err, apperrors.CodeOCRExtractFailed, "extract")
	}
	return appErr.GRPCStatus().Err()
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "ExtractText",
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(wrapperspb.BytesValue)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(*service)
			if interceptor == nil {
				return s.extractText(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ExtractTextMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return s.extractText(ctx, req.(*wrapperspb.BytesValue))
			})
		},
	}},
	Metadata: "screenlog/ocr",
}

// NewServer returns a gRPC server exposing ext and a health endpoint.
func NewServer(ext Extractor) *grpc.Server {
	srv := grpc.NewServer(grpc.UnaryInterceptor(trace.UnaryServerInterceptor()))
	srv.RegisterService(&serviceDesc, &service{ext: ext})

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	slog.Debug("ocr service registered", "service", ServiceName)
	return srv
}
