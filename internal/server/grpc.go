package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/engagement-analyzer/constants"
	"github.com/joseph-ayodele/engagement-analyzer/internal/analysis"
	"github.com/joseph-ayodele/engagement-analyzer/internal/common"
)

const analysisServiceName = "engagement.v1.AnalysisService"

// AnalysisServer is the gRPC analysis surface. Messages are free-form structs
// carrying the same fields as the HTTP JSON bodies.
type AnalysisServer interface {
	Analyze(context.Context, *structpb.Struct) (*structpb.Struct, error)
	QuickAnalyze(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func unaryHandler(method string, call func(AnalysisServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AnalysisServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + analysisServiceName + "/" + method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AnalysisServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var AnalysisServiceDesc = grpc.ServiceDesc{
	ServiceName: analysisServiceName,
	HandlerType: (*AnalysisServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Analyze", Handler: unaryHandler("Analyze", AnalysisServer.Analyze)},
		{MethodName: "QuickAnalyze", Handler: unaryHandler("QuickAnalyze", AnalysisServer.QuickAnalyze)},
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterAnalysisServer(s grpc.ServiceRegistrar, srv AnalysisServer) {
	s.RegisterService(&AnalysisServiceDesc, srv)
}

type AnalysisService struct {
	svc    *analysis.Service
	logger *slog.Logger
}

func NewAnalysisService(svc *analysis.Service, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisService{svc: svc, logger: logger}
}

func (s *AnalysisService) Analyze(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.run(ctx, analysis.Input{
		Text:        field(req, "text"),
		ContentType: field(req, "contentType"),
		Platform:    field(req, "platform"),
		Mode:        constants.ModeFull,
	})
}

func (s *AnalysisService) QuickAnalyze(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.run(ctx, analysis.Input{Text: field(req, "text"), Mode: constants.ModeQuick})
}

func (s *AnalysisService) run(ctx context.Context, in analysis.Input) (*structpb.Struct, error) {
	res, err := s.svc.Analyze(ctx, in)
	if err != nil {
		s.logger.Warn("grpc.analysis.failed", "req_id", common.RequestIDFromContext(ctx), "code", common.CodeOf(err), "error", err)
		return nil, common.ToGRPC(err)
	}
	out, err := toStruct(res)
	if err != nil {
		s.logger.Error("grpc.analysis.encode_failed", "error", err)
		return nil, common.ToGRPC(common.NewAppError(common.CodeInternal, "Failed to encode analysis", common.ErrInternal, err))
	}
	return out, nil
}

func field(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	if v, ok := s.GetFields()[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// RequestIDInterceptor carries x-request-id from metadata into the context and logs each call.
func RequestIDInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		var reqID string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ids := md.Get("x-request-id"); len(ids) > 0 {
				reqID = ids[0]
			}
		}
		if reqID == "" {
			ctx, reqID = common.EnsureRequestID(ctx)
		} else {
			ctx = common.WithRequestID(ctx, reqID)
		}
		resp, err := handler(ctx, req)
		logger.Info("grpc.call",
			"req_id", reqID,
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}

// NewGRPCServer wires the analysis service, health and reflection.
func NewGRPCServer(svc *analysis.Service, logger *slog.Logger) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	gs := grpc.NewServer(grpc.UnaryInterceptor(RequestIDInterceptor(logger)))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	RegisterAnalysisServer(gs, NewAnalysisService(svc, logger))
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(analysisServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(gs)
	return gs, hs
}
