package grpcx

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/cwrk-planet/room-sync/internal/auth"
	"github.com/cwrk-planet/room-sync/internal/domain"
	"github.com/cwrk-planet/room-sync/internal/service"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const mdAuthorization = "authorization"

type Server struct {
	svc       *service.SyncService
	validator auth.Validator
}

var _ SyncServiceServer = (*Server)(nil)

func NewServer(svc *service.SyncService, validator auth.Validator) *Server {
	return &Server{svc: svc, validator: validator}
}

// NewGRPCServer собирает grpc.Server с интерцепторами логирования/recovery.
func NewGRPCServer(deadlineGuard time.Duration, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor(deadlineGuard)),
		grpc.ChainStreamInterceptor(StreamServerInterceptor()),
	}, opts...)
	return grpc.NewServer(opts...)
}

// Register вешает SyncService и стандартный health на grpcServer.
func Register(grpcServer *grpc.Server, s *Server) *health.Server {
	grpcServer.RegisterService(&SyncServiceDesc, s)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, hs)
	return hs
}

// -------- helpers --------

func (s *Server) userFromMD(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing metadata")
	}
	// authorization: Bearer <access_token>
	authz := first(md.Get(mdAuthorization))
	if authz == "" {
		return "", status.Error(codes.Unauthenticated, "missing authorization")
	}
	if len(authz) <= 7 || !strings.EqualFold(authz[:7], "bearer ") {
		return "", status.Error(codes.Unauthenticated, "invalid authorization")
	}

	userID, err := s.validator.Validate(ctx, strings.TrimSpace(authz[7:]))
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return "", status.Error(codes.Unauthenticated, "token expired")
		}
		return "", status.Error(codes.Unauthenticated, "invalid token")
	}
	return userID, nil
}

func first(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrEmptyRoomID),
		errors.Is(err, domain.ErrEmptyUserID),
		errors.Is(err, domain.ErrInvalidSince),
		errors.Is(err, domain.ErrEmptyContent):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// decode раскладывает Struct в типизированный запрос через JSON.
func decode(in *structpb.Struct, dst any) error {
	raw, err := json.Marshal(in.AsMap())
	if err != nil {
		return status.Error(codes.InvalidArgument, "invalid request")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return status.Error(codes.InvalidArgument, "invalid request: "+err.Error())
	}
	return nil
}

func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

type roomRequest struct {
	RoomID string `json:"roomId"`
}

type updatesRequest struct {
	RoomID string `json:"roomId"`
	Since  *int64 `json:"since"`
}

type playbackRequest struct {
	RoomID string `json:"roomId"`
	domain.PlaybackInput
}

type messageRequest struct {
	RoomID  string `json:"roomId"`
	Content string `json:"content"`
}

// -------- methods --------

func (s *Server) GetRoomUpdates(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if _, err := s.userFromMD(ctx); err != nil {
		return nil, err
	}
	var req updatesRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	upd, err := s.svc.GetRoomUpdates(ctx, req.RoomID, req.Since)
	if err != nil {
		return nil, mapErr(err)
	}
	return toStruct(upd)
}

func (s *Server) UpdatePlayback(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := s.userFromMD(ctx)
	if err != nil {
		return nil, err
	}
	var req playbackRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	state, err := s.svc.UpdatePlayback(ctx, req.RoomID, userID, req.PlaybackInput)
	if err != nil {
		return nil, mapErr(err)
	}
	return toStruct(map[string]any{"success": true, "playbackState": state})
}

func (s *Server) SendMessage(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := s.userFromMD(ctx)
	if err != nil {
		return nil, err
	}
	var req messageRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	msg, err := s.svc.SendMessage(ctx, req.RoomID, userID, req.Content)
	if err != nil {
		return nil, mapErr(err)
	}
	return toStruct(map[string]any{"success": true, "message": msg})
}

func (s *Server) JoinRoom(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := s.userFromMD(ctx)
	if err != nil {
		return nil, err
	}
	var req roomRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	users, err := s.svc.JoinRoom(ctx, req.RoomID, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	return toStruct(map[string]any{"success": true, "roomId": req.RoomID, "usersInRoom": users})
}

func (s *Server) LeaveRoom(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := s.userFromMD(ctx)
	if err != nil {
		return nil, err
	}
	var req roomRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if err := s.svc.LeaveRoom(ctx, req.RoomID, userID); err != nil {
		return nil, mapErr(err)
	}
	return toStruct(map[string]any{"success": true, "roomId": req.RoomID})
}
