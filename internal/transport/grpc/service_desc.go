package grpcx

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Сервис описан вручную: запросы и ответы: google.protobuf.Struct
// с теми же JSON-формами, что и у HTTP.
const ServiceName = "roomsync.v1.SyncService"

const (
	MethodGetRoomUpdates = "GetRoomUpdates"
	MethodUpdatePlayback = "UpdatePlayback"
	MethodSendMessage    = "SendMessage"
	MethodJoinRoom       = "JoinRoom"
	MethodLeaveRoom      = "LeaveRoom"
)

type SyncServiceServer interface {
	GetRoomUpdates(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdatePlayback(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SendMessage(context.Context, *structpb.Struct) (*structpb.Struct, error)
	JoinRoom(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LeaveRoom(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(SyncServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, ic grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if ic == nil {
				return call(srv.(SyncServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod(name),
			}
			return ic(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(SyncServiceServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

var SyncServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SyncServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(MethodGetRoomUpdates, SyncServiceServer.GetRoomUpdates),
		unaryMethod(MethodUpdatePlayback, SyncServiceServer.UpdatePlayback),
		unaryMethod(MethodSendMessage, SyncServiceServer.SendMessage),
		unaryMethod(MethodJoinRoom, SyncServiceServer.JoinRoom),
		unaryMethod(MethodLeaveRoom, SyncServiceServer.LeaveRoom),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "roomsync/v1/sync.proto",
}
