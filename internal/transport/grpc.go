// ABOUTME: gRPC transport: unary Controller.Exchange carrying envelopes as protobuf Structs.
// ABOUTME: Service descriptor, server registration and the adapter-side client.

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/2389/pacman-gateway/internal/message"
)

const (
	controllerService = "pacman.v1.Controller"
	exchangeMethod    = "/" + controllerService + "/Exchange"
)

// controllerServer is the handler type behind controllerServiceDesc.
type controllerServer interface {
	Exchange(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var controllerServiceDesc = grpc.ServiceDesc{
	ServiceName: controllerService,
	HandlerType: (*controllerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Exchange", Handler: exchangeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pacman/v1/controller.proto",
}

func exchangeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(controllerServer).Exchange(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: exchangeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(controllerServer).Exchange(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// grpcController relays unary calls to an Exchanger.
type grpcController struct {
	exchanger Exchanger
	logger    *slog.Logger
}

// RegisterGRPC registers the Controller service on s.
func RegisterGRPC(s *grpc.Server, ex Exchanger, logger *slog.Logger) {
	s.RegisterService(&controllerServiceDesc, &grpcController{exchanger: ex, logger: logger})
}

// Exchange decodes the request, waits for the router's reply and encodes it.
func (c *grpcController) Exchange(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := structToEnvelope(in)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decoding envelope: %v", err)
	}

	reply, err := c.exchanger.Exchange(ctx, req)
	if err != nil {
		if errors.Is(err, ErrClosed) {
			return nil, status.Error(codes.Unavailable, "router unavailable")
		}
		if st := status.FromContextError(err); st.Code() != codes.Unknown {
			return nil, st.Err()
		}
		c.logger.Error("exchange failed", "agent_id", req.AgentID, "error", err)
		return nil, status.Errorf(codes.Internal, "exchange: %v", err)
	}

	out, err := envelopeToStruct(reply)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding reply: %v", err)
	}
	return out, nil
}

// GRPCClient is an adapter-side connection to the Controller service.
type GRPCClient struct {
	conn *grpc.ClientConn
}

// DialGRPC creates a client for target, e.g. "localhost:5555".
func DialGRPC(target string) (*GRPCClient, error) {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", target, err)
	}
	return &GRPCClient{conn: conn}, nil
}

// Exchange sends req and waits for its reply.
func (c *GRPCClient) Exchange(ctx context.Context, req message.Envelope) (message.Envelope, error) {
	in, err := envelopeToStruct(req)
	if err != nil {
		return message.Envelope{}, err
	}

	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, exchangeMethod, in, out); err != nil {
		return message.Envelope{}, fmt.Errorf("exchanging %s: %w", req.Type, err)
	}
	return structToEnvelope(out)
}

// Close closes the underlying connection.
func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func envelopeToStruct(env message.Envelope) (*structpb.Struct, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshaling envelope: %w", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("building struct: %w", err)
	}
	return out, nil
}

func structToEnvelope(in *structpb.Struct) (message.Envelope, error) {
	data, err := protojson.Marshal(in)
	if err != nil {
		return message.Envelope{}, fmt.Errorf("marshaling struct: %w", err)
	}
	var env message.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return message.Envelope{}, fmt.Errorf("unmarshaling envelope: %w", err)
	}
	return env, nil
}
