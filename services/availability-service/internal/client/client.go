// Package client calls availability.v1.AvailabilityService over gRPC.
package client

import (
	"context"

	"github.com/litespace/availability/libs/grpcx"
	"github.com/litespace/availability/services/availability-service/internal/grpcserver"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

type Client struct {
	conn *grpc.ClientConn
}

func NewClient(addr string) (*Client, error) {
	conn, err := grpcx.Dial(addr, grpcx.DialOptions{})
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) ListBookableSlots(ctx context.Context, req grpcserver.SlotsRequest) (grpcserver.SlotsResponse, error) {
	in, err := req.Struct()
	if err != nil {
		return grpcserver.SlotsResponse{}, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, grpcserver.MethodListBookableSlots, in, out); err != nil {
		return grpcserver.SlotsResponse{}, err
	}
	return grpcserver.ParseSlotsResponse(out)
}

func (c *Client) CheckRuleOverlap(ctx context.Context, req grpcserver.OverlapRequest) (grpcserver.OverlapResponse, error) {
	in, err := req.Struct()
	if err != nil {
		return grpcserver.OverlapResponse{}, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, grpcserver.MethodCheckRuleOverlap, in, out); err != nil {
		return grpcserver.OverlapResponse{}, err
	}
	return grpcserver.ParseOverlapResponse(out), nil
}
