package grpcserver

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/litespace/availability/libs/timex"
	"github.com/litespace/availability/services/availability-service/internal/model"
	"github.com/litespace/availability/services/availability-service/internal/rules"
	"github.com/litespace/availability/services/availability-service/internal/schedule"
	"github.com/litespace/availability/services/availability-service/internal/slots"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type SlotQuerier interface {
	Bookable(ctx context.Context, q slots.Query) (slots.Result, error)
}

type OverlapChecker interface {
	CheckOverlap(ctx context.Context, userID string, in rules.Input) (model.Rule, bool, error)
}

type server struct {
	slots  SlotQuerier
	rules  OverlapChecker
	logger *slog.Logger
}

func Register(grpcServer *grpc.Server, sq SlotQuerier, oc OverlapChecker, logger *slog.Logger) {
	grpcServer.RegisterService(&ServiceDesc, &server{slots: sq, rules: oc, logger: logger})
}

func (s *server) ListBookableSlots(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := ParseSlotsRequest(in)
	if err != nil {
		return nil, toStatus(s.logger, err)
	}
	if strings.TrimSpace(req.UserID) == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id is required")
	}

	res, err := s.slots.Bookable(ctx, slots.Query{
		UserID: req.UserID,
		From:   req.Start,
		To:     req.End,
		Lesson: time.Duration(req.Duration) * time.Minute,
	})
	if err != nil {
		return nil, toStatus(s.logger, err)
	}

	out := SlotsResponse{UserID: req.UserID, Notice: res.Notice, Duration: int(res.Lesson / time.Minute)}
	for _, e := range res.Slots {
		out.Slots = append(out.Slots, Slot{RuleID: e.RuleID, Start: e.Start, End: e.End})
	}
	return out.Struct()
}

func (s *server) CheckRuleOverlap(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := ParseOverlapRequest(in)
	if err != nil {
		return nil, toStatus(s.logger, err)
	}
	if strings.TrimSpace(req.UserID) == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id is required")
	}

	hit, found, err := s.rules.CheckOverlap(ctx, req.UserID, rules.Input{
		Frequency: req.Frequency,
		Start:     req.Start,
		End:       req.End,
		Time:      req.Time,
		Duration:  req.Duration,
		Weekdays:  req.Weekdays,
		Monthday:  req.Monthday,
		Activated: true,
	})
	if err != nil {
		return nil, toStatus(s.logger, err)
	}
	return OverlapResponse{Overlaps: found, RuleID: hit.ID}.Struct()
}

func toStatus(logger *slog.Logger, err error) error {
	switch {
	case errors.Is(err, schedule.ErrInvalidRule),
		errors.Is(err, schedule.ErrInvalidWindow),
		errors.Is(err, schedule.ErrInvalidNotice),
		errors.Is(err, timex.ErrInvalidInstant),
		errors.Is(err, slots.ErrInvalidLesson):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, rules.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, rules.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		logger.Error("grpc call failed", "err", err)
		return status.Error(codes.Internal, "internal error")
	}
}
