package grpcserver

import (
	"fmt"
	"time"

	"github.com/litespace/availability/libs/timex"
	"google.golang.org/protobuf/types/known/structpb"
)

type SlotsRequest struct {
	UserID   string
	Start    time.Time
	End      time.Time
	Duration int // minutes, 0 for the default lesson
}

type Slot struct {
	RuleID string
	Start  time.Time
	End    time.Time
}

type SlotsResponse struct {
	UserID   string
	Notice   int
	Duration int
	Slots    []Slot
}

type OverlapRequest struct {
	UserID    string
	Frequency string
	Start     time.Time
	End       time.Time
	Time      string
	Duration  int
	Weekdays  []int
	Monthday  *int
}

type OverlapResponse struct {
	Overlaps bool
	RuleID   string
}

func (r SlotsRequest) Struct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"user_id":  r.UserID,
		"start":    timex.FormatInstant(r.Start),
		"end":      timex.FormatInstant(r.End),
		"duration": r.Duration,
	})
}

func ParseSlotsRequest(s *structpb.Struct) (SlotsRequest, error) {
	start, err := timex.ParseInstant(stringField(s, "start"))
	if err != nil {
		return SlotsRequest{}, err
	}
	end, err := timex.ParseInstant(stringField(s, "end"))
	if err != nil {
		return SlotsRequest{}, err
	}
	return SlotsRequest{
		UserID:   stringField(s, "user_id"),
		Start:    start,
		End:      end,
		Duration: intField(s, "duration"),
	}, nil
}

func (r SlotsResponse) Struct() (*structpb.Struct, error) {
	items := make([]any, 0, len(r.Slots))
	for _, s := range r.Slots {
		items = append(items, map[string]any{
			"rule_id": s.RuleID,
			"start":   timex.FormatInstant(s.Start),
			"end":     timex.FormatInstant(s.End),
		})
	}
	return structpb.NewStruct(map[string]any{
		"user_id":  r.UserID,
		"notice":   r.Notice,
		"duration": r.Duration,
		"slots":    items,
	})
}

func ParseSlotsResponse(s *structpb.Struct) (SlotsResponse, error) {
	out := SlotsResponse{
		UserID:   stringField(s, "user_id"),
		Notice:   intField(s, "notice"),
		Duration: intField(s, "duration"),
	}
	for i, v := range s.GetFields()["slots"].GetListValue().GetValues() {
		item := v.GetStructValue()
		start, err := timex.ParseInstant(stringField(item, "start"))
		if err != nil {
			return SlotsResponse{}, fmt.Errorf("slot %d: %w", i, err)
		}
		end, err := timex.ParseInstant(stringField(item, "end"))
		if err != nil {
			return SlotsResponse{}, fmt.Errorf("slot %d: %w", i, err)
		}
		out.Slots = append(out.Slots, Slot{RuleID: stringField(item, "rule_id"), Start: start, End: end})
	}
	return out, nil
}

func (r OverlapRequest) Struct() (*structpb.Struct, error) {
	m := map[string]any{
		"user_id":   r.UserID,
		"frequency": r.Frequency,
		"start":     timex.FormatInstant(r.Start),
		"end":       timex.FormatInstant(r.End),
		"time":      r.Time,
		"duration":  r.Duration,
	}
	if len(r.Weekdays) > 0 {
		days := make([]any, len(r.Weekdays))
		for i, d := range r.Weekdays {
			days[i] = d
		}
		m["weekdays"] = days
	}
	if r.Monthday != nil {
		m["monthday"] = *r.Monthday
	}
	return structpb.NewStruct(m)
}

func ParseOverlapRequest(s *structpb.Struct) (OverlapRequest, error) {
	start, err := timex.ParseInstant(stringField(s, "start"))
	if err != nil {
		return OverlapRequest{}, err
	}
	end, err := timex.ParseInstant(stringField(s, "end"))
	if err != nil {
		return OverlapRequest{}, err
	}
	out := OverlapRequest{
		UserID:    stringField(s, "user_id"),
		Frequency: stringField(s, "frequency"),
		Start:     start,
		End:       end,
		Time:      stringField(s, "time"),
		Duration:  intField(s, "duration"),
	}
	for _, v := range s.GetFields()["weekdays"].GetListValue().GetValues() {
		out.Weekdays = append(out.Weekdays, int(v.GetNumberValue()))
	}
	if _, ok := s.GetFields()["monthday"]; ok {
		d := intField(s, "monthday")
		out.Monthday = &d
	}
	return out, nil
}

func (r OverlapResponse) Struct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"overlaps": r.Overlaps,
		"rule_id":  r.RuleID,
	})
}

func ParseOverlapResponse(s *structpb.Struct) OverlapResponse {
	return OverlapResponse{
		Overlaps: s.GetFields()["overlaps"].GetBoolValue(),
		RuleID:   stringField(s, "rule_id"),
	}
}

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func intField(s *structpb.Struct, key string) int {
	return int(s.GetFields()[key].GetNumberValue())
}
