package schedule

import (
	"reflect"
	"testing"
	"time"
)

func TestMask(t *testing.T) {
	base := Event{RuleID: "r1", Start: utc(2025, 1, 1, 10, 0), End: utc(2025, 1, 1, 12, 0)}

	tests := []struct {
		name   string
		booked []Event
		want   []Event
	}{
		{
			name: "no bookings",
			want: []Event{base},
		},
		{
			name:   "booking in the middle",
			booked: []Event{{Start: utc(2025, 1, 1, 10, 30), End: utc(2025, 1, 1, 11, 0)}},
			want: []Event{
				{RuleID: "r1", Start: utc(2025, 1, 1, 10, 0), End: utc(2025, 1, 1, 10, 30)},
				{RuleID: "r1", Start: utc(2025, 1, 1, 11, 0), End: utc(2025, 1, 1, 12, 0)},
			},
		},
		{
			name:   "booking at the start leaves no empty piece",
			booked: []Event{{Start: utc(2025, 1, 1, 10, 0), End: utc(2025, 1, 1, 10, 30)}},
			want:   []Event{{RuleID: "r1", Start: utc(2025, 1, 1, 10, 30), End: utc(2025, 1, 1, 12, 0)}},
		},
		{
			name: "overlapping and unsorted bookings",
			booked: []Event{
				{Start: utc(2025, 1, 1, 11, 30), End: utc(2025, 1, 1, 12, 30)},
				{Start: utc(2025, 1, 1, 10, 15), End: utc(2025, 1, 1, 10, 45)},
				{Start: utc(2025, 1, 1, 10, 30), End: utc(2025, 1, 1, 11, 0)},
			},
			want: []Event{
				{RuleID: "r1", Start: utc(2025, 1, 1, 10, 0), End: utc(2025, 1, 1, 10, 15)},
				{RuleID: "r1", Start: utc(2025, 1, 1, 11, 0), End: utc(2025, 1, 1, 11, 30)},
			},
		},
		{
			name:   "booking covering the whole event",
			booked: []Event{{Start: utc(2025, 1, 1, 9, 0), End: utc(2025, 1, 1, 13, 0)}},
			want:   nil,
		},
		{
			name:   "booking outside the event",
			booked: []Event{{Start: utc(2025, 1, 1, 12, 0), End: utc(2025, 1, 1, 13, 0)}},
			want:   []Event{base},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Mask([]Event{base}, tt.booked)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("unexpected result:\n got %v\nwant %v", got, tt.want)
			}
		})
	}
}

func TestSplit(t *testing.T) {
	events := []Event{
		{RuleID: "r1", Start: utc(2025, 1, 1, 10, 0), End: utc(2025, 1, 1, 11, 10)},
		{RuleID: "r2", Start: utc(2025, 1, 2, 10, 0), End: utc(2025, 1, 2, 10, 20)},
	}
	got := Split(events, 30*time.Minute)
	want := []Event{
		{RuleID: "r1", Start: utc(2025, 1, 1, 10, 0), End: utc(2025, 1, 1, 10, 30)},
		{RuleID: "r1", Start: utc(2025, 1, 1, 10, 30), End: utc(2025, 1, 1, 11, 0)},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected slots:\n got %v\nwant %v", got, want)
	}
	if Split(events, 0) != nil {
		t.Fatal("expected nil for non-positive lesson length")
	}
}

func TestUnpack(t *testing.T) {
	a := rule(Daily{}, day(2025, 1, 1), day(2025, 1, 2), tod(10, 0), 60)
	a.ID = "a"
	b := rule(Weekly{Weekdays: []time.Weekday{time.Wednesday}}, day(2025, 1, 1), day(2025, 1, 8), tod(8, 0), 60)
	b.ID = "b"
	off := rule(Daily{}, day(2025, 1, 1), day(2025, 1, 2), tod(14, 0), 60)
	off.ID, off.Activated = "off", false

	booked := []Event{
		{RuleID: "a", Start: utc(2025, 1, 1, 10, 0), End: utc(2025, 1, 1, 10, 30)},
		// Belongs to another rule; must not mask rule a.
		{RuleID: "b", Start: utc(2025, 1, 2, 10, 0), End: utc(2025, 1, 2, 11, 0)},
	}

	got, err := Unpack([]Rule{a, b, off}, booked, day(2025, 1, 1), day(2025, 1, 10))
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	want := []Event{
		{RuleID: "b", Start: utc(2025, 1, 1, 8, 0), End: utc(2025, 1, 1, 9, 0)},
		{RuleID: "a", Start: utc(2025, 1, 1, 10, 30), End: utc(2025, 1, 1, 11, 0)},
		{RuleID: "a", Start: utc(2025, 1, 2, 10, 0), End: utc(2025, 1, 2, 11, 0)},
		{RuleID: "b", Start: utc(2025, 1, 8, 8, 0), End: utc(2025, 1, 8, 9, 0)},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected events:\n got %v\nwant %v", got, want)
	}
}
