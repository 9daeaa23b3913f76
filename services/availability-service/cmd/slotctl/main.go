package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/litespace/availability/libs/timex"
	"github.com/litespace/availability/services/availability-service/internal/client"
	"github.com/litespace/availability/services/availability-service/internal/grpcserver"
)

func main() {
	var (
		addr     = flag.String("addr", getenv("AVAILABILITY_GRPC_ADDR", "localhost:9095"), "availability gRPC address")
		userID   = flag.String("user-id", getenv("USER_ID", ""), "tutor or interviewer id")
		from     = flag.String("start", "", "window start, RFC 3339 or YYYY-MM-DD (default now)")
		days     = flag.Int("days", 7, "window length in days")
		duration = flag.Int("duration", 0, "lesson length in minutes (default 15)")
	)
	flag.Parse()

	if strings.TrimSpace(*userID) == "" {
		fatal("USER_ID is required")
	}
	start := time.Now().UTC()
	if *from != "" {
		t, err := timex.ParseInstant(*from)
		if err != nil {
			fatal(err.Error())
		}
		start = t
	}

	c, err := client.NewClient(*addr)
	if err != nil {
		fatal(err.Error())
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := c.ListBookableSlots(ctx, grpcserver.SlotsRequest{
		UserID:   *userID,
		Start:    start,
		End:      timex.AddDays(start, *days),
		Duration: *duration,
	})
	if err != nil {
		fatal(err.Error())
	}

	fmt.Printf("user=%s notice=%dm lesson=%dm slots=%d\n", resp.UserID, resp.Notice, resp.Duration, len(resp.Slots))
	for _, s := range resp.Slots {
		fmt.Printf("%s  %s - %s\n", s.RuleID, timex.FormatInstant(s.Start), timex.FormatInstant(s.End))
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
