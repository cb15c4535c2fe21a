// Command recommender is the interactive variant of the service: it
// prompts for a checkin date, fetches the offer feed once, runs the
// filter pipeline, and prints the recommended offers as JSON. Per-stage
// dumps go to the trace directory for inspection.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/client"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/config"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/service"
	"github.com/HoangChu-Claremont/Ascenda-Royalty-OA/internal/trace"
)

func main() {
	configFile := flag.String("config", "", "Path to JSON config file")
	traceDir := flag.String("trace-dir", ".", "Directory for per-stage JSON dumps (empty to disable)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	checkin := promptCheckinDate(os.Stdin)

	var opts []service.Option
	if *traceDir != "" {
		rec, err := trace.NewFileRecorder(*traceDir)
		if err != nil {
			log.Fatalf("Failed to create trace recorder: %v", err)
		}
		opts = append(opts, service.WithRecorder(rec))
	}

	var clientOpts []client.Option
	if cfg.Feed.LenientStatus {
		clientOpts = append(clientOpts, client.WithLenientStatus())
	}

	svc := service.NewService(client.New(cfg.Feed.URL, clientOpts...), opts...)

	resp, err := svc.Recommend(context.Background(), service.Request{
		CheckinDate:   checkin,
		Categories:    cfg.Feed.Categories,
		ExtensionDays: cfg.Feed.ExtensionDays,
	})
	if err != nil {
		log.Fatalf("Recommendation run failed: %v", err)
	}

	out, err := json.MarshalIndent(resp.Offers, "", "    ")
	if err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}
	fmt.Println(string(out))
}

// promptCheckinDate asks for the year, month and day separately and joins
// them with '-', the shape the date parser expects.
func promptCheckinDate(in *os.File) string {
	scanner := bufio.NewScanner(in)
	read := func(prompt string) string {
		fmt.Print(prompt)
		if !scanner.Scan() {
			log.Fatal("No input")
		}
		return strings.TrimSpace(scanner.Text())
	}

	year := read("Please input your checkin year: ")
	month := read("Please input your checkin month: ")
	day := read("Please input your checkin day: ")

	return strings.Join([]string{year, month, day}, "-")
}
