// Command replay feeds recorded webhook batch files through the ingestion
// processor against in-memory stores, for offline inspection of what a
// delivery would have produced.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pump-sentinel/internal/config"
	"pump-sentinel/internal/domain"
	"pump-sentinel/internal/ingestion"
	"pump-sentinel/internal/pool"
	"pump-sentinel/internal/solana"
	"pump-sentinel/internal/storage/memory"
)

func main() {
	outputJSON := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	files := flag.Args()
	if len(files) == 0 {
		log.Fatal().Msg("usage: replay [--json] batch.json [batch.json ...]")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	batches := make([][]byte, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatal().Err(err).Str("file", path).Msg("read batch file")
		}
		batches = append(batches, data)
	}

	// Chain reads still go through the real pool; everything written stays
	// in memory.
	endpoints := pool.New(cfg.Endpoints)
	client := solana.NewPooledClient(endpoints)

	mon := &countingMonitor{}
	creates := memory.NewCreateEventStore()
	sink := ingestion.NewEventSink(creates, memory.NewTradeEventStore(), memory.NewHolderStore(), mon)
	processor := ingestion.NewProcessor(client, client, sink, ingestion.NewNormalizer(client), creates, cfg.ProgramID)

	results, err := processor.ProcessBatches(ctx, batches)
	if err != nil {
		log.Fatal().Err(err).Msg("replay aborted")
	}

	summary := summarize(files, results, mon)
	if *outputJSON {
		output, _ := json.MarshalIndent(summary, "", "  ")
		fmt.Println(string(output))
		return
	}

	fmt.Printf("\n=== Replay Summary ===\n")
	fmt.Printf("Batches:    %d\n", len(summary.Batches))
	fmt.Printf("Processed:  %d\n", summary.Processed)
	fmt.Printf("Skipped:    %d\n", summary.Skipped)
	fmt.Printf("Errors:     %d\n", summary.ErrorCount)
	fmt.Printf("Launches:   %d\n", summary.Launches)
	for _, b := range summary.Batches {
		fmt.Printf("\n%s: processed=%d skipped=%d errors=%d\n", b.File, b.Processed, b.Skipped, len(b.Errors))
		for _, e := range b.Errors {
			fmt.Printf("  item %d (%s): %s\n", e.Index, e.Signature, e.Reason)
		}
	}
}

// batchSummary is the per-file slice of the replay report.
type batchSummary struct {
	File      string                `json:"file"`
	Processed int                   `json:"processed"`
	Skipped   int                   `json:"skipped"`
	Errors    []ingestion.ItemError `json:"errors,omitempty"`
}

type replaySummary struct {
	Batches    []batchSummary `json:"batches"`
	Processed  int            `json:"processed"`
	Skipped    int            `json:"skipped"`
	ErrorCount int            `json:"error_count"`
	Launches   int            `json:"launches"`
}

func summarize(files []string, results []ingestion.BatchResult, mon *countingMonitor) replaySummary {
	var s replaySummary
	for i, res := range results {
		s.Batches = append(s.Batches, batchSummary{
			File:      files[i],
			Processed: res.Processed,
			Skipped:   res.Skipped,
			Errors:    res.Errors,
		})
		s.Processed += res.Processed
		s.Skipped += res.Skipped
		s.ErrorCount += len(res.Errors)
	}
	s.Launches = mon.creates
	return s
}

// countingMonitor satisfies the monitoring hook without scheduling anything.
type countingMonitor struct {
	creates   int
	completes int
}

func (m *countingMonitor) OnCreate(*domain.CreateEvent) error {
	m.creates++
	return nil
}

func (m *countingMonitor) OnComplete(string) {
	m.completes++
}
