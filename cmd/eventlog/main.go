// Command eventlog summarizes the NDJSON event log written by the server,
// one line per session. The seed column makes any session replayable with
// SNAKE_SEED.
//
// USAGE:
//
//	go run ./cmd/eventlog -file events.jsonl
package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"color-snake/internal/config"
	"color-snake/internal/game"
)

func main() {
	// Same .env lookup as the server so the default path matches
	if err := godotenv.Load("../.env"); err != nil {
		_ = godotenv.Load(".env")
	}

	path := flag.String("file", config.EventLogFromEnv().Path, "event log to read")
	session := flag.String("session", "", "only show this session id")
	flag.Parse()

	f, err := os.Open(*path)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer f.Close()

	events, err := game.ReadEvents(f)
	if err != nil {
		log.Fatalf("❌ Failed to read %s: %v", *path, err)
	}
	log.Debugf("📝 Read %d events from %s", len(events), *path)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tSEED\tSTARTED\tTICKS\tFOOD\tSPECIAL\tELIMS\tSEGMENTS\tCOMBO\tDROPPED\tSCORE\tLENGTH\tOVER")
	for _, s := range game.SummarizeEvents(events) {
		if *session != "" && s.Session != *session {
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%v\n",
			s.Session, s.Seed, s.StartedAt.Format("2006-01-02 15:04:05"), s.Ticks,
			s.FoodEaten, s.SpecialsEaten, s.Eliminations, s.Eliminated, s.MaxCombo,
			s.DroppedBody, s.FinalScore, s.FinalLength, s.GameOver)
	}
	w.Flush()
}
