package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Ritesh-97/causal-rationale-extraction-system/config"
	"github.com/Ritesh-97/causal-rationale-extraction-system/corpus"
	crxlogger "github.com/Ritesh-97/causal-rationale-extraction-system/logger"
	"github.com/Ritesh-97/causal-rationale-extraction-system/migrations"
	"github.com/Ritesh-97/causal-rationale-extraction-system/transcript"
)

const usage = `Usage: crx <command> [flags]

Commands:
  ingest    Index transcript files into the corpus database
  query     Ask a question against a running daemon
  followup  Continue a conversation against a running daemon
  reset     Clear a conversation's history
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "ingest":
		err = runIngest(os.Args[2:])
	case "query":
		err = runQuery(os.Args[2:], "/query")
	case "followup":
		err = runQuery(os.Args[2:], "/followup")
	case "reset":
		err = runReset(os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runIngest loads transcripts from the given paths and indexes their spans
// directly into the corpus database.
func runIngest(args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", config.GetServerConfigPath(), "Path to config file")
	dbPath := fs.String("db", "", "Path to SQLite database file (overrides config)")
	pattern := fs.String("pattern", "*.json", "Glob pattern when a path is a directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("ingest requires at least one file or directory")
	}

	logger, err := crxlogger.InitWithOptions("", true)
	if err != nil {
		return err
	}

	cfg, err := config.LoadServerConfig(*configPath)
	if err != nil {
		return err
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o750); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close() //nolint:errcheck // closing on exit

	if err := migrations.RunMigrations(db, cfg.MigrationsPath, logger); err != nil {
		return err
	}

	// Ingest indexes without embeddings; the daemon's embedder settings apply
	// only to its own indexing path.
	store := corpus.NewStore(db, nil, logger)
	loader := transcript.NewLoader(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	total := 0
	for _, path := range fs.Args() {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}

		var ts []*transcript.Transcript
		if info.IsDir() {
			ts, err = loader.LoadBatch(path, *pattern)
		} else {
			var t *transcript.Transcript
			t, err = loader.Load(path)
			if t != nil {
				ts = append(ts, t)
			}
		}
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}

		for _, t := range ts {
			n, err := store.IndexTranscript(ctx, t, cfg.Analysis.WindowSize)
			if err != nil {
				return fmt.Errorf("index %s: %w", t.ID, err)
			}
			total += n
		}
	}
	fmt.Printf("Indexed %d spans\n", total)
	return nil
}

// runQuery sends a question to a running daemon and prints the JSON response.
func runQuery(args []string, route string) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8080", "Daemon base URL")
	conversationID := fs.String("conversation", "", "Conversation id")
	eventType := fs.String("event", "", "Force the event type (escalation, refund, churn)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("expected exactly one query string")
	}

	body := map[string]string{"query": fs.Arg(0)}
	if *conversationID != "" {
		body["conversation_id"] = *conversationID
	}
	if *eventType != "" {
		body["event_type"] = *eventType
	}
	return postJSON(*addr+route, body)
}

// runReset clears a conversation on a running daemon.
func runReset(args []string) error {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8080", "Daemon base URL")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("expected exactly one conversation id")
	}
	return postJSON(fmt.Sprintf("%s/conversations/%s/reset", *addr, fs.Arg(0)), map[string]string{})
}

func postJSON(url string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Post(url, "application/json", bytes.NewReader(payload)) //nolint:noctx // simple CLI call
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck // no remedy for body close error

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon returned %s: %s", resp.Status, data)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		fmt.Println(string(data))
		return nil
	}
	fmt.Println(pretty.String())
	return nil
}
