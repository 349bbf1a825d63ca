// This program loads a CSV or Excel file into an in memory DuckDB table and
// answers questions about it from the terminal.
//
// # Running the program:
//
//	$ go run ./cmd/ask -file zarf/data/sales.csv
//	$ go run ./cmd/ask -file zarf/data/sales.xlsx -mode route
//
// Type quit to exit.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ardanlabs/ai-agents/foundation/analyst"
	"github.com/ardanlabs/ai-agents/foundation/config"
	"github.com/ardanlabs/ai-agents/foundation/duck"
	"github.com/ardanlabs/ai-agents/foundation/llm"
	"github.com/ardanlabs/ai-agents/foundation/logger"
	"github.com/ardanlabs/ai-agents/foundation/upload"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("\nERROR: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadEnv(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	file := flag.String("file", "", "csv or xlsx file to load")
	mode := flag.String("mode", config.String("ANALYST_MODE", analyst.ModeExplain.String()), "explain, execute, route or route-explain")
	verbose := flag.Bool("v", false, "log pipeline transitions")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		return errors.New("a file is required")
	}

	m, err := analyst.ParseMode(*mode)
	if err != nil {
		return err
	}

	policy, err := llm.PolicyFromEnv()
	if err != nil {
		return err
	}

	log := logger.Noop
	if *verbose {
		log = logger.New(os.Stderr, "ASK")
	}

	ctx := context.Background()

	// -------------------------------------------------------------------------

	store, err := duck.Open(duck.Config{Log: log})
	if err != nil {
		return fmt.Errorf("duck: %w", err)
	}
	defer store.Close()

	if err := loadFile(ctx, store, *file); err != nil {
		return err
	}

	completer, release, err := llm.New(ctx, llm.Config{
		Log:           log,
		Backend:       config.String("LLM_BACKEND", llm.BackendHTTP),
		URL:           config.String("LLM_SERVER", llm.DefaultURL),
		Model:         config.String("LLM_MODEL", llm.DefaultModel),
		APIKey:        config.String("LLM_API_KEY", ""),
		KronkModelURL: config.String("KRONK_MODEL_URL", ""),
	})
	if err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	defer release(context.Background())

	pipeline, err := analyst.New(analyst.Config{
		Log:       log,
		Completer: completer,
		Store:     store,
		Mode:      m,
		LLMPolicy: policy,
	})
	if err != nil {
		return fmt.Errorf("analyst: %w", err)
	}

	// -------------------------------------------------------------------------

	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("\nAsk a question about your data: ")

		question, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read question: %w", err)
		}

		question = strings.TrimSpace(question)

		switch {
		case question == "quit":
			return nil
		case question == "" && errors.Is(err, io.EOF):
			return nil
		case question == "":
			fmt.Println("Please enter a question")
			continue
		}

		ask(ctx, pipeline, question)

		if errors.Is(err, io.EOF) {
			return nil
		}
	}
}

func loadFile(ctx context.Context, store *duck.Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	ds, err := upload.Parse(path, f)
	if err != nil {
		return fmt.Errorf("parse file: %w", err)
	}

	if err := store.Load(ctx, analyst.DefaultTable, ds); err != nil {
		return fmt.Errorf("load file: %w", err)
	}

	fmt.Printf("\nLoaded %d rows into %s\n\n", len(ds.Rows), analyst.DefaultTable)

	preview := duck.Result{Rows: ds.Rows}
	for _, c := range ds.Columns {
		preview.Columns = append(preview.Columns, fmt.Sprintf("%s (%s)", c.Name, c.Type))
	}

	return analyst.Table(os.Stdout, preview.Head(analyst.PreviewRows))
}

func ask(ctx context.Context, pipeline *analyst.Pipeline, question string) {
	fmt.Print("\nGive me a second...\n\n")

	state, err := pipeline.Run(ctx, question)

	if state.SQL != "" {
		fmt.Println("QUERY:")
		fmt.Print("-----------------------------------------------\n\n")
		fmt.Println(state.SQL)
		fmt.Print("\n")
	}

	if err != nil {
		var se *analyst.StageError
		if errors.As(err, &se) {
			fmt.Printf("ERROR (%s): %s\n", se.Phase, se.Err)
			return
		}

		fmt.Printf("ERROR: %s\n", err)
		return
	}

	if state.Result != nil {
		fmt.Println("DATA:")
		fmt.Print("-----------------------------------------------\n\n")

		if err := analyst.Table(os.Stdout, *state.Result); err != nil {
			fmt.Printf("ERROR: %s\n", err)
		}

		fmt.Print("\n")
	}

	if state.Answer != "" {
		fmt.Println("ANSWER:")
		fmt.Print("-----------------------------------------------\n\n")
		fmt.Println(state.Answer)
	}
}
