package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/japaniel/furigana/pkg/article"
	"github.com/japaniel/furigana/pkg/batch"
	"github.com/japaniel/furigana/pkg/config"
	"github.com/japaniel/furigana/pkg/db"
	"github.com/japaniel/furigana/pkg/furigana"
	"github.com/japaniel/furigana/pkg/kanjidic"
	"github.com/japaniel/furigana/pkg/phonetic"
)

// fileList collects repeated -in flags.
type fileList []string

func (f *fileList) String() string { return strings.Join(*f, ",") }

func (f *fileList) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func main() {
	var inFlag fileList
	flag.Var(&inFlag, "in", "Text file to annotate (repeatable; positional arguments work too)")
	urlFlag := flag.String("url", "", "URL of an article to annotate")
	outFlag := flag.String("out", "", "Directory for annotated files (default: print to stdout)")
	dbFlag := flag.String("db", "furigana.db", "Path to SQLite database (empty to disable)")
	importFlag := flag.String("import-kanjidic", "", "Path to kanjidic2.xml(.gz) to import into the database")
	kanjidicFlag := flag.String("kanjidic", "", "Path to kanjidic2.xml(.gz) to load into memory (downloaded when missing)")
	readingsFlag := flag.String("readings", "", "Path to a YAML reading overrides file")
	openFlag := flag.String("open", "[", "Tag written before a reading")
	closeFlag := flag.String("close", "]", "Tag written after a reading")
	workersFlag := flag.Int("workers", 4, "Number of documents annotated in parallel")
	taggerFlag := flag.Bool("tagger", false, "Consult the UniDic tagger for extra readings")
	problemsFlag := flag.Int("problems", 20, "Maximum number of problems to list (0 lists all)")
	examplesFlag := flag.Int("examples", 0, "Problems to list below each kanji of the summary")
	verboseFlag := flag.Bool("v", false, "Log reading lookups and progress")
	flag.Parse()

	// Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var logger *log.Logger
	if *verboseFlag {
		logger = log.New(os.Stderr, "furigana: ", log.LstdFlags)
	}

	var conn *sql.DB
	if *dbFlag != "" {
		var err error
		conn, err = sql.Open("sqlite3", *dbFlag)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer conn.Close()

		if err := db.InitDB(conn); err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		fmt.Fprintf(os.Stderr, "Database initialized at %s\n", *dbFlag)
	}

	// Handle KANJIDIC import
	if *importFlag != "" {
		if conn == nil {
			log.Fatal("-import-kanjidic requires -db")
		}
		fmt.Fprintf(os.Stderr, "Loading KANJIDIC from %s...\n", *importFlag)
		chars, err := kanjidic.LoadFile(*importFlag)
		if err != nil {
			log.Fatalf("Failed to load KANJIDIC: %v", err)
		}
		importer := kanjidic.NewImporter(conn)
		importer.Logger = logger
		count, err := importer.Import(chars)
		if err != nil {
			log.Fatalf("Failed to import KANJIDIC: %v", err)
		}
		fmt.Fprintf(os.Stderr, "Successfully imported readings for %d kanji.\n", count)
		return
	}

	docs, err := loadDocuments(ctx, append(inFlag, flag.Args()...), *urlFlag)
	if err != nil {
		log.Fatalf("Failed to read input: %v", err)
	}
	if len(docs) == 0 {
		log.Fatal("Please provide -in files, a -url or -import-kanjidic")
	}

	cfg := furigana.Config{OpenTag: *openFlag, CloseTag: *closeFlag, Logger: logger}
	dict, err := openDictionary(ctx, conn, *kanjidicFlag)
	if err != nil {
		log.Fatalf("Failed to prepare dictionary: %v", err)
	}
	if dict != nil {
		cfg.Dictionary = dict
	}

	fmt.Fprintln(os.Stderr, "Loading morphological dictionaries...")
	start := time.Now()
	conv, err := phonetic.NewConverter()
	if err != nil {
		log.Fatalf("Failed to create converter: %v", err)
	}
	if *taggerFlag {
		tagger, err := phonetic.NewTagger()
		if err != nil {
			log.Fatalf("Failed to create tagger: %v", err)
		}
		cfg.Tagger = tagger
	}
	fmt.Fprintf(os.Stderr, "Dictionaries loaded in %v\n", time.Since(start))

	var readings *config.Readings
	if *readingsFlag != "" {
		readings, err = config.LoadReadings(*readingsFlag)
		if err != nil {
			log.Fatalf("Failed to load reading overrides: %v", err)
		}
		cfg = readings.EngineConfig(cfg)
	}

	tagsChosen := readings != nil && (readings.Tags.Open != "" || readings.Tags.Close != "")
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "open" || f.Name == "close" {
			tagsChosen = true
		}
	})
	cfg, notice, err := chooseDelimiters(docs, cfg, tagsChosen)
	if err != nil {
		log.Fatalf("Cannot annotate: %v", err)
	}
	if notice != "" {
		fmt.Fprintln(os.Stderr, notice)
	}

	annotator := batch.NewAnnotator(func() (*furigana.Engine, error) {
		e, err := furigana.New(conv, cfg)
		if err != nil {
			return nil, err
		}
		if readings != nil {
			if err := readings.Apply(e); err != nil {
				return nil, err
			}
		}
		return e, nil
	})
	annotator.Workers = *workersFlag
	annotator.Logger = logger
	annotator.OnProgress = func(done, total int) {
		fmt.Fprintf(os.Stderr, "\rAnnotated %d/%d documents", done, total)
		if done == total {
			fmt.Fprintln(os.Stderr)
		}
	}
	var runID string
	if conn != nil {
		runID, err = db.CreateRun(conn, runLabel(docs))
		if err != nil {
			log.Fatalf("Failed to create run: %v", err)
		}
		annotator.DB = conn
		annotator.RunID = runID
		fmt.Fprintf(os.Stderr, "Run saved with ID: %s\n", runID)
	}

	results, err := annotator.Annotate(ctx, docs)
	if err != nil {
		log.Fatalf("Annotation failed: %v", err)
	}

	var problems furigana.ProblemLog
	for _, r := range results {
		problems.Add(r.Problems...)
		if err := writeResult(*outFlag, r); err != nil {
			log.Fatalf("Failed to write %s: %v", r.Document, err)
		}
	}

	fmt.Fprintln(os.Stderr, "---------------------------------------------------")
	if err := problems.Fprint(os.Stderr, *problemsFlag); err != nil {
		log.Fatal(err)
	}
	if problems.Len() > 0 {
		if err := problems.FprintCounts(os.Stderr); err != nil {
			log.Fatal(err)
		}
		if *examplesFlag > 0 {
			if err := printExamples(os.Stderr, &problems, *examplesFlag); err != nil {
				log.Fatal(err)
			}
		}
	}
	if conn != nil {
		run, err := db.GetRun(conn, runID)
		if err != nil {
			log.Fatalf("Failed to read run: %v", err)
		}
		fmt.Fprintf(os.Stderr, "Run %s (%s) started %s\n", run.ID, run.Label, run.StartedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(os.Stderr, "Processing complete. Annotated %d documents.\n", len(results))
}

// loadDocuments reads the input files and fetches the article at rawURL.
// Without either, standard input is read.
func loadDocuments(ctx context.Context, files []string, rawURL string) ([]batch.Document, error) {
	var docs []batch.Document
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, batch.Document{Name: path, Text: string(data)})
	}

	if rawURL != "" {
		fmt.Fprintf(os.Stderr, "Fetching %s...\n", rawURL)
		a, err := article.Fetch(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(os.Stderr, "Title: %s\n", a.Title)
		fmt.Fprintf(os.Stderr, "Extracted Text Length: %d chars\n", len(a.Text))
		docs = append(docs, batch.Document{Name: rawURL, Text: a.Text})
	}

	if len(docs) == 0 {
		stat, err := os.Stdin.Stat()
		if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
			return nil, nil
		}
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, err
		}
		docs = append(docs, batch.Document{Name: "stdin", Text: string(data)})
	}
	return docs, nil
}

// openDictionary prefers an in-memory KANJIDIC file and falls back to the
// readings imported into the database. It returns nil when neither exists.
func openDictionary(ctx context.Context, conn *sql.DB, path string) (furigana.Dictionary, error) {
	if path != "" {
		if err := kanjidic.EnsureDictionary(ctx, path, log.New(os.Stderr, "", 0)); err != nil {
			return nil, err
		}
		chars, err := kanjidic.LoadFile(path)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(os.Stderr, "KANJIDIC loaded (%d kanji)\n", len(chars))
		return kanjidic.NewIndex(chars), nil
	}
	if conn == nil {
		return nil, nil
	}
	n, err := db.CountKanji(conn)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		fmt.Fprintln(os.Stderr, "No kanji readings in the database. Run with -import-kanjidic for better results.")
		return nil, nil
	}
	return db.NewDictionary(conn), nil
}

// printExamples lists up to n problems below every kanji that had any.
func printExamples(w io.Writer, problems *furigana.ProblemLog, n int) error {
	for _, c := range problems.CountByKanji() {
		if _, err := fmt.Fprintf(w, "%s:\n", c.Kanji); err != nil {
			return err
		}
		for _, p := range problems.ForKanji(c.Kanji, n) {
			if _, err := fmt.Fprintf(w, "  %s\n", p); err != nil {
				return err
			}
		}
	}
	return nil
}

func runLabel(docs []batch.Document) string {
	if len(docs) == 1 {
		return docs[0].Name
	}
	return fmt.Sprintf("%s and %d more", docs[0].Name, len(docs)-1)
}

// writeResult prints r, or writes it below dir when dir is set.
func writeResult(dir string, r batch.Result) error {
	if dir == "" {
		_, err := io.WriteString(os.Stdout, r.Text)
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, outputName(r.Document)), []byte(r.Text), 0644)
}

// outputName turns a document name (a path or URL) into a file name.
func outputName(name string) string {
	if !strings.Contains(name, "://") {
		return filepath.Base(name)
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		}
		return '_'
	}, strings.SplitN(name, "://", 2)[1]) + ".txt"
}
