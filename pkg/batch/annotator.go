// Package batch annotates many documents in parallel and persists the
// results in order.
package batch

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/japaniel/furigana/pkg/article"
	"github.com/japaniel/furigana/pkg/db"
	"github.com/japaniel/furigana/pkg/furigana"
)

// Document is one text to annotate.
type Document struct {
	Name string
	Text string
}

// LineRef is the correlator attached to every problem: the document and the
// zero based line the problem was found in.
type LineRef struct {
	Document string
	Line     int
}

func (r LineRef) String() string { return fmt.Sprintf("%s:%d", r.Document, r.Line+1) }

// Result is the annotated form of one Document.
type Result struct {
	Document    string
	Text        string
	HasFurigana bool
	Problems    []furigana.Problem
}

// Annotator runs furigana engines over documents.
type Annotator struct {
	// NewEngine creates the engine of one worker. Engines are reused across
	// the documents a worker handles, never shared between workers.
	NewEngine func() (*furigana.Engine, error)
	Workers   int

	// DB, when set, receives every annotated line and problem under RunID.
	DB        *sql.DB
	RunID     string
	BatchSize int

	// Logger is used for informational messages. nil means no logging.
	Logger *log.Logger
	// OnProgress is called with the number of finished and total documents.
	OnProgress func(done, total int)
}

// NewAnnotator creates an Annotator with default settings.
func NewAnnotator(newEngine func() (*furigana.Engine, error)) *Annotator {
	return &Annotator{
		NewEngine: newEngine,
		Workers:   4,
		BatchSize: 50,
	}
}

type docResult struct {
	index  int
	result Result
	lines  []string
	out    []furigana.Result
}

// Annotate processes docs and returns their results in input order. A line
// the engine rejects is kept as it is and reported as a problem; only
// cancellation and persistence failures abort the batch.
func (a *Annotator) Annotate(ctx context.Context, docs []Document) ([]Result, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	if a.NewEngine == nil {
		return nil, fmt.Errorf("batch: NewEngine is required")
	}
	if a.DB != nil && a.RunID == "" {
		return nil, fmt.Errorf("batch: RunID is required to persist results")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	workers := a.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(docs) {
		workers = len(docs)
	}

	engines := make([]*furigana.Engine, workers)
	for i := range engines {
		e, err := a.NewEngine()
		if err != nil {
			return nil, fmt.Errorf("create engine: %w", err)
		}
		engines[i] = e
	}

	var w *RunWriter
	if a.DB != nil {
		var err error
		if w, err = NewRunWriter(a.DB, a.RunID, a.BatchSize, 100*time.Millisecond); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int)
	resultCh := make(chan docResult, workers)
	var wg sync.WaitGroup
	for _, eng := range engines {
		wg.Add(1)
		go func(eng *furigana.Engine) {
			defer wg.Done()
			for idx := range jobs {
				res := a.annotateDocument(eng, idx, docs[idx])
				select {
				case resultCh <- res:
				case <-ctx.Done():
					return
				}
			}
		}(eng)
	}

	results := make([]Result, len(docs))
	doneCh := make(chan consumerState, 1)
	go a.consume(resultCh, results, w, cancel, doneCh)

Loop:
	for i := range docs {
		if ctx.Err() != nil {
			break
		}
		select {
		case jobs <- i:
		case <-ctx.Done():
			break Loop
		}
	}
	close(jobs)
	wg.Wait()
	close(resultCh)
	state := <-doneCh

	err := state.err
	if w != nil {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if a.Logger != nil {
			st := w.Stats()
			a.Logger.Printf("run %s: stored %d documents, %d lines and %d problems in %d transactions",
				a.RunID, st.Documents, st.Lines, st.Problems, st.Transactions)
		}
	}
	if err == nil && state.done < len(docs) {
		err = ctx.Err()
		if err == nil {
			err = fmt.Errorf("batch: only %d of %d documents finished", state.done, len(docs))
		}
	}
	if err != nil {
		return nil, err
	}
	if a.Logger != nil {
		a.Logger.Printf("annotated %d documents", len(docs))
	}
	return results, nil
}

type consumerState struct {
	done int
	err  error
}

// consume stores results in input order and hands contiguous results to the
// run writer.
func (a *Annotator) consume(resultCh <-chan docResult, results []Result, w *RunWriter, cancel context.CancelFunc, doneCh chan<- consumerState) {
	var state consumerState
	buffer := make(map[int]docResult)

	for res := range resultCh {
		if state.err != nil {
			continue // drain
		}
		buffer[res.index] = res

		for {
			item, ok := buffer[state.done]
			if !ok {
				break
			}
			delete(buffer, state.done)
			results[state.done] = item.result

			if w != nil {
				if err := w.Write(record(item)); err != nil {
					state.err = err
					cancel()
					break
				}
			}
			state.done++
			if a.OnProgress != nil {
				a.OnProgress(state.done, len(results))
			}
		}
	}
	doneCh <- state
}

// record turns the lines of one document into the rows a run stores.
func record(item docResult) DocumentRecord {
	rec := DocumentRecord{
		Document:    item.result.Document,
		Annotations: make([]db.Annotation, len(item.lines)),
	}
	for i, line := range item.lines {
		out := item.out[i]
		rec.Annotations[i] = db.Annotation{
			Line:        i,
			Source:      line,
			Annotated:   out.Text,
			HasFurigana: out.HasFurigana,
		}
		for _, p := range out.Problems {
			rec.Problems = append(rec.Problems, db.ProblemRecord{
				Line:        i,
				Kanji:       p.Kanji,
				Description: p.Description,
			})
		}
	}
	return rec
}

// annotateDocument runs eng over doc line by line, so problems can be traced
// back to their line.
func (a *Annotator) annotateDocument(eng *furigana.Engine, index int, doc Document) docResult {
	lines := article.SplitLines(doc.Text)
	res := docResult{
		index:  index,
		result: Result{Document: doc.Name},
		lines:  lines,
		out:    make([]furigana.Result, 0, len(lines)),
	}

	var text strings.Builder
	for i, line := range lines {
		ref := LineRef{Document: doc.Name, Line: i}
		out, err := eng.Process(line, ref)
		if err != nil {
			if a.Logger != nil {
				a.Logger.Printf("%s: left unannotated: %v", ref, err)
			}
			out = furigana.Result{
				Text: line,
				Problems: []furigana.Problem{{
					Description: fmt.Sprintf("line left unannotated: %v", err),
					Correlator:  ref,
				}},
			}
		}
		text.WriteString(out.Text)
		if out.HasFurigana {
			res.result.HasFurigana = true
		}
		res.result.Problems = append(res.result.Problems, out.Problems...)
		res.out = append(res.out, out)
	}
	res.result.Text = text.String()
	return res
}
