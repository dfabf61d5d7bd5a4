// Command diamond-core is the CLI entry point wiring the external
// collaborators spec.md §6 describes (config, database, output sink)
// around the core extension subsystem: load a reference chunk and a
// query FASTA, seed queries against it with the built-in seeding stand-in
// (package seeding; spec.md §1 treats the real seeding stage as an
// out-of-scope collaborator), run the staged extension pipeline per query
// across a bounded worker pool, and write results through the ordering
// queue so output stays in query order despite out-of-order completion
// (spec.md §4.6, §5). Modeled on the teacher's cmd/cablastp-search/main.go:
// a flag-bound Options value, a fatalf-style top-level error handler, and
// runtime.GOMAXPROCS wired from a thread-count flag.
package main

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/TuftsBCB/io/fasta"
	"golang.org/x/sync/errgroup"

	"github.com/diamond-core/diamond-core/internal/config"
	"github.com/diamond-core/diamond-core/internal/dbstore"
	"github.com/diamond-core/diamond-core/internal/extend"
	"github.com/diamond-core/diamond-core/internal/logging"
	"github.com/diamond-core/diamond-core/internal/orderqueue"
	"github.com/diamond-core/diamond-core/internal/output"
	"github.com/diamond-core/diamond-core/internal/scoring"
	"github.com/diamond-core/diamond-core/internal/seeding"
	"github.com/diamond-core/diamond-core/internal/seedhit"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opt, err := config.ParseFlags("diamond-core", args)
	if err != nil {
		return reportAndExit(logging.Default(), err)
	}

	level := logging.LevelInfo
	if opt.Quiet {
		level = logging.LevelError
	}
	log := logging.New(os.Stderr, level)

	sc, err := opt.ScoringContext()
	if err != nil {
		return reportAndExit(log, err)
	}

	log.Infof("loading reference database from %s", opt.DatabasePath)
	db, err := dbstore.LoadFasta(opt.DatabasePath, 0, 4096)
	if err != nil {
		return reportAndExit(log, &config.IOError{Path: opt.DatabasePath, Err: err})
	}

	log.Infof("loading queries from %s", opt.QueryPath)
	queries, err := loadQueries(opt.QueryPath)
	if err != nil {
		return reportAndExit(log, &config.IOError{Path: opt.QueryPath, Err: err})
	}

	out, closeOut, err := openOutput(opt.OutputPath)
	if err != nil {
		return reportAndExit(log, err)
	}
	defer closeOut()

	assembler := output.Assembler{Format: opt.Format(), DB: db, Filters: opt.Filters()}
	pipelineParams := opt.PipelineParams()

	writeFn, finishFn, err := writerFor(sc, assembler, out, db)
	if err != nil {
		return reportAndExit(log, err)
	}

	if err := processQueries(log, sc, db, queries, pipelineParams, opt.Threads, writeFn); err != nil {
		return reportAndExit(log, err)
	}
	if finishFn != nil {
		if err := finishFn(); err != nil {
			return reportAndExit(log, &config.IOError{Path: opt.OutputPath, Err: err})
		}
	}
	log.Infof("processed %d queries", len(queries))
	return int(config.ExitSuccess)
}

// queryRecord is one loaded query: its title and residues, numbered by
// input order so the ordering queue can reconstruct that order from
// out-of-order worker completions (spec.md §4.6).
type queryRecord struct {
	index    int
	title    string
	residues []byte
}

// queryResult is what a worker hands back to the ordering queue: the
// fully assembled, filtered, and ordered HSP list for one query, or a
// fatal error that must abort the whole run (spec.md §7 "workers surface
// fatal errors via the ordering queue, which drains gracefully and then
// rethrows on the main thread").
type queryResult struct {
	q       output.Query
	ordered []extend.OutputHSP
	err     error
}

// writeFunc renders one query's result to the output sink; its shape is
// uniform across formats even though DAA and the intermediate binary
// format need a stateful writer closed over by writerFor (see below).
type writeFunc func(q output.Query, ordered []extend.OutputHSP) error

// processQueries fans out pipeline work over opt.Threads worker
// goroutines, each pulling the next query from the ordering queue via
// Get and pushing its result back via Push, while the queue's Consumer
// writes results to out strictly in query order (spec.md §5 "Concurrency
// model": "many workers extend queries out of order; output is emitted in
// ascending query order").
func processQueries(log *logging.Logger, sc scoring.Context, db dbstore.Database, queries []queryRecord, pp extend.PipelineParams, threads int, write writeFunc) error {
	var firstErr error
	q := orderqueue.New(threads*2, func(slotID int64, value interface{}) {
		res := value.(queryResult)
		if res.err != nil {
			log.Errorf("query %q: %v", res.q.Title, res.err)
			if firstErr == nil {
				firstErr = res.err
			}
			return
		}
		if firstErr != nil {
			return
		}
		if writeErr := write(res.q, res.ordered); writeErr != nil {
			if firstErr == nil {
				firstErr = &config.IOError{Path: "<output>", Err: writeErr}
			}
		}
	})

	var next int
	grp := new(errgroup.Group)
	for w := 0; w < threads; w++ {
		grp.Go(func() error {
			for {
				value, slotID, ok := q.Get(func() (interface{}, bool) {
					if next >= len(queries) {
						return nil, false
					}
					qr := queries[next]
					next++
					return qr, true
				})
				if !ok {
					return nil
				}
				qr := value.(queryRecord)
				ordered, err := extendOne(sc, db, qr, pp)
				q.Push(slotID, queryResult{
					q:       output.Query{Index: qr.index, Title: qr.title, Length: len(qr.residues), Letters: qr.residues},
					ordered: ordered,
					err:     err,
				})
			}
		})
	}
	if err := grp.Wait(); err != nil {
		return &config.InternalInvariantError{Invariant: "worker pool", Detail: err.Error()}
	}
	q.Close()
	return firstErr
}

// extendOne runs one query through hit grouping and the extension
// pipeline against every target in db (spec.md §4.3, §4.4).
func extendOne(sc scoring.Context, db dbstore.Database, qr queryRecord, pp extend.PipelineParams) ([]extend.OutputHSP, error) {
	if len(qr.residues) == 0 {
		return nil, nil // spec.md §8: "Empty query -> query emitted with 0 HSPs"
	}
	qctx := seedhit.QueryContext{Frames: [][]byte{qr.residues}, Length: len(qr.residues)}
	grouper := seedhit.DefaultGrouper{XDrop: 20}

	var targets []*seedhit.Target
	n := db.Len()
	for i := 0; i < n; i++ {
		subject, err := db.Sequence(int64(i))
		if err != nil {
			return nil, &config.IOError{Path: fmt.Sprintf("block %d", i), Err: err}
		}
		idx := seeding.Build(subject, seeding.DefaultKmerSize)
		hits := idx.Hits(uint32(qr.index), qr.residues)
		if len(hits) == 0 {
			continue
		}
		subjectIndex := int64(i)
		resolve := func(uint64) int64 { return subjectIndex }
		lookup := func(int64) []byte { return subject }
		ts := grouper.Group(sc, qctx, hits, resolve, lookup)
		targets = append(targets, ts...)
	}
	if len(targets) == 0 {
		return nil, nil
	}

	pl := extend.BandedSwipePipeline{Params: pp}
	survivors := pl.Run(sc, qctx, targets, func(subjectID int64) []byte {
		subject, _ := db.Sequence(subjectID)
		return subject
	})
	return extend.SortOutputOrder(survivors), nil
}

// writerFor builds the per-query writeFunc and, for the two formats that
// carry cross-query state (DAA's trailing dictionary, the intermediate
// format's end-of-file sentinel), the finish step that must run once
// after every query has been written (spec.md §6.4).
func writerFor(sc scoring.Context, assembler output.Assembler, out io.Writer, db dbstore.Database) (writeFunc, func() error, error) {
	switch assembler.Format {
	case output.FormatDAA:
		dw, err := output.NewDAAWriter(out, output.DAAHeader2{MatrixName: "BLOSUM62"})
		if err != nil {
			return nil, nil, err
		}
		write := func(q output.Query, ordered []extend.OutputHSP) error {
			return dw.WriteQuery(q, assembler, ordered)
		}
		return write, func() error { return dw.Finish(db) }, nil
	case output.FormatIntermediate:
		write := func(q output.Query, ordered []extend.OutputHSP) error {
			return output.WriteIntermediate(out, q, assembler, ordered)
		}
		return write, func() error { return output.FinishIntermediateFile(out) }, nil
	default:
		write := func(q output.Query, ordered []extend.OutputHSP) error {
			return output.WriteQuery(out, sc, q, assembler, ordered)
		}
		return write, nil, nil
	}
}

func loadQueries(path string) ([]queryRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}

	reader := fasta.NewReader(r)
	var queries []queryRecord
	for i := 0; ; i++ {
		seq, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		title := seq.Name
		if idx := strings.IndexAny(title, " \t"); idx >= 0 {
			title = title[:idx]
		}
		queries = append(queries, queryRecord{index: i, title: title, residues: seq.Residues})
	}
	return queries, nil
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, &config.IOError{Path: path, Err: err}
	}
	return f, func() { f.Close() }, nil
}

func reportAndExit(log *logging.Logger, err error) int {
	code := config.ExitCodeFor(err)
	log.Errorf("%s", err)
	return int(code)
}
