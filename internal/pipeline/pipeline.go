// Package pipeline chains the four similarity stages in-process for local
// runs and tests, standing in for the external map/reduce framework. It
// provides the sort boundaries the framework would normally guarantee
// between stages 1→2 and 3→4.
//
// The sort boundaries materialize the intermediate stream in memory, so
// this runner is for development-sized corpora; production runs use the
// stage binaries under a streaming framework that sorts externally.
package pipeline

import (
	"context"
	"io"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/cjdd3b/car-datascience-toolkit/internal/invindex"
	"github.com/cjdd3b/car-datascience-toolkit/internal/pairwise"
	"github.com/cjdd3b/car-datascience-toolkit/internal/simsum"
	"github.com/cjdd3b/car-datascience-toolkit/internal/stream"
	"github.com/cjdd3b/car-datascience-toolkit/internal/termfreq"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/metrics"
)

// Options carries the stage tunables for one pipeline run.
type Options struct {
	CorpusSize          int
	SimilarityThreshold float64
	IDPrefixLength      int
	Strict              bool
	Metrics             *metrics.Metrics
}

// Run executes the full four-stage pipeline: documents in, similarity
// records out. Each stage runs in its own goroutine connected by pipes;
// the first error cancels the rest.
func Run(ctx context.Context, opts Options, in io.Reader, out io.Writer) error {
	reducer, err := invindex.New(opts.CorpusSize, opts.Strict, opts.Metrics)
	if err != nil {
		return err
	}
	summer, err := simsum.New(opts.SimilarityThreshold, opts.IDPrefixLength, opts.Strict, opts.Metrics)
	if err != nil {
		return err
	}
	tfMapper := termfreq.New(opts.Strict, opts.Metrics)
	pairMapper := pairwise.New(opts.Strict, opts.Metrics)

	g, ctx := errgroup.WithContext(ctx)

	triplesR, triplesW := io.Pipe()
	sortedTriplesR, sortedTriplesW := io.Pipe()
	postingsR, postingsW := io.Pipe()
	pairsR, pairsW := io.Pipe()
	sortedPairsR, sortedPairsW := io.Pipe()

	g.Go(func() error {
		err := tfMapper.Run(ctx, in, triplesW)
		triplesW.CloseWithError(err)
		return err
	})
	g.Go(func() error {
		err := sortLines(triplesR, sortedTriplesW)
		triplesR.CloseWithError(err)
		sortedTriplesW.CloseWithError(err)
		return err
	})
	g.Go(func() error {
		err := reducer.Run(ctx, sortedTriplesR, postingsW)
		sortedTriplesR.CloseWithError(err)
		postingsW.CloseWithError(err)
		return err
	})
	g.Go(func() error {
		err := pairMapper.Run(ctx, postingsR, pairsW)
		postingsR.CloseWithError(err)
		pairsW.CloseWithError(err)
		return err
	})
	g.Go(func() error {
		err := sortLines(pairsR, sortedPairsW)
		pairsR.CloseWithError(err)
		sortedPairsW.CloseWithError(err)
		return err
	})
	g.Go(func() error {
		err := summer.Run(ctx, sortedPairsR, out)
		sortedPairsR.CloseWithError(err)
		return err
	})

	return g.Wait()
}

// sortLines reads the whole intermediate stream, sorts it, and replays it.
// Sorting whole lines keeps records with equal keys contiguous, which is
// all the downstream reducers require.
func sortLines(in io.Reader, out io.Writer) error {
	sc := stream.NewScanner(in)
	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return err
	}
	sort.Strings(lines)

	w := stream.NewWriter(out)
	for _, line := range lines {
		if err := w.WriteLine(line); err != nil {
			return err
		}
	}
	return w.Flush()
}
