// Command sweeper runs a one-shot slope sweep over an already-vectorized
// corpus: it reads labelled train/test term-count vectors from a JSON file,
// evaluates each candidate slope with the stand-in centroid classifier, and
// prints the accuracy table with the winning slope.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lexstat/pivotnorm/internal/eval"
	"github.com/lexstat/pivotnorm/internal/normd"
	"github.com/lexstat/pivotnorm/internal/weighting"
	"github.com/lexstat/pivotnorm/pkg/logger"
)

type corpusFile struct {
	Train       []weighting.CountVector `json:"train"`
	TrainLabels []int                   `json:"train_labels"`
	Test        []weighting.CountVector `json:"test"`
	TestLabels  []int                   `json:"test_labels"`
	VocabSize   int                     `json:"vocab_size"`
}

func main() {
	corpusPath := flag.String("corpus", "", "path to JSON corpus file (train/test vectors + labels)")
	slopeFrom := flag.Float64("from", 0.0, "first candidate slope")
	slopeTo := flag.Float64("to", 1.0, "last candidate slope")
	slopeStep := flag.Float64("step", 0.1, "slope increment")
	pivotFlag := flag.String("pivot", "auto", `pivot value or "auto"`)
	concurrency := flag.Int("concurrency", 4, "concurrent sweep candidates")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	logger.Setup(*logLevel, "text")

	if *corpusPath == "" {
		fmt.Fprintln(os.Stderr, "usage: sweeper -corpus corpus.json [-from 0 -to 1 -step 0.1]")
		os.Exit(2)
	}
	if *slopeStep <= 0 || *slopeTo < *slopeFrom {
		fmt.Fprintln(os.Stderr, "invalid slope range")
		os.Exit(2)
	}

	data, err := os.ReadFile(*corpusPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read corpus: %v\n", err)
		os.Exit(1)
	}
	var corpus corpusFile
	if err := json.Unmarshal(data, &corpus); err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse corpus: %v\n", err)
		os.Exit(1)
	}

	var pivot weighting.PivotSetting
	if *pivotFlag == weighting.PivotAuto {
		pivot = weighting.AutoPivot()
	} else {
		var v float64
		if _, err := fmt.Sscanf(*pivotFlag, "%g", &v); err != nil || v <= 0 {
			fmt.Fprintf(os.Stderr, "invalid pivot %q\n", *pivotFlag)
			os.Exit(2)
		}
		pivot = weighting.FixedPivot(v)
	}

	var slopes []float64
	for s := *slopeFrom; s <= *slopeTo+1e-9; s += *slopeStep {
		slopes = append(slopes, s)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := eval.NewSweeper(
		func() eval.Classifier { return normd.NewCentroidClassifier() },
		pivot,
		*concurrency,
	)
	report, err := sweeper.Run(ctx, eval.Split{
		Train:       corpus.Train,
		TrainLabels: corpus.TrainLabels,
		Test:        corpus.Test,
		TestLabels:  corpus.TestLabels,
		VocabSize:   corpus.VocabSize,
	}, slopes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sweep failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%-10s %s\n", "slope", "accuracy")
	for _, r := range report.Results {
		marker := ""
		if r.Slope == report.Best.Slope {
			marker = "  <- best"
		}
		fmt.Printf("%-10.3f %.4f%s\n", r.Slope, r.Accuracy, marker)
	}
	fmt.Printf("\nbest slope %.3f (accuracy %.4f) in %s\n",
		report.Best.Slope, report.Best.Accuracy, report.Elapsed)
}
