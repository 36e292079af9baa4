// Command phash prints perceptual fingerprints of image files
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/attic-labs/kingpin"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"rescuephoto/internal/database"
	"rescuephoto/internal/imageprocessing"
)

// fileHashes is one line of `phash hash` output
type fileHashes struct {
	path   string
	size   int64
	hashes imageprocessing.Hashes
}

func main() {
	app := kingpin.New("phash", "Compute pHash and dHash fingerprints of images.")
	resampler := app.Flag("resampler", "resampling library: imaging or nfnt").Default("imaging").String()
	filter := app.Flag("filter", "resampling filter").Default("linear").String()
	workers := app.Flag("workers", "files hashed concurrently").Default("4").Int()

	hashCmd := app.Command("hash", "Print the fingerprints of each file")
	hashFilesArg := hashCmd.Arg("files", "image files").Required().ExistingFiles()

	compareCmd := app.Command("compare", "Print the Hamming distances between two files")
	first := compareCmd.Arg("first", "first image").Required().ExistingFile()
	second := compareCmd.Arg("second", "second image").Required().ExistingFile()
	maxDistance := compareCmd.Flag("max-distance", "largest distance still reported as a match").
		Default(fmt.Sprint(database.DefaultMaxDistance)).Int()

	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))
	hasher := imageprocessing.NewHasher(imageprocessing.NewDecoder(*resampler, *filter), nil)
	ctx := context.Background()

	var err error
	switch cmd {
	case hashCmd.FullCommand():
		err = printHashes(ctx, os.Stdout, hasher, *hashFilesArg, *workers)
	case compareCmd.FullCommand():
		err = printComparison(ctx, os.Stdout, hasher, *first, *second, *maxDistance)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// hashFiles hashes paths with at most workers files in flight, keeping input order
func hashFiles(ctx context.Context, hasher *imageprocessing.Hasher, paths []string, workers int) ([]fileHashes, error) {
	results := make([]fileHashes, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			st, err := f.Stat()
			if err != nil {
				return err
			}
			hashes, err := hasher.ComputePerceptualHashes(gctx, f)
			if err != nil {
				return errors.Wrap(err, path)
			}
			results[i] = fileHashes{path: path, size: st.Size(), hashes: hashes}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func printHashes(ctx context.Context, w io.Writer, hasher *imageprocessing.Hasher, paths []string, workers int) error {
	results, err := hashFiles(ctx, hasher, paths, workers)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.hashes.PHash, r.hashes.DHash, humanize.Bytes(uint64(r.size)), r.path)
	}
	return tw.Flush()
}

func printComparison(ctx context.Context, w io.Writer, hasher *imageprocessing.Hasher, first, second string, maxDistance int) error {
	results, err := hashFiles(ctx, hasher, []string{first, second}, 2)
	if err != nil {
		return err
	}
	distances, err := imageprocessing.Compare(results[0].hashes, results[1].hashes)
	if err != nil {
		return err
	}

	verdict := "different"
	if distances.Within(maxDistance) {
		verdict = "match"
	}
	fmt.Fprintf(w, "phash distance: %d\n", distances.PHash)
	fmt.Fprintf(w, "dhash distance: %d\n", distances.DHash)
	fmt.Fprintf(w, "similarity: %.2f%% (%s)\n", distances.Similarity(), verdict)
	return nil
}
