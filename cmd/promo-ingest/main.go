// Command promo-ingest normalizes a raw promo-code list into the gzipped,
// deduplicated form consumed by the server's bulk code set: one upper-case
// code per line, codes outside the valid length dropped.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"go.uber.org/zap"
)

const (
	minCodeLen = 4
	maxCodeLen = 16
)

func main() {
	in := flag.String("in", "", "input code list (one code per line, .gz supported)")
	out := flag.String("out", "promo-codes.txt.gz", "output gzipped code list")
	flag.Parse()

	if *in == "" {
		fmt.Fprintln(os.Stderr, "usage: promo-ingest -in codes.txt [-out promo-codes.txt.gz]")
		os.Exit(2)
	}

	lg := zap.Must(zap.NewProduction())
	defer func() { _ = lg.Sync() }()

	if err := run(lg, *in, *out); err != nil {
		lg.Fatal("Ingest failed", zap.Error(err))
	}
}

func run(lg *zap.Logger, inPath, outPath string) error {
	codes, err := readCodes(inPath)
	if err != nil {
		return err
	}
	lg.Info("Read codes", zap.String("file", inPath), zap.Int("unique", len(codes)))

	f, err := os.Create(outPath)
	if err != nil {
		return errors.Wrap(err, "create output")
	}
	defer f.Close()

	gz := pgzip.NewWriter(f)
	w := bufio.NewWriter(gz)
	for code := range codes {
		if _, err := w.WriteString(code + "\n"); err != nil {
			return errors.Wrap(err, "write code")
		}
	}
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, "flush output")
	}
	if err := gz.Close(); err != nil {
		return errors.Wrap(err, "close gzip stream")
	}

	lg.Info("Wrote code set", zap.String("file", outPath), zap.Int("codes", len(codes)))
	return nil
}

func readCodes(path string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open input")
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip stream")
		}
		defer gz.Close()
		r = gz
	}

	codes := make(map[string]struct{})
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 64*1024)
	for sc.Scan() {
		code := strings.ToUpper(strings.TrimSpace(sc.Text()))
		if len(code) < minCodeLen || len(code) > maxCodeLen {
			continue
		}
		codes[code] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "scan input")
	}
	return codes, nil
}
