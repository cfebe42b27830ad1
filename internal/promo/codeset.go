package promo

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
)

const (
	codeSetFPR = 0.001
	minCodeLen = 4
	maxCodeLen = 16
)

// CodeSet is a membership set over a bulk promo-code list. Codes are held in
// a bloom filter sized for the list, so memory stays bounded for very large
// code drops; the false-positive rate only ever grants the default bulk
// discount to a code that should have been rejected.
type CodeSet struct {
	filter *bloom.BloomFilter
	count  int
}

// LoadCodeSet reads a newline-separated code list from path. Files ending in
// .gz are decompressed on the fly. Codes are upper-cased; lines outside the
// valid code length are dropped.
func LoadCodeSet(path string) (*CodeSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open code list")
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

	codes, err := readCodes(r)
	if err != nil {
		return nil, err
	}
	return newCodeSet(codes), nil
}

func newCodeSet(codes []string) *CodeSet {
	n := uint(len(codes))
	if n == 0 {
		n = 1
	}
	filter := bloom.NewWithEstimates(n, codeSetFPR)
	for _, code := range codes {
		filter.AddString(code)
	}
	return &CodeSet{filter: filter, count: len(codes)}
}

// Contains reports whether code is (probably) in the set. The caller is
// expected to pass an already-normalized upper-case code.
func (s *CodeSet) Contains(code string) bool {
	return s.filter.TestString(code)
}

// Len returns the number of codes loaded.
func (s *CodeSet) Len() int {
	return s.count
}

func readCodes(r io.Reader) ([]string, error) {
	var codes []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 64*1024)
	for sc.Scan() {
		code := strings.ToUpper(strings.TrimSpace(sc.Text()))
		if len(code) < minCodeLen || len(code) > maxCodeLen {
			continue
		}
		codes = append(codes, code)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "scan code list")
	}
	return codes, nil
}
