package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"shadowswap/capture"
	"shadowswap/util"
	"shadowswap/wire"
	"strings"
)

func main() {
	dir := flag.String("dir", "", "Only show datagrams in this direction: in or out")
	tag := flag.String("tag", "", "Only show datagrams with this tag, e.g. PLAYER or SCORE")
	hex := flag.String("hex", "", "Decode one datagram given as hex pairs, e.g. \"04 2A 00 00 00 00 01\", instead of reading a file")
	flag.Usage = func() {
		_, _ = fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <capture file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *hex != "" {
		if err := decodeHex(*hex, os.Stdout); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		return
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := dump(flag.Arg(0), os.Stdout, *dir, strings.ToUpper(*tag)); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func dump(path string, out io.Writer, dir string, tag string) error {
	r, err := capture.Open(path)
	if err != nil {
		return err
	}
	defer func(r *capture.Reader) {
		_ = r.Close()
	}(r)

	if _, err = fmt.Fprint(out, capture.TableHeader); err != nil {
		return err
	}

	counts := map[capture.Direction]int{}
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("capture is damaged after %d records: %w", counts[capture.DirectionIn]+counts[capture.DirectionOut], err)
		}

		if dir != "" && rec.Direction.String() != dir {
			continue
		}
		if tag != "" && (len(rec.Data) == 0 || wire.TagToString(rec.Data[0]) != tag) {
			continue
		}

		counts[rec.Direction]++
		if _, err = fmt.Fprint(out, capture.FormatRecord(rec)); err != nil {
			return err
		}
	}

	_, err = fmt.Fprintf(out, "\n%d received, %d sent\n", counts[capture.DirectionIn], counts[capture.DirectionOut])
	return err
}

// decodeHex prints a single datagram copied out of a log line, as one table row.
func decodeHex(hexStr string, out io.Writer) error {
	data := util.HexStrToData(hexStr)
	if len(data) == 0 {
		return fmt.Errorf("not a hex datagram: %q", hexStr)
	}

	_, err := fmt.Fprint(out, capture.TableHeader, capture.FormatRecord(capture.Record{Direction: capture.DirectionIn, Data: data}))
	return err
}
