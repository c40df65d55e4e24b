// Command mailscore-check scores email addresses from the command line.
//
//	mailscore-check alice@example.com bob@gmial.com
//	cat list.txt | mailscore-check -bulk
//
// It prints one JSON result per address (or a single bulk envelope with
// -bulk) and exits with status 1 when any address is not valid.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/optimode/mailscore"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("mailscore-check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	bulk := fs.Bool("bulk", false, "print a single {count, results} envelope")
	timeout := fs.Duration("timeout", mailscore.DefaultMXTimeout, "MX lookup timeout")
	verbose := fs.Bool("v", false, "log soft lookup failures to stderr")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	emails := fs.Args()
	if len(emails) == 0 {
		var err error
		emails, err = readLines(stdin)
		if err != nil {
			fmt.Fprintln(stderr, "reading stdin:", err)
			return 2
		}
	}
	if len(emails) == 0 {
		fs.Usage()
		return 2
	}

	logger := zap.NewNop()
	if *verbose {
		logger, _ = zap.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()

	v := mailscore.New().
		WithLogger(logger).
		WithMXTimeout(*timeout).
		WithCache()
	defer func() { _ = v.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout+30*time.Second)
	defer cancel()

	results, err := v.ValidateMany(ctx, emails)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 2
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if *bulk {
		_ = enc.Encode(mailscore.BulkResult{Count: len(results), Results: results})
	} else {
		for _, r := range results {
			_ = enc.Encode(r)
		}
	}

	for _, r := range results {
		if !r.Valid {
			return 1
		}
	}
	return 0
}

// readLines returns the non-blank, trimmed lines of r.
func readLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	return out, sc.Err()
}
