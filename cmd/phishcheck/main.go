package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"phishing-check/backend/internal/config"
	"phishing-check/backend/internal/phishtank"
	"phishing-check/backend/internal/verdict"
)

const (
	exitClean   = 0
	exitFlagged = 1
	exitUsage   = 2
)

func main() {
	cfg := config.Load()
	logrus.SetLevel(cfg.LogLevel)
	os.Exit(run(os.Args[1:], cfg.PhishTank, os.Stdout, os.Stderr))
}

func run(args []string, ptCfg phishtank.Config, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("phishcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	timeout := fs.Duration("timeout", ptCfg.Timeout, "per-lookup timeout (default 10s)")
	asJSON := fs.Bool("json", false, "print verdicts as JSON lines")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: phishcheck [-timeout d] [-json] domain...")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	var domains []string
	for _, arg := range fs.Args() {
		if d := strings.TrimSpace(arg); d != "" {
			domains = append(domains, d)
		}
	}
	if len(domains) == 0 {
		fs.Usage()
		return exitUsage
	}

	ptCfg.Timeout = *timeout
	resolver := verdict.NewResolver(phishtank.NewClient(ptCfg))

	code := exitClean
	enc := json.NewEncoder(stdout)
	for _, domain := range domains {
		res := resolver.Inspect(context.Background(), domain)
		if res.Verdict.IsPhishing {
			code = exitFlagged
		}
		if *asJSON {
			if err := enc.Encode(res.Verdict); err != nil {
				fmt.Fprintf(stderr, "write verdict: %v\n", err)
			}
			continue
		}
		printResolution(stdout, res)
	}
	return code
}

func printResolution(w io.Writer, res verdict.Resolution) {
	label := color.New(color.FgGreen, color.Bold).Sprint("CLEAN")
	switch {
	case res.Verdict.IsPhishing:
		label = color.New(color.FgRed, color.Bold).Sprint("PHISH")
	case res.Outcome != verdict.OutcomeClassified:
		label = color.New(color.FgYellow).Sprint("UNKNOWN")
	}
	fmt.Fprintf(w, "%-7s %s  %s %s\n", label, res.Domain, res.Verdict.Message,
		color.New(color.FgHiBlack).Sprintf("(%s)", time.Duration(res.DurationMs)*time.Millisecond))
}
