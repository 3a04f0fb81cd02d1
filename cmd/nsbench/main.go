// Command nsbench measures scan throughput against a target directory,
// comparing the Go regexp engine against Hyperscan when available.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/nosecrets/nosecrets/pkg/engine"
	"github.com/nosecrets/nosecrets/pkg/rules"
	"github.com/nosecrets/nosecrets/pkg/scan"
	"github.com/nosecrets/nosecrets/pkg/suppress"
)

type benchResult struct {
	Engine          string
	RuleCount       int
	FilesScanned    int64
	FilesSkipped    int64
	TotalBytes      int64
	FindingsFound   int
	ScanDuration    time.Duration
	CompileDuration time.Duration
	ThroughputMBPS  float64
}

func main() {
	target := flag.String("dir", ".", "directory to scan")
	engineFlag := flag.String("engine", "all", "engine to benchmark: go, hyperscan, or all")
	flag.Parse()

	if *engineFlag != "go" && *engineFlag != "hyperscan" && *engineFlag != "all" {
		log.Fatalf("invalid engine %q: must be go, hyperscan, or all", *engineFlag)
	}

	if _, err := os.Stat(*target); os.IsNotExist(err) {
		log.Fatalf("benchmark directory %s does not exist", *target)
	}

	raw, err := rules.LoadDefaultRules()
	if err != nil {
		log.Fatalf("loading default rules: %v", err)
	}
	crs, _, err := rules.Compile(raw)
	if err != nil {
		log.Fatalf("compiling rules: %v", err)
	}

	fmt.Printf("=== nosecrets benchmark ===\n")
	fmt.Printf("target: %s\n", *target)
	fmt.Printf("rules:  %d\n\n", len(crs.Rules))

	var input scan.ScanInput
	err = filepath.Walk(*target, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		input.Files = append(input.Files, scan.FileSource{Path: p})
		return nil
	})
	if err != nil {
		log.Fatalf("walking %s: %v", *target, err)
	}

	var results []benchResult
	if *engineFlag == "go" || *engineFlag == "all" {
		results = append(results, runBench("go", crs, input))
	}
	if *engineFlag == "hyperscan" || *engineFlag == "all" {
		hs, err := engine.NewHyperscanEngine(crs)
		if err != nil {
			if *engineFlag == "hyperscan" {
				log.Fatalf("hyperscan unavailable: %v", err)
			}
			fmt.Println("hyperscan engine unavailable, skipping")
		} else {
			results = append(results, runBenchEngine("hyperscan", hs, crs, input))
			_ = hs.Close()
		}
	}

	printSummary(results)
}

func runBench(name string, crs *rules.CompiledRuleSet, input scan.ScanInput) benchResult {
	return runBenchEngine(name, engine.NewGoEngine(), crs, input)
}

func runBenchEngine(name string, eng engine.MatchEngine, crs *rules.CompiledRuleSet, input scan.ScanInput) benchResult {
	compileStart := time.Now()
	scanner := scan.NewScanner(crs, suppress.Default(), &suppress.IgnoreFile{}, eng)
	scanner.WorkerCount = runtime.NumCPU()
	compileDuration := time.Since(compileStart)

	scanStart := time.Now()
	result, err := scanner.Scan(context.Background(), input)
	if err != nil {
		log.Fatalf("scan failed for %s engine: %v", name, err)
	}
	scanDuration := time.Since(scanStart)

	r := benchResult{
		Engine:          name,
		RuleCount:       len(crs.Rules),
		FilesScanned:    result.FilesScanned,
		FilesSkipped:    result.FilesSkipped,
		TotalBytes:      result.TotalBytes,
		FindingsFound:   len(result.Findings),
		ScanDuration:    scanDuration,
		CompileDuration: compileDuration,
	}
	if scanDuration.Seconds() > 0 {
		r.ThroughputMBPS = float64(result.TotalBytes) / (1024 * 1024) / scanDuration.Seconds()
	}
	printResult(r)
	return r
}

func printResult(r benchResult) {
	fmt.Printf("engine: %s\n", r.Engine)
	fmt.Printf("  files scanned:  %d\n", r.FilesScanned)
	fmt.Printf("  files skipped:  %d\n", r.FilesSkipped)
	fmt.Printf("  content:        %s\n", humanize.Bytes(uint64(r.TotalBytes)))
	fmt.Printf("  findings:       %d\n", r.FindingsFound)
	fmt.Printf("  scan duration:  %v\n", r.ScanDuration)
	fmt.Printf("  throughput:     %.2f MB/s\n\n", r.ThroughputMBPS)
}

func printSummary(results []benchResult) {
	fmt.Println("=== summary ===")
	fmt.Printf("%-12s %-10s %-14s %-12s\n", "engine", "findings", "scan(ms)", "MB/s")
	for _, r := range results {
		fmt.Printf("%-12s %-10d %-14.1f %-12.2f\n",
			r.Engine, r.FindingsFound, float64(r.ScanDuration.Nanoseconds())/1e6, r.ThroughputMBPS)
	}
}
