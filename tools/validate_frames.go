//go:build ignore

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/muurk/goveectl/internal/protocol"
)

// LoggedFrame matches the "Frame written" entries of a goveectl --log-file
type LoggedFrame struct {
	Time    string `json:"T"`
	Message string `json:"M"`
	Address string `json:"address"`
	Frame   string `json:"frame"` // "index/total", 1-based
	Hex     string `json:"hex"`
}

// Statistics tracks validation results
type Statistics struct {
	TotalFiles   int
	TotalFrames  int
	ValidFrames  int
	Sequences    int
	Reassembled  int
	FrameKinds   map[string]int
	ControlCodes map[byte]int
	FailedFrames []FailedFrame
}

// FailedFrame stores information about validation failures
type FailedFrame struct {
	File       string
	LineNumber int
	Address    string
	Hex        string
	Error      string
}

// pending collects the frames of one sequence per device
type pending struct {
	total  int
	frames []protocol.Frame
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: validate_frames <log-file-or-directory>")
		fmt.Println("Example: goveectl power on desk --log-file goveectl.log")
		fmt.Println("         go run tools/validate_frames.go goveectl.log")
		os.Exit(1)
	}

	path := os.Args[1]

	stats := Statistics{
		FrameKinds:   make(map[string]int),
		ControlCodes: make(map[byte]int),
	}

	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Error accessing path: %v\n", err)
		os.Exit(1)
	}

	var files []string
	if info.IsDir() {
		files, err = filepath.Glob(filepath.Join(path, "*.log"))
		if err != nil {
			fmt.Printf("Error finding log files: %v\n", err)
			os.Exit(1)
		}
		if len(files) == 0 {
			fmt.Printf("No .log files found in %s\n", path)
			os.Exit(1)
		}
		sort.Strings(files)
	} else {
		files = []string{path}
	}

	fmt.Printf("=== Govee Frame Validator ===\n")
	fmt.Printf("Files to process: %d\n\n", len(files))

	for _, file := range files {
		processFile(file, &stats)
	}

	printStatistics(&stats)
	if len(stats.FailedFrames) > 0 {
		os.Exit(1)
	}
}

func processFile(filename string, stats *Statistics) {
	stats.TotalFiles++

	f, err := os.Open(filename)
	if err != nil {
		fmt.Printf("Error reading file %s: %v\n", filename, err)
		return
	}
	defer f.Close()

	open := make(map[string]*pending)
	fail := func(line int, entry LoggedFrame, msg string) {
		stats.FailedFrames = append(stats.FailedFrames, FailedFrame{
			File:       filename,
			LineNumber: line,
			Address:    entry.Address,
			Hex:        entry.Hex,
			Error:      msg,
		})
	}

	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 || line[0] != '{' {
			continue
		}

		var entry LoggedFrame
		if err := json.Unmarshal(line, &entry); err != nil || entry.Message != "Frame written" {
			continue
		}
		stats.TotalFrames++

		frame, err := protocol.ParseHexFrame(entry.Hex)
		if err != nil {
			fail(lineNum, entry, err.Error())
			delete(open, entry.Address)
			continue
		}
		stats.ValidFrames++
		stats.FrameKinds[frame.Kind().String()]++
		if frame.Kind() == protocol.FrameControl {
			stats.ControlCodes[frame.Code()]++
		}

		index, total, err := parsePosition(entry.Frame)
		if err != nil {
			fail(lineNum, entry, err.Error())
			continue
		}
		if total == 1 {
			stats.Sequences++
			continue
		}

		// Multi-frame sequence: collect until complete, then reassemble
		if index == 1 {
			open[entry.Address] = &pending{total: total}
		}
		p, ok := open[entry.Address]
		if !ok || p.total != total {
			fail(lineNum, entry, fmt.Sprintf("frame %s without a lead frame", entry.Frame))
			continue
		}
		p.frames = append(p.frames, frame)
		if len(p.frames) < p.total {
			continue
		}

		delete(open, entry.Address)
		stats.Sequences++
		if _, err := protocol.Reassemble(p.frames, 1); err != nil {
			fail(lineNum, entry, fmt.Sprintf("reassembly failed: %v", err))
			continue
		}
		stats.Reassembled++
	}

	if err := scanner.Err(); err != nil {
		fmt.Printf("Error reading file %s: %v\n", filename, err)
	}
	for address, p := range open {
		stats.FailedFrames = append(stats.FailedFrames, FailedFrame{
			File:    filename,
			Address: address,
			Error:   fmt.Sprintf("incomplete sequence: %d of %d frames", len(p.frames), p.total),
		})
	}
}

// parsePosition splits "index/total"
func parsePosition(s string) (int, int, error) {
	idx, total, ok := strings.Cut(s, "/")
	if !ok {
		return 0, 0, fmt.Errorf("bad frame position %q", s)
	}
	i, err := strconv.Atoi(idx)
	if err != nil {
		return 0, 0, fmt.Errorf("bad frame position %q", s)
	}
	n, err := strconv.Atoi(total)
	if err != nil || i < 1 || i > n {
		return 0, 0, fmt.Errorf("bad frame position %q", s)
	}
	return i, n, nil
}

func printStatistics(stats *Statistics) {
	fmt.Printf("\n========================================\n")
	fmt.Printf("VALIDATION RESULTS\n")
	fmt.Printf("========================================\n\n")

	fmt.Printf("Files Processed:    %d\n", stats.TotalFiles)
	fmt.Printf("Total Frames:       %d\n", stats.TotalFrames)
	if stats.TotalFrames > 0 {
		fmt.Printf("Valid Frames:       %d (%.2f%%)\n", stats.ValidFrames,
			float64(stats.ValidFrames)/float64(stats.TotalFrames)*100)
	}
	fmt.Printf("Sequences:          %d\n", stats.Sequences)
	fmt.Printf("Reassembled:        %d\n", stats.Reassembled)

	fmt.Printf("\n----------------------------------------\n")
	fmt.Printf("FRAME KIND DISTRIBUTION\n")
	fmt.Printf("----------------------------------------\n")
	for kind, count := range stats.FrameKinds {
		fmt.Printf("%-14s %d\n", kind, count)
	}

	if len(stats.ControlCodes) > 0 {
		fmt.Printf("\n----------------------------------------\n")
		fmt.Printf("CONTROL COMMANDS\n")
		fmt.Printf("----------------------------------------\n")
		for code, count := range stats.ControlCodes {
			fmt.Printf("0x%02x (%s): %d\n", code, protocol.CommandCodeName(code), count)
		}
	}

	if len(stats.FailedFrames) > 0 {
		fmt.Printf("\n----------------------------------------\n")
		fmt.Printf("FAILURES (%d total)\n", len(stats.FailedFrames))
		fmt.Printf("----------------------------------------\n")

		maxShow := 10
		if len(stats.FailedFrames) > maxShow {
			fmt.Printf("(Showing first %d of %d failures)\n", maxShow, len(stats.FailedFrames))
		}

		for i, failed := range stats.FailedFrames {
			if i >= maxShow {
				break
			}
			fmt.Printf("\nFailure #%d:\n", i+1)
			fmt.Printf("  File: %s (line %d, device %s)\n", failed.File, failed.LineNumber, failed.Address)
			fmt.Printf("  Error: %s\n", failed.Error)
			if failed.Hex != "" {
				fmt.Printf("  Frame: %s\n", failed.Hex)
			}
		}
	}

	fmt.Printf("\n========================================\n")
	if len(stats.FailedFrames) == 0 {
		fmt.Printf("✅ SUCCESS: All frames valid!\n")
	} else {
		fmt.Printf("⚠️  ISSUES FOUND: %d failures\n", len(stats.FailedFrames))
	}
	fmt.Printf("========================================\n")
}
