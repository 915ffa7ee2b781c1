package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

type LogStats struct {
	TotalErrors        int
	TotalWarnings      int
	OrdersCreated      int
	PaymentsCredited   int
	AlreadyProcessed   int
	OrdersFailed       int
	RefundsRecorded    int
	GatewayFailures    int
	WebhooksConfirmed  int
	SignatureFailures  int
	WebhookSigFailures int
	RateLimited        int
	AccessDenied       int
	ManualReview       []string
	CoachingActivity   map[string]int
	ErrorPatterns      map[string]int
}

var (
	coachingRegex = regexp.MustCompile(`coaching[ _]?(?:id)?"?[:= ]+(\d+)`)
	// ids and amounts vary per line; strip them so messages group
	numberRegex = regexp.MustCompile(`\b(?:order|pay|rfnd|acc)_[A-Za-z0-9]+\b|[0-9a-f]{8}-[0-9a-f-]{27}|\d+(?:\.\d+)?`)
)

func main() {
	// Get today's date for log file names
	today := time.Now().Format("2006-01-02")
	logDir := flag.String("dir", "./logs", "directory LOG_DIR points at")
	date := flag.String("date", today, "day to analyze (YYYY-MM-DD)")
	flag.Parse()

	// Initialize stats
	stats := &LogStats{
		CoachingActivity: make(map[string]int),
		ErrorPatterns:    make(map[string]int),
	}

	analyzeLog(filepath.Join(*logDir, fmt.Sprintf("tutorix-%s.log", *date)), stats)

	// Print report
	printReport(*date, stats)
}

func analyzeLog(logFile string, stats *LogStats) {
	file, err := os.Open(logFile)
	if err != nil {
		fmt.Printf("Error opening log file %s: %v\n", logFile, err)
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.Contains(line, "ERROR"), strings.Contains(line, `"level":"error"`):
			stats.TotalErrors++
			extractErrorPattern(line, stats)
		case strings.Contains(line, "WARN"), strings.Contains(line, `"level":"warn"`):
			stats.TotalWarnings++
		}

		// Payment lifecycle
		switch {
		case strings.Contains(line, "Created payment order"), strings.Contains(line, "Created multi-pay order"):
			stats.OrdersCreated++
			extractCoaching(line, stats)
		case strings.Contains(line, "credited") && strings.Contains(line, "record(s) for order"):
			stats.PaymentsCredited++
		case strings.Contains(line, "already processed"):
			stats.AlreadyProcessed++
		case strings.Contains(line, "Marked payment order failed"):
			stats.OrdersFailed++
		case strings.Contains(line, "Refund") && strings.Contains(line, "recorded, record"):
			stats.RefundsRecorded++
		case strings.Contains(line, "confirmed by webhook"):
			stats.WebhooksConfirmed++
		}

		if strings.Contains(line, "Gateway") && strings.Contains(line, "failed") {
			stats.GatewayFailures++
		}
		if strings.Contains(line, "manual review needed") || strings.Contains(line, "accepted by gateway but not recorded") {
			stats.ManualReview = append(stats.ManualReview, line)
		}

		// Security events
		if strings.Contains(line, "payment_signature_invalid") {
			stats.SignatureFailures++
			extractCoaching(line, stats)
		}
		if strings.Contains(line, "webhook_signature_invalid") {
			stats.WebhookSigFailures++
		}
		if strings.Contains(line, "Rate limit exceeded") {
			stats.RateLimited++
		}
		if strings.Contains(line, "denied in coaching") {
			stats.AccessDenied++
		}
	}
}

func extractCoaching(line string, stats *LogStats) {
	if m := coachingRegex.FindStringSubmatch(line); m != nil {
		stats.CoachingActivity[m[1]]++
	}
}

func extractErrorPattern(line string, stats *LogStats) {
	// console lines are tab separated: time, level, caller, message
	msg := line
	if parts := strings.Split(line, "\t"); len(parts) >= 4 {
		msg = parts[3]
	}
	if i := strings.Index(msg, ": "); i > 0 {
		msg = msg[:i]
	}
	stats.ErrorPatterns[numberRegex.ReplaceAllString(strings.TrimSpace(msg), "#")]++
}

func printReport(date string, stats *LogStats) {
	fmt.Println("\n=== Fee Payment Log Report ===")
	fmt.Println("Day:", date, "- generated:", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Println("\n1. Payments:")
	fmt.Printf("   Orders Created: %d\n", stats.OrdersCreated)
	fmt.Printf("   Payments Credited: %d\n", stats.PaymentsCredited)
	fmt.Printf("   Replays Reported As Processed: %d\n", stats.AlreadyProcessed)
	fmt.Printf("   Orders Marked Failed: %d\n", stats.OrdersFailed)
	fmt.Printf("   Confirmed By Webhook: %d\n", stats.WebhooksConfirmed)
	fmt.Printf("   Refunds Recorded: %d\n", stats.RefundsRecorded)
	fmt.Printf("   Gateway Failures: %d\n", stats.GatewayFailures)

	fmt.Println("\n2. Security Incidents:")
	fmt.Printf("   Invalid Checkout Signatures: %d\n", stats.SignatureFailures)
	fmt.Printf("   Invalid Webhook Signatures: %d\n", stats.WebhookSigFailures)
	fmt.Printf("   Rate Limited Requests: %d\n", stats.RateLimited)
	fmt.Printf("   Role Denials: %d\n", stats.AccessDenied)

	fmt.Println("\n3. Error Statistics:")
	fmt.Printf("   Total Errors: %d\n", stats.TotalErrors)
	fmt.Printf("   Total Warnings: %d\n", stats.TotalWarnings)

	if len(stats.ManualReview) > 0 {
		fmt.Println("\n!! Needs Manual Review:")
		for _, line := range stats.ManualReview {
			fmt.Printf("   %s\n", line)
		}
	}

	fmt.Println("\n4. Most Active Coachings:")
	printTop(stats.CoachingActivity, 5, "coaching %s: %d events")

	fmt.Println("\n5. Most Common Errors:")
	printTop(stats.ErrorPatterns, 5, "%s: %d occurrences")
}

func printTop(counts map[string]int, limit int, format string) {
	type entry struct {
		key   string
		count int
	}

	var entries []entry
	for key, count := range counts {
		entries = append(entries, entry{key, count})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].key < entries[j].key
	})

	for i, e := range entries {
		if i >= limit {
			break
		}
		fmt.Printf("   "+format+"\n", e.key, e.count)
	}
}
