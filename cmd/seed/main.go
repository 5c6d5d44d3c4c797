package main

import (
	"log"
	"os"
	"path/filepath"

	"sprintquest/internal/catalog"
	"sprintquest/internal/model"
)

// Writes the starter catalogs the server loads by default
func main() {
	outDir := os.Getenv("SEED_OUT_DIR")
	if outDir == "" {
		outDir = "catalog"
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		log.Fatalf("Failed to create %s: %v", outDir, err)
	}

	if err := write(filepath.Join(outDir, "work_items.ndjson"), workItems()); err != nil {
		log.Fatalf("Failed to write work items: %v", err)
	}
	if err := write(filepath.Join(outDir, "events.ndjson"), events()); err != nil {
		log.Fatalf("Failed to write events: %v", err)
	}
	log.Printf("Seeded catalogs into %s", outDir)
}

func write[T any](path string, records []*T) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := catalog.Encode(f, records); err != nil {
		f.Close()
		return err
	}
	log.Printf("Wrote %d records to %s", len(records), path)
	return f.Close()
}

func workItems() []*model.WorkItem {
	return []*model.WorkItem{
		{
			ID: "login-loop", Title: "Fix login redirect loop", Category: model.CategoryDefect, Difficulty: 1,
			Impact:  &model.MetricDeltas{Reputation: 5, ChangeFailureRate: 3},
			Penalty: &model.MetricDeltas{Reputation: 4, Income: 2},
		},
		{
			ID: "checkout-crash", Title: "Checkout crashes on empty cart", Category: model.CategoryDefect, Difficulty: 2,
			Impact:       &model.MetricDeltas{Income: 6, Reputation: 3},
			Penalty:      &model.MetricDeltas{Income: 5},
			Consequences: []string{"payment-audit"},
		},
		{
			ID: "dark-mode", Title: "Dark mode", Category: model.CategoryFeature, Difficulty: 2,
			Impact: &model.MetricDeltas{Reputation: 6, Income: 3},
		},
		{
			ID: "sso", Title: "Single sign-on", Category: model.CategoryFeature, Difficulty: 3,
			Impact:  &model.MetricDeltas{Income: 8, Security: 2},
			Penalty: &model.MetricDeltas{Income: 2},
		},
		{
			ID: "query-cache", Title: "Cache hot catalog queries", Category: model.CategoryPerformance, Difficulty: 2,
			Impact:  &model.MetricDeltas{Performance: 8, LeadTime: 2},
			Penalty: &model.MetricDeltas{Performance: 3},
		},
		{
			ID: "waf", Title: "Put a web firewall in front of the API", Category: model.CategorySecurity, Difficulty: 2,
			Impact:       &model.MetricDeltas{Security: 10},
			Penalty:      &model.MetricDeltas{Security: 4},
			Consequences: []string{"pen-test"},
		},
		{
			ID: "pen-test", Title: "Run an external penetration test", Category: model.CategorySecurity, Difficulty: 3,
			Impact:  &model.MetricDeltas{Security: 12, Reputation: 2},
			Penalty: &model.MetricDeltas{Security: 6},
		},
		{
			ID: "ci-pipeline", Title: "Parallelise the CI pipeline", Category: model.CategoryInfrastructure, Difficulty: 2,
			Impact:  &model.MetricDeltas{DeploymentFrequency: 8, LeadTime: 6},
			Penalty: &model.MetricDeltas{LeadTime: 3},
		},
		{
			ID: "autoscaling", Title: "Autoscale the web tier", Category: model.CategoryInfrastructure, Difficulty: 3,
			Impact:  &model.MetricDeltas{Performance: 6, MTTR: 4},
			Penalty: &model.MetricDeltas{Performance: 2, MTTR: 2},
		},
		{
			ID: "alerting", Title: "Page on error-rate spikes", Category: model.CategoryMonitoring, Difficulty: 1,
			Impact:  &model.MetricDeltas{MTTR: 8},
			Penalty: &model.MetricDeltas{MTTR: 3},
		},
		{
			ID: "flaky-tests", Title: "Quarantine flaky tests", Category: model.CategoryQuality, Difficulty: 1,
			Impact:  &model.MetricDeltas{ChangeFailureRate: 6, TechDebt: 3},
			Penalty: &model.MetricDeltas{ChangeFailureRate: 3, TechDebt: 2},
		},
		{
			ID: "payment-audit", Title: "Payment provider audit", Category: model.CategoryCompliance, Difficulty: 2,
			Impact:  &model.MetricDeltas{Reputation: 4, Security: 4},
			Penalty: &model.MetricDeltas{Reputation: 6, Income: 4},
		},
	}
}

func events() []*model.GameEvent {
	return []*model.GameEvent{
		{ID: "traffic-spike", Name: "Traffic spike", Severity: model.SeverityMedium,
			Description: "A marketing campaign lands early and traffic triples.",
			Impact:      &model.MetricDeltas{Performance: -6, Income: 4}},
		{ID: "cloud-outage", Name: "Cloud region outage", Severity: model.SeverityHigh,
			Description: "The primary region goes dark for an afternoon.",
			Impact:      &model.MetricDeltas{MTTR: 8, Reputation: -6}},
		{ID: "zero-day", Name: "Zero-day in a dependency", Severity: model.SeverityCritical,
			Description: "A widely used library ships a remote code execution bug.",
			Impact:      &model.MetricDeltas{Security: -12, TechDebt: 4}},
		{ID: "key-hire", Name: "Senior engineer joins", Severity: model.SeverityLow,
			Description: "A new hire knows the codebase from a previous job.",
			Impact:      &model.MetricDeltas{LeadTime: -4, DeploymentFrequency: 3}},
		{ID: "press-review", Name: "Glowing press review", Severity: model.SeverityLow,
			Description: "A trade magazine praises the product.",
			Impact:      &model.MetricDeltas{Reputation: 6, Income: 3}},
		{ID: "bad-deploy", Name: "Bad deploy", Severity: model.SeverityMedium,
			Description: "A release goes out with a broken migration.",
			Impact:      &model.MetricDeltas{ChangeFailureRate: 8, MTTR: 4}},
		{ID: "audit-notice", Name: "Regulator audit notice", Severity: model.SeverityHigh,
			Description: "The regulator announces an audit next quarter.",
			Impact:      &model.MetricDeltas{Reputation: -4, TechDebt: 3}},
		{ID: "quiet-week", Name: "Quiet week", Severity: model.SeverityLow,
			Description: "Nothing ships and customers start to notice."},
	}
}
