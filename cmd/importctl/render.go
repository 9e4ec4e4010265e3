package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/gocarina/gocsv"

	"github.com/counterworks/pos-import/internal/domain/batch"
	"github.com/counterworks/pos-import/internal/domain/dataset"
	"github.com/counterworks/pos-import/internal/domain/detect"
	"github.com/counterworks/pos-import/internal/domain/extractor"
	"github.com/counterworks/pos-import/pkg/money"
)

func renderPlan(plan *detect.Plan, ds *dataset.Dataset) {
	fmt.Printf("%s: %d columns, %d rows (fingerprint %s)\n\n",
		ds.SourceName, len(ds.Headers), ds.RowCount(), shortFingerprint(ds.Fingerprint))

	if len(plan.Candidates) == 0 {
		fmt.Println("no extractor recognized this file")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EXTRACTOR\tCONFIDENCE\tMAPPED COLUMNS")
	for _, c := range plan.Candidates {
		marker := ""
		if c.Confidence >= plan.Threshold {
			marker = " *"
		}
		fmt.Fprintf(w, "%s%s\t%.2f\t%s\n", c.Extractor, marker, c.Confidence, describeMapping(c.Mapping, plan.Headers))
	}
	w.Flush()
	fmt.Printf("\n* above the %.2f confidence threshold\n", plan.Threshold)

	if len(plan.Suggestions) > 0 {
		fmt.Println("\nunmapped headers:")
		headers := make([]string, 0, len(plan.Suggestions))
		for h := range plan.Suggestions {
			headers = append(headers, h)
		}
		sort.Strings(headers)
		for _, h := range headers {
			var opts []string
			for _, s := range plan.Suggestions[h] {
				opts = append(opts, fmt.Sprintf("%s (%.2f)", s.Field, s.Score))
			}
			fmt.Printf("  %-20s could be %s\n", h, strings.Join(opts, ", "))
		}
	}
}

func describeMapping(m extractor.Mapping, headers []string) string {
	if len(m) == 0 {
		return "-"
	}
	fields := make([]string, 0, len(m))
	for f := range m {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		idx := m[f]
		header := fmt.Sprintf("col %d", idx)
		if idx >= 0 && idx < len(headers) {
			header = headers[idx]
		}
		parts = append(parts, fmt.Sprintf("%s=%s", f, header))
	}
	return strings.Join(parts, " ")
}

func renderPreview(name string, confidence float64, result *extractor.Result, limit int) {
	fmt.Printf("== %s (confidence %.2f): %d records ==\n", name, confidence, len(result.Records))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	shown := 0
	for _, rec := range result.Records {
		if shown >= limit {
			fmt.Fprintf(w, "... %d more\n", len(result.Records)-shown)
			break
		}
		fmt.Fprintln(w, describeRecord(rec))
		shown++
	}
	w.Flush()

	for _, issue := range result.Issues {
		fmt.Printf("  [%s] %s: %s\n", issue.Severity, issue.Code, issue.Message)
	}
	if len(result.Metadata) > 0 {
		keys := make([]string, 0, len(result.Metadata))
		for k := range result.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %s: %s\n", k, result.Metadata[k])
		}
	}
	fmt.Println()
}

func describeRecord(rec extractor.Record) string {
	switch rec.Type {
	case extractor.EntitySellable:
		s := rec.Sellable
		price := "-"
		if s.HasPrice {
			price = money.DisplayDecimal(s.BasePrice)
		}
		return fmt.Sprintf("sellable\t%s\t%s\t%s\t%s", s.Name, s.ProductType, price, s.Category)
	case extractor.EntityVariant:
		v := rec.Variant
		adjustment := "-"
		if v.PriceAdjustment != nil {
			adjustment = money.DisplayAdjustment(*v.PriceAdjustment)
		}
		return fmt.Sprintf("variant\t%s\t%s\t%s\t", v.Name, v.SizeCode, adjustment)
	case extractor.EntityCustomer:
		c := rec.Customer
		kind := ""
		if c.Fallback {
			kind = "fallback (" + c.Mode + ")"
		}
		return fmt.Sprintf("customer\t%s\t%s\t%d rows\t%s", c.Name, c.Email, c.RowCount, kind)
	case extractor.EntityLocation:
		l := rec.Location
		return fmt.Sprintf("location\t%s\t%s\t%s\t%d rows", l.Name, l.Type, l.ExternalID, l.RowCount)
	}
	return string(rec.Type) + "\t" + rec.Key
}

func renderBatch(b *batch.ImportBatch) {
	fmt.Printf("batch %s (%s)\n", b.ID, b.Name)
	fmt.Printf("  status    %s\n", b.Status)
	fmt.Printf("  source    %s\n", b.SourceName)
	fmt.Printf("  rows      %d (%d%% processed)\n", b.TotalRows, b.ProgressPercent())
	fmt.Printf("  created   %d\n", b.CreatedCount)
	fmt.Printf("  found     %d\n", b.FoundCount)
	fmt.Printf("  updated   %d\n", b.UpdatedCount)
	fmt.Printf("  errors    %d\n", b.ErrorCount)

	if len(b.EntityCounts) > 0 {
		keys := make([]string, 0, len(b.EntityCounts))
		for k := range b.EntityCounts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %-24s %d\n", k, b.EntityCounts[k])
		}
	}
}

func renderBatchList(batches []*batch.ImportBatch) {
	if len(batches) == 0 {
		fmt.Println("no batches")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tROWS\tCREATED\tFOUND\tERRORS\tWHEN")
	for _, b := range batches {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			b.ID, b.Name, b.Status, b.TotalRows, b.CreatedCount, b.FoundCount, b.ErrorCount,
			b.CreatedAt.Format("2006-01-02 15:04"))
	}
	w.Flush()
}

// errorReportRow is the CSV shape of one row error.
type errorReportRow struct {
	Row     int    `csv:"row"`
	Code    string `csv:"code"`
	Message string `csv:"message"`
}

// writeErrorReport exports row errors as CSV for operator review.
func writeErrorReport(path string, errs []batch.ImportError) error {
	rows := make([]errorReportRow, len(errs))
	for i, e := range errs {
		rows[i] = errorReportRow{Row: e.Row, Code: e.Code, Message: e.Message}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create error report: %w", err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return fmt.Errorf("failed to write error report: %w", err)
	}
	return nil
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
