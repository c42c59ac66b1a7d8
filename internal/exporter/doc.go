// Package exporter writes estimation results to disk: legislator
// coordinates and bill parameters as CSV, run summaries as JSON, and a
// multi-sheet XLSX workbook for spreadsheet consumers.
package exporter
