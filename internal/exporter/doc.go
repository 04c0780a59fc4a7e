// Package exporter writes the pipelines' tables to disk.
//
// CSVWriter resolves relative paths against the configured base directory
// and writes either whole files or streams. Table describes the column
// layout of each domain row type once, so the same layout drives CSV files
// (via WriteTable) and Excel workbooks (via SheetOf and WriteWorkbook).
//
// Missing numeric values are written as empty cells in both formats.
package exporter
