// Package report turns a directory of flat result files into one table.
//
// Two readers are provided:
//   - ExportKV flattens generic "key value" files into a table whose header
//     is taken from the first file
//   - Summarize extracts CACTI metrics from *.out reports written by the
//     runner, classifying each file as valid, invalid or error
//
// Tables are written as CSV (WriteCSV) or into a fresh SQLite database
// (WriteSQLite).
package report
