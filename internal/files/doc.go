// Package files finds TR_J1 report files on disk and writes export files.
//
// Discovery lists .csv, .tsv and .xlsx reports in a directory, skipping
// hidden files and spreadsheet lock files. Manager writes exports under a
// base directory using a temporary file and rename.
package files
