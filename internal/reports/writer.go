// Package reports routes fetched account records into the run's output
// tables and derives the per-bucket username lists.
package reports

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Mouselip/chess-archive-parser/internal/chesscom"
)

const (
	datePrefixLayout            = "060102"
	opponentsFileName           = "opponents.txt"
	allAccountsFileName         = "all_accounts.csv"
	fairPlayFileName            = "fair_play_violations.csv"
	abuseFileName               = "abuse.csv"
	selfClosedFileName          = "self_closed.csv"
	errorLogFileName            = "errors.txt"
	usernameListSuffix          = "_usernames.txt"
	csvFileExtension            = ".csv"
	outputFilePermissions       = 0o644
	errorLineFormat             = "%s: %s\n"
	unmatchedStatusReasonFormat = "unmatched closed status '%s'"
	errMessageCreateFileFormat  = "create %s: %w"
	errMessageWriteFileFormat   = "write %s: %w"
	errMessageReadTableFormat   = "read table %s: %w"
	usernameColumnIndex         = 3
)

// csvHeaderColumns is the fixed column order of every account table.
var csvHeaderColumns = []string{
	"Player_id", "API_URL", "User_URL", "Username", "Title",
	"Followers", "Country", "Last_online", "Joined", "Status", "League",
}

type accountTable struct {
	path      string
	file      *os.File
	csvWriter *csv.Writer
}

// Writer owns the run's output files. Every file is opened once, written
// in-order by the single control thread, and closed by Close.
type Writer struct {
	outputDirectory string
	datePrefix      string
	allAccounts     *accountTable
	bucketTables    map[Classification]*accountTable
	errorLog        *os.File
}

// NewWriter opens the account tables and the error log inside the output
// directory. Every filename carries a YYMMDD prefix derived from runDate.
func NewWriter(outputDirectory string, runDate time.Time) (*Writer, error) {
	writer := &Writer{
		outputDirectory: outputDirectory,
		datePrefix:      runDate.Format(datePrefixLayout) + "-",
		bucketTables:    make(map[Classification]*accountTable),
	}

	var err error
	if writer.allAccounts, err = writer.openTable(allAccountsFileName); err != nil {
		return nil, err
	}
	bucketFileNames := map[Classification]string{
		ClassificationFairPlayViolation: fairPlayFileName,
		ClassificationAbuse:             abuseFileName,
		ClassificationSelfClosed:        selfClosedFileName,
	}
	for classification, fileName := range bucketFileNames {
		if writer.bucketTables[classification], err = writer.openTable(fileName); err != nil {
			writer.Close()
			return nil, err
		}
	}

	errorLogPath := writer.outputPath(errorLogFileName)
	if writer.errorLog, err = os.Create(errorLogPath); err != nil {
		writer.Close()
		return nil, fmt.Errorf(errMessageCreateFileFormat, errorLogPath, err)
	}
	return writer, nil
}

// WriteOpponents writes the sorted opponent list, one username per line.
func (writer *Writer) WriteOpponents(opponentUsernames []string) error {
	listPath := writer.outputPath(opponentsFileName)
	var listBuilder strings.Builder
	for _, opponentUsername := range opponentUsernames {
		listBuilder.WriteString(opponentUsername)
		listBuilder.WriteByte('\n')
	}
	if err := os.WriteFile(listPath, []byte(listBuilder.String()), outputFilePermissions); err != nil {
		return fmt.Errorf(errMessageWriteFileFormat, listPath, err)
	}
	return nil
}

// RecordError appends one "<subject>: <reason>" line to the error log.
func (writer *Writer) RecordError(subject string, reason string) error {
	if _, err := fmt.Fprintf(writer.errorLog, errorLineFormat, subject, reason); err != nil {
		return fmt.Errorf(errMessageWriteFileFormat, writer.errorLog.Name(), err)
	}
	return nil
}

// RecordAccount writes the fetched record to the all-accounts table and
// routes it to the bucket matching its status. An unrecognized closure
// status produces an error-log line instead of a bucket row.
func (writer *Writer) RecordAccount(opponentUsername string, info chesscom.AccountInfo) error {
	row := accountRow(info)
	if err := writer.allAccounts.write(row); err != nil {
		return err
	}

	classification, foldedStatus := Classify(info.Status)
	switch classification {
	case ClassificationFairPlayViolation, ClassificationAbuse, ClassificationSelfClosed:
		return writer.bucketTables[classification].write(row)
	case ClassificationUnmatchedClosed:
		return writer.RecordError(opponentUsername, fmt.Sprintf(unmatchedStatusReasonFormat, foldedStatus))
	}
	return nil
}

// WriteUsernameLists re-reads each bucket table and emits a plain-text file
// holding just the lowercase username of every row, preserving row order.
func (writer *Writer) WriteUsernameLists() error {
	for _, bucketTable := range writer.bucketTables {
		bucketTable.flush()
		usernames, readErr := readUsernameColumn(bucketTable.path)
		if readErr != nil {
			return readErr
		}
		listPath := strings.TrimSuffix(bucketTable.path, csvFileExtension) + usernameListSuffix
		var listBuilder strings.Builder
		for _, username := range usernames {
			listBuilder.WriteString(strings.ToLower(username))
			listBuilder.WriteByte('\n')
		}
		if err := os.WriteFile(listPath, []byte(listBuilder.String()), outputFilePermissions); err != nil {
			return fmt.Errorf(errMessageWriteFileFormat, listPath, err)
		}
	}
	return nil
}

// Close flushes and closes every open output file.
func (writer *Writer) Close() error {
	var firstErr error
	tables := append([]*accountTable{writer.allAccounts}, writer.bucketValues()...)
	for _, table := range tables {
		if table == nil {
			continue
		}
		if err := table.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if writer.errorLog != nil {
		if err := writer.errorLog.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (writer *Writer) bucketValues() []*accountTable {
	values := make([]*accountTable, 0, len(writer.bucketTables))
	for _, table := range writer.bucketTables {
		values = append(values, table)
	}
	return values
}

func (writer *Writer) openTable(fileName string) (*accountTable, error) {
	tablePath := writer.outputPath(fileName)
	file, createErr := os.Create(tablePath)
	if createErr != nil {
		return nil, fmt.Errorf(errMessageCreateFileFormat, tablePath, createErr)
	}
	table := &accountTable{path: tablePath, file: file, csvWriter: csv.NewWriter(file)}
	if err := table.write(csvHeaderColumns); err != nil {
		file.Close()
		return nil, err
	}
	return table, nil
}

func (writer *Writer) outputPath(fileName string) string {
	return filepath.Join(writer.outputDirectory, writer.datePrefix+fileName)
}

func (table *accountTable) write(row []string) error {
	if err := table.csvWriter.Write(row); err != nil {
		return fmt.Errorf(errMessageWriteFileFormat, table.path, err)
	}
	return nil
}

func (table *accountTable) flush() {
	table.csvWriter.Flush()
}

func (table *accountTable) close() error {
	table.csvWriter.Flush()
	if err := table.csvWriter.Error(); err != nil {
		table.file.Close()
		return fmt.Errorf(errMessageWriteFileFormat, table.path, err)
	}
	return table.file.Close()
}

func accountRow(info chesscom.AccountInfo) []string {
	return []string{
		strconv.FormatInt(info.PlayerID, 10),
		info.APIURL,
		info.UserURL,
		info.Username,
		info.Title,
		strconv.FormatInt(info.Followers, 10),
		info.CountryCode,
		strconv.FormatInt(info.LastOnline, 10),
		strconv.FormatInt(info.Joined, 10),
		info.Status,
		info.League,
	}
}

func readUsernameColumn(tablePath string) ([]string, error) {
	file, openErr := os.Open(tablePath)
	if openErr != nil {
		return nil, fmt.Errorf(errMessageReadTableFormat, tablePath, openErr)
	}
	defer file.Close()

	csvReader := csv.NewReader(file)
	rows, readErr := csvReader.ReadAll()
	if readErr != nil {
		return nil, fmt.Errorf(errMessageReadTableFormat, tablePath, readErr)
	}

	usernames := make([]string, 0, len(rows))
	for rowIndex, row := range rows {
		if rowIndex == 0 {
			continue // header
		}
		if len(row) > usernameColumnIndex {
			usernames = append(usernames, row[usernameColumnIndex])
		}
	}
	return usernames, nil
}
