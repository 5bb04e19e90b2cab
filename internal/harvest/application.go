// Package harvest wires the download-extract-fetch-classify pipeline into a
// single sequential run.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/Mouselip/chess-archive-parser/internal/archive"
	"github.com/Mouselip/chess-archive-parser/internal/chesscom"
	"github.com/Mouselip/chess-archive-parser/internal/opponents"
	"github.com/Mouselip/chess-archive-parser/internal/reports"
)

const (
	directoryPermissions = 0o755

	reasonProfileNotFound = "Not found"

	progressArchiveCountFormat    = "Found %d archives for %s\n"
	progressArchiveCachedFormat   = "%s already downloaded, skipping\n"
	progressArchiveFetchedFormat  = "Downloaded %s\n"
	progressOpponentCountFormat   = "Extracted %d distinct opponents\n"
	progressProfileFetchedFormat  = "Fetched profile for %s\n"
	progressProfileMissingFormat  = "No profile for %s (account not found)\n"
	progressRunCompleteFormat     = "Done. Reports written to %s\n"
	warningArchiveListFormat      = "warning: archive listing for %s failed: %v\n"
	warningArchiveDownloadFormat  = "warning: download of %s failed: %v\n"
	warningProfileFetchFormat     = "warning: profile fetch for %s failed: %v\n"
	errMessageCreateDirFormat     = "create directory %s: %w"
	errMessageCollectOpponents    = "collect opponents"
	errMessageCreateReportWriter  = "create report writer"
	errMessageWriteOpponents      = "write opponent list"
	errMessageWriteUsernameLists  = "write username lists"
	errMessageCloseReports        = "close report files"
	logMessageArchiveListFailed   = "archive listing failed"
	logMessageArchiveFetchFailed  = "archive download failed"
	logMessageProfileFetchFailed  = "profile fetch failed"
	logFieldTrackedUsername       = "tracked_username"
	logFieldArchiveURL            = "archive_url"
	logFieldOpponentUsername      = "opponent_username"
)

// Config is the explicit per-run configuration shared by every stage.
type Config struct {
	TrackedUsername  string
	ArchiveDirectory string
	OutputDirectory  string
}

// ReportWriter receives the classified per-opponent outcomes.
type ReportWriter interface {
	WriteOpponents(opponentUsernames []string) error
	RecordError(subject string, reason string) error
	RecordAccount(opponentUsername string, info chesscom.AccountInfo) error
	WriteUsernameLists() error
	Close() error
}

// Dependencies holds the stage implementations the pipeline runs over. Any
// nil field is replaced with the production implementation.
type Dependencies struct {
	ListArchives     func(ctx context.Context, username string) ([]string, error)
	DownloadArchive  func(ctx context.Context, username string, archiveURL string, destinationDirectory string) (string, bool, error)
	CollectOpponents func(trackedUsername string, archiveDirectory string) ([]string, error)
	FetchProfile     func(ctx context.Context, username string) (chesscom.AccountInfo, error)
	NewReportWriter  func(outputDirectory string, runDate time.Time) (ReportWriter, error)
	Clock            func() time.Time
	Logger           *zap.Logger
	Stdout           io.Writer
	Stderr           io.Writer
}

// Application executes one harvesting run.
type Application struct {
	dependencies Dependencies
}

// NewApplication builds an Application backed by the supplied API client.
func NewApplication(client *chesscom.Client, logger *zap.Logger) Application {
	dependencies := defaultDependencies(client)
	dependencies.Logger = logger
	return NewApplicationWithDependencies(dependencies)
}

// NewApplicationWithDependencies builds an Application, filling any nil
// dependency with its default.
func NewApplicationWithDependencies(dependencies Dependencies) Application {
	if dependencies.NewReportWriter == nil {
		dependencies.NewReportWriter = defaultNewReportWriter
	}
	if dependencies.CollectOpponents == nil {
		dependencies.CollectOpponents = opponents.CollectFromDirectory
	}
	if dependencies.Clock == nil {
		dependencies.Clock = time.Now
	}
	if dependencies.Logger == nil {
		dependencies.Logger = zap.NewNop()
	}
	if dependencies.Stdout == nil {
		dependencies.Stdout = os.Stdout
	}
	if dependencies.Stderr == nil {
		dependencies.Stderr = os.Stderr
	}
	return Application{dependencies: dependencies}
}

func defaultDependencies(client *chesscom.Client) Dependencies {
	return Dependencies{
		ListArchives: client.ListArchives,
		DownloadArchive: func(ctx context.Context, username string, archiveURL string, destinationDirectory string) (string, bool, error) {
			return archive.Download(ctx, client, username, archiveURL, destinationDirectory)
		},
		CollectOpponents: opponents.CollectFromDirectory,
		FetchProfile:     client.FetchProfile,
		NewReportWriter:  defaultNewReportWriter,
	}
}

func defaultNewReportWriter(outputDirectory string, runDate time.Time) (ReportWriter, error) {
	return reports.NewWriter(outputDirectory, runDate)
}

// Run drives the pipeline end to end: list archives, download whatever is
// not cached yet, extract the opponent set, fetch each opponent's profile,
// and route every outcome into the report files. Network failures degrade to
// empty or absent results; only filesystem failures abort the run.
func (application Application) Run(ctx context.Context, configuration Config) error {
	dependencies := application.dependencies

	if err := os.MkdirAll(configuration.ArchiveDirectory, directoryPermissions); err != nil {
		return fmt.Errorf(errMessageCreateDirFormat, configuration.ArchiveDirectory, err)
	}
	if err := os.MkdirAll(configuration.OutputDirectory, directoryPermissions); err != nil {
		return fmt.Errorf(errMessageCreateDirFormat, configuration.OutputDirectory, err)
	}

	reportWriter, writerErr := dependencies.NewReportWriter(configuration.OutputDirectory, dependencies.Clock())
	if writerErr != nil {
		return fmt.Errorf("%s: %w", errMessageCreateReportWriter, writerErr)
	}

	runErr := application.runStages(ctx, configuration, reportWriter)
	if closeErr := reportWriter.Close(); closeErr != nil && runErr == nil {
		runErr = fmt.Errorf("%s: %w", errMessageCloseReports, closeErr)
	}
	return runErr
}

func (application Application) runStages(ctx context.Context, configuration Config, reportWriter ReportWriter) error {
	dependencies := application.dependencies

	archiveURLs := application.listArchives(ctx, configuration)
	fmt.Fprintf(dependencies.Stdout, progressArchiveCountFormat, len(archiveURLs), configuration.TrackedUsername)

	application.downloadArchives(ctx, configuration, archiveURLs)

	opponentUsernames, collectErr := dependencies.CollectOpponents(configuration.TrackedUsername, configuration.ArchiveDirectory)
	if collectErr != nil {
		return fmt.Errorf("%s: %w", errMessageCollectOpponents, collectErr)
	}
	fmt.Fprintf(dependencies.Stdout, progressOpponentCountFormat, len(opponentUsernames))

	if err := reportWriter.WriteOpponents(opponentUsernames); err != nil {
		return fmt.Errorf("%s: %w", errMessageWriteOpponents, err)
	}

	if err := application.fetchAndClassify(ctx, opponentUsernames, reportWriter); err != nil {
		return err
	}

	if err := reportWriter.WriteUsernameLists(); err != nil {
		return fmt.Errorf("%s: %w", errMessageWriteUsernameLists, err)
	}

	fmt.Fprintf(dependencies.Stdout, progressRunCompleteFormat, configuration.OutputDirectory)
	return nil
}

func (application Application) listArchives(ctx context.Context, configuration Config) []string {
	dependencies := application.dependencies
	archiveURLs, listErr := dependencies.ListArchives(ctx, configuration.TrackedUsername)
	if listErr != nil {
		dependencies.Logger.Warn(logMessageArchiveListFailed,
			zap.String(logFieldTrackedUsername, configuration.TrackedUsername), zap.Error(listErr))
		fmt.Fprintf(dependencies.Stderr, warningArchiveListFormat, configuration.TrackedUsername, listErr)
		return nil
	}
	return archiveURLs
}

func (application Application) downloadArchives(ctx context.Context, configuration Config, archiveURLs []string) {
	dependencies := application.dependencies
	for _, archiveURL := range archiveURLs {
		path, downloaded, downloadErr := dependencies.DownloadArchive(ctx, configuration.TrackedUsername, archiveURL, configuration.ArchiveDirectory)
		if downloadErr != nil {
			dependencies.Logger.Warn(logMessageArchiveFetchFailed,
				zap.String(logFieldArchiveURL, archiveURL), zap.Error(downloadErr))
			fmt.Fprintf(dependencies.Stderr, warningArchiveDownloadFormat, archiveURL, downloadErr)
			continue
		}
		if downloaded {
			fmt.Fprintf(dependencies.Stdout, progressArchiveFetchedFormat, path)
		} else {
			fmt.Fprintf(dependencies.Stdout, progressArchiveCachedFormat, path)
		}
	}
}

func (application Application) fetchAndClassify(ctx context.Context, opponentUsernames []string, reportWriter ReportWriter) error {
	dependencies := application.dependencies
	for _, opponentUsername := range opponentUsernames {
		info, fetchErr := dependencies.FetchProfile(ctx, opponentUsername)
		switch {
		case errors.Is(fetchErr, chesscom.ErrProfileNotFound):
			fmt.Fprintf(dependencies.Stdout, progressProfileMissingFormat, opponentUsername)
			if err := reportWriter.RecordError(opponentUsername, reasonProfileNotFound); err != nil {
				return err
			}
		case fetchErr != nil:
			dependencies.Logger.Warn(logMessageProfileFetchFailed,
				zap.String(logFieldOpponentUsername, opponentUsername), zap.Error(fetchErr))
			fmt.Fprintf(dependencies.Stderr, warningProfileFetchFormat, opponentUsername, fetchErr)
			if err := reportWriter.RecordError(opponentUsername, fetchErr.Error()); err != nil {
				return err
			}
		default:
			fmt.Fprintf(dependencies.Stdout, progressProfileFetchedFormat, opponentUsername)
			if err := reportWriter.RecordAccount(opponentUsername, info); err != nil {
				return err
			}
		}
	}
	return nil
}
