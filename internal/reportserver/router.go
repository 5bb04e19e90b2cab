// Package reportserver exposes a run's report files over HTTP for browsing.
package reportserver

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	indexRoutePath                 = "/"
	reportRoutePath                = "/reports/:name"
	healthRoutePath                = "/healthz"
	reportNameParameter            = "name"
	healthStatusKey                = "status"
	healthStatusOK                 = "ok"
	responseKeyReports             = "reports"
	responseKeyName                = "name"
	responseKeySizeBytes           = "size_bytes"
	errorMessageMissingDirectory   = "reports directory is required"
	errorMessageListReports        = "listing reports failed"
	errorMessageInvalidReportName  = "invalid report name"
	errorMessageReportNotFound     = "report not found"
	logMessageListReportsFailure   = "report listing failure"
	logFieldReportsDirectory       = "reports_directory"
	ginModeRelease                 = "release"
)

var errMissingReportsDirectory = errors.New(errorMessageMissingDirectory)

// RouterConfig configures the HTTP routing for report browsing.
type RouterConfig struct {
	ReportsDirectory string
	Logger           *zap.Logger
}

// NewRouter constructs a Gin engine serving the report index, individual
// report files, and a health probe.
func NewRouter(configuration RouterConfig) (*gin.Engine, error) {
	if strings.TrimSpace(configuration.ReportsDirectory) == "" {
		return nil, errMissingReportsDirectory
	}
	logger := configuration.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	gin.SetMode(ginModeRelease)
	engine := gin.New()
	engine.Use(gin.Recovery())

	handler := reportHandler{
		reportsDirectory: configuration.ReportsDirectory,
		logger:           logger,
	}

	engine.GET(indexRoutePath, handler.serveIndex)
	engine.GET(reportRoutePath, handler.serveReport)
	engine.GET(healthRoutePath, serveHealth)
	return engine, nil
}

type reportHandler struct {
	reportsDirectory string
	logger           *zap.Logger
}

func (handler reportHandler) serveIndex(requestContext *gin.Context) {
	directoryEntries, readErr := os.ReadDir(handler.reportsDirectory)
	if readErr != nil {
		handler.logger.Error(logMessageListReportsFailure,
			zap.String(logFieldReportsDirectory, handler.reportsDirectory), zap.Error(readErr))
		requestContext.JSON(http.StatusInternalServerError, gin.H{healthStatusKey: errorMessageListReports})
		return
	}

	reportEntries := make([]gin.H, 0, len(directoryEntries))
	for _, entry := range directoryEntries {
		if entry.IsDir() {
			continue
		}
		entryInfo, infoErr := entry.Info()
		if infoErr != nil {
			continue
		}
		reportEntries = append(reportEntries, gin.H{
			responseKeyName:      entry.Name(),
			responseKeySizeBytes: entryInfo.Size(),
		})
	}
	requestContext.JSON(http.StatusOK, gin.H{responseKeyReports: reportEntries})
}

func (handler reportHandler) serveReport(requestContext *gin.Context) {
	reportName := requestContext.Param(reportNameParameter)
	if reportName == "" || reportName != filepath.Base(reportName) || strings.HasPrefix(reportName, ".") {
		requestContext.JSON(http.StatusBadRequest, gin.H{healthStatusKey: errorMessageInvalidReportName})
		return
	}

	reportPath := filepath.Join(handler.reportsDirectory, reportName)
	if _, statErr := os.Stat(reportPath); statErr != nil {
		requestContext.JSON(http.StatusNotFound, gin.H{healthStatusKey: errorMessageReportNotFound})
		return
	}
	requestContext.File(reportPath)
}

func serveHealth(requestContext *gin.Context) {
	requestContext.JSON(http.StatusOK, gin.H{healthStatusKey: healthStatusOK})
}
