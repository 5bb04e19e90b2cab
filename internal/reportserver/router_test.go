package reportserver_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/Mouselip/chess-archive-parser/internal/reportserver"
)

const (
	routerTestReportFileName = "240315-all_accounts.csv"
	routerTestReportContent  = "Player_id,API_URL,User_URL,Username,Title,Followers,Country,Last_online,Joined,Status,League\n"
)

type reportIndexResponse struct {
	Reports []struct {
		Name      string `json:"name"`
		SizeBytes int64  `json:"size_bytes"`
	} `json:"reports"`
}

func newTestRouterDirectory(t *testing.T) string {
	t.Helper()
	reportsDirectory := t.TempDir()
	reportPath := filepath.Join(reportsDirectory, routerTestReportFileName)
	if writeErr := os.WriteFile(reportPath, []byte(routerTestReportContent), 0o644); writeErr != nil {
		t.Fatalf("write report fixture: %v", writeErr)
	}
	return reportsDirectory
}

func performRequest(t *testing.T, handler http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	request := httptest.NewRequest(http.MethodGet, target, nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func TestRouterRequiresReportsDirectory(t *testing.T) {
	t.Parallel()

	if _, routerErr := reportserver.NewRouter(reportserver.RouterConfig{}); routerErr == nil {
		t.Fatal("expected an error for a missing reports directory")
	}
}

func TestRouterServesIndex(t *testing.T) {
	t.Parallel()

	router, routerErr := reportserver.NewRouter(reportserver.RouterConfig{ReportsDirectory: newTestRouterDirectory(t)})
	if routerErr != nil {
		t.Fatalf("create router: %v", routerErr)
	}

	recorder := performRequest(t, router, "/")
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}

	var indexResponse reportIndexResponse
	if decodeErr := json.Unmarshal(recorder.Body.Bytes(), &indexResponse); decodeErr != nil {
		t.Fatalf("decode index response: %v", decodeErr)
	}
	if len(indexResponse.Reports) != 1 {
		t.Fatalf("expected one report entry, got %d", len(indexResponse.Reports))
	}
	if indexResponse.Reports[0].Name != routerTestReportFileName {
		t.Fatalf("expected report %q, got %q", routerTestReportFileName, indexResponse.Reports[0].Name)
	}
	if indexResponse.Reports[0].SizeBytes != int64(len(routerTestReportContent)) {
		t.Fatalf("unexpected report size %d", indexResponse.Reports[0].SizeBytes)
	}
}

func TestRouterServesReportFile(t *testing.T) {
	t.Parallel()

	router, routerErr := reportserver.NewRouter(reportserver.RouterConfig{ReportsDirectory: newTestRouterDirectory(t)})
	if routerErr != nil {
		t.Fatalf("create router: %v", routerErr)
	}

	recorder := performRequest(t, router, "/reports/"+routerTestReportFileName)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}
	if recorder.Body.String() != routerTestReportContent {
		t.Fatalf("expected report content, got %q", recorder.Body.String())
	}
}

func TestRouterRejectsUnknownAndUnsafeNames(t *testing.T) {
	t.Parallel()

	router, routerErr := reportserver.NewRouter(reportserver.RouterConfig{ReportsDirectory: newTestRouterDirectory(t)})
	if routerErr != nil {
		t.Fatalf("create router: %v", routerErr)
	}

	testCases := []struct {
		name           string
		target         string
		expectedStatus int
	}{
		{name: "missing report", target: "/reports/absent.csv", expectedStatus: http.StatusNotFound},
		{name: "hidden file", target: "/reports/.hidden", expectedStatus: http.StatusBadRequest},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			recorder := performRequest(t, router, testCase.target)
			if recorder.Code != testCase.expectedStatus {
				t.Fatalf("expected status %d, got %d", testCase.expectedStatus, recorder.Code)
			}
		})
	}
}

func TestRouterHealthEndpoint(t *testing.T) {
	t.Parallel()

	router, routerErr := reportserver.NewRouter(reportserver.RouterConfig{ReportsDirectory: newTestRouterDirectory(t)})
	if routerErr != nil {
		t.Fatalf("create router: %v", routerErr)
	}

	recorder := performRequest(t, router, "/healthz")
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}
}
