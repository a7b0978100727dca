package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	commonmw "codejudge/internal/common/http/middleware"
	"codejudge/internal/judge/model"
	"codejudge/internal/judge/result"
	"codejudge/internal/judge/sandbox/profile"
	"codejudge/internal/judge/service"
	appErr "codejudge/pkg/errors"

	"github.com/gin-gonic/gin"
)

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	TraceID string          `json:"trace_id"`
}

type reportBody struct {
	TotalTests  int    `json:"totalTests"`
	TestsPassed int    `json:"testsPassed"`
	Status      string `json:"status"`
	Results     []struct {
		Passed bool            `json:"passed"`
		Output json.RawMessage `json:"output"`
		Error  string          `json:"error"`
	} `json:"results"`
	Failure *struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"failure"`
}

type fakeJudge struct {
	agg result.AggregateResult
	err error
	got model.Submission
}

func (f *fakeJudge) Execute(_ context.Context, sub model.Submission) (result.AggregateResult, error) {
	f.got = sub
	return f.agg, f.err
}

func (f *fakeJudge) Languages() []profile.LanguageSpec {
	return profile.NewRegistry(profile.DefaultLanguages()).Languages()
}

func newRouter(judge Judge) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(commonmw.TraceContextMiddleware())
	NewJudgeController(judge).Register(router.Group("/api/v1/judge"))
	return router
}

func perform(t *testing.T, router http.Handler, method, path, body string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	var resp apiResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	return rec, resp
}

func inProcessService(t *testing.T) *service.Service {
	t.Helper()
	var langs []profile.LanguageSpec
	for _, lang := range profile.DefaultLanguages() {
		if lang.ID == "javascript" {
			lang.Strategy = profile.StrategyInProcess
			lang.Timeout = time.Second
			langs = append(langs, lang)
		}
	}
	svc, err := service.NewService(service.Config{Languages: profile.NewRegistry(langs), WorkerPoolSize: 2})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestExecuteEndToEnd(t *testing.T) {
	router := newRouter(inProcessService(t))
	body := `{
  "code": "function threeSum(nums) {\n  nums.sort((a, b) => a - b);\n  const out = [];\n  for (let i = 0; i < nums.length - 2; i++) {\n    if (i > 0 && nums[i] === nums[i - 1]) continue;\n    let l = i + 1, r = nums.length - 1;\n    while (l < r) {\n      const s = nums[i] + nums[l] + nums[r];\n      if (s === 0) { out.push([nums[i], nums[l], nums[r]]); while (l < r && nums[l] === nums[l + 1]) l++; l++; r--; }\n      else if (s < 0) l++; else r--;\n    }\n  }\n  return out;\n}",
  "language": "javascript",
  "testCases": [
    {"input": [-1, 0, 1, 2, -1, -4], "expectedOutput": [[-1, 0, 1], [-1, -1, 2]]},
    {"input": [0, 0, 0], "expectedOutput": [[0, 0, 0]]},
    {"input": [1, 2], "expectedOutput": [[1, 2, 3]]}
  ]
}`
	rec, resp := perform(t, router, http.MethodPost, "/api/v1/judge/executions", body)
	if rec.Code != http.StatusOK || resp.Code != int(appErr.Success) {
		t.Fatalf("unexpected response %d %+v", rec.Code, resp)
	}
	if resp.TraceID == "" {
		t.Fatalf("expected trace id")
	}
	var report reportBody
	if err := json.Unmarshal(resp.Data, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.TotalTests != 3 || report.TestsPassed != 2 || len(report.Results) != 3 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Status != string(result.StatusWrongAnswer) || report.Failure != nil {
		t.Fatalf("unexpected status %s", report.Status)
	}
	if string(report.Results[2].Output) != "[]" {
		t.Fatalf("unexpected output %s", report.Results[2].Output)
	}
}

func TestExecuteCompilationErrorReport(t *testing.T) {
	router := newRouter(inProcessService(t))
	body := `{"code":"function f(x) {\n  return x;\n","language":"js","testCases":[{"input":1,"expectedOutput":1},{"input":2,"expectedOutput":2}]}`
	rec, resp := perform(t, router, http.MethodPost, "/api/v1/judge/executions", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d %+v", rec.Code, resp)
	}
	var report reportBody
	if err := json.Unmarshal(resp.Data, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Status != string(result.StatusCompilationError) || report.Failure == nil {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.TotalTests != 2 || len(report.Results) != 2 || report.Results[0].Error != report.Failure.Message {
		t.Fatalf("expected placeholders carrying the diagnostic, got %+v", report)
	}
}

func TestExecuteErrors(t *testing.T) {
	cases := []struct {
		name       string
		body       string
		judgeErr   error
		wantStatus int
		wantCode   appErr.ErrorCode
	}{
		{
			name:       "malformed body",
			body:       `{"code":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   appErr.InvalidParams,
		},
		{
			name:       "object in test data",
			body:       `{"code":"x","language":"js","testCases":[{"input":{"a":1},"expectedOutput":1}]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   appErr.InvalidParams,
		},
		{
			name:       "missing language",
			body:       `{"code":"x","testCases":[]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   appErr.InvalidParams,
		},
		{
			name:       "unsupported language",
			body:       `{"code":"x","language":"cobol","testCases":[]}`,
			judgeErr:   appErr.Newf(appErr.LanguageNotSupported, "Execution for language '%s' is not supported.", "cobol"),
			wantStatus: http.StatusBadRequest,
			wantCode:   appErr.LanguageNotSupported,
		},
		{
			name:       "queue full",
			body:       `{"code":"x","language":"python","testCases":[]}`,
			judgeErr:   appErr.New(appErr.JudgeQueueFull),
			wantStatus: appErr.JudgeQueueFull.HTTPStatus(),
			wantCode:   appErr.JudgeQueueFull,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newRouter(&fakeJudge{err: tc.judgeErr})
			rec, resp := perform(t, router, http.MethodPost, "/api/v1/judge/executions", tc.body)
			if rec.Code != tc.wantStatus {
				t.Fatalf("expected http %d, got %d", tc.wantStatus, rec.Code)
			}
			if resp.Code != int(tc.wantCode) {
				t.Fatalf("expected code %d, got %d (%s)", tc.wantCode, resp.Code, resp.Message)
			}
		})
	}
}

func TestExecuteForwardsTestCaseOptions(t *testing.T) {
	judge := &fakeJudge{agg: result.Aggregate([]result.ExecutionResult{{Passed: true}})}
	router := newRouter(judge)
	body := `{"submissionId":"s-1","code":"x","language":"python","testCases":[{"input":[1,2],"expectedOutput":[1,2],"callStyle":"single","compare":"ordered"}]}`
	rec, resp := perform(t, router, http.MethodPost, "/api/v1/judge/executions", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected response %+v", resp)
	}
	if judge.got.ID != "s-1" || len(judge.got.TestCases) != 1 {
		t.Fatalf("unexpected submission %+v", judge.got)
	}
	tc := judge.got.TestCases[0]
	if tc.CallStyle != model.CallSingle || string(tc.Compare) != "ordered" {
		t.Fatalf("unexpected test case options %+v", tc)
	}
	var report reportBody
	if err := json.Unmarshal(resp.Data, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Status != string(result.StatusAccepted) {
		t.Fatalf("unexpected status %s", report.Status)
	}
}

func TestListLanguages(t *testing.T) {
	router := newRouter(&fakeJudge{})
	rec, resp := perform(t, router, http.MethodGet, "/api/v1/judge/languages", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected response %+v", resp)
	}
	var views []LanguageView
	if err := json.Unmarshal(resp.Data, &views); err != nil {
		t.Fatalf("decode languages: %v", err)
	}
	ids := make(map[string]LanguageView, len(views))
	for _, v := range views {
		ids[v.ID] = v
	}
	for _, id := range []string{"javascript", "typescript", "python", "java"} {
		if _, ok := ids[id]; !ok {
			t.Fatalf("missing language %s in %+v", id, views)
		}
	}
	if ids["javascript"].Strategy != string(profile.StrategyProcess) || ids["javascript"].TimeoutMs != 2000 {
		t.Fatalf("unexpected javascript view %+v", ids["javascript"])
	}
}
