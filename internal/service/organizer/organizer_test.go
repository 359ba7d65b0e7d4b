package organizer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"filesorter/internal/models"
	"filesorter/internal/service/ai"
	"filesorter/internal/storage"
)

type fakeSummarizer struct {
	fail  map[string]error
	seen  []string
	paths []string
}

func (f *fakeSummarizer) Summarize(_ context.Context, file models.TempFile) (string, error) {
	f.seen = append(f.seen, file.FileName)
	f.paths = append(f.paths, file.StoredPath)
	if _, err := os.Stat(file.StoredPath); err != nil {
		return "", err
	}
	if err := f.fail[file.FileName]; err != nil {
		return "", err
	}
	return "요약: " + file.FileName, nil
}

type fakeClassifier struct {
	reply string
	err   error
	got   []models.Summary
}

func (f *fakeClassifier) Classify(_ context.Context, summaries []models.Summary) (models.ClassificationSpec, error) {
	f.got = summaries
	if f.err != nil {
		return nil, f.err
	}
	return ai.ExtractJSON(f.reply)
}

func upload(name, body string) models.UploadedFile {
	return models.UploadedFile{
		FileName: name,
		Size:     int64(len(body)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}

func newTestService(t *testing.T, sum *fakeSummarizer, cls *fakeClassifier) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewTempStore(dir, 4)
	if err != nil {
		t.Fatalf("new temp store: %v", err)
	}
	svc, err := NewService(store, sum, cls)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, dir
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected %s to be empty, found %d entries", dir, len(entries))
	}
}

func TestRunSummarizesEveryFileInOrder(t *testing.T) {
	sum := &fakeSummarizer{}
	cls := &fakeClassifier{reply: `{"강의": {"운영체제": {"강의자료": ["os.pdf"], "과제": []}}, "기타_자료": ["memo.txt"]}`}
	svc, dir := newTestService(t, sum, cls)

	res, err := svc.Run(context.Background(), []models.UploadedFile{
		upload("os.pdf", "%PDF-1.4 lecture"),
		upload("memo.txt", "buy milk"),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(res.Summaries))
	}
	if res.Summaries[0].FileName != "os.pdf" || res.Summaries[1].FileName != "memo.txt" {
		t.Fatalf("unexpected order: %+v", res.Summaries)
	}
	if res.Summaries[0].Summary != "os.pdf - 요약: os.pdf" {
		t.Fatalf("summary not normalized: %q", res.Summaries[0].Summary)
	}
	if len(cls.got) != 2 {
		t.Fatalf("classifier received %d summaries", len(cls.got))
	}
	if !strings.Contains(res.MarkdownSummary, "  - 강의자료 (1개)\n    - os.pdf") {
		t.Fatalf("markdown missing lecture entry:\n%s", res.MarkdownSummary)
	}
	assertEmptyDir(t, dir)
}

func TestRunRecordsSummaryFailure(t *testing.T) {
	sum := &fakeSummarizer{fail: map[string]error{"broken.bin": errors.New("unsupported file")}}
	cls := &fakeClassifier{reply: `{"기타_자료": ["broken.bin"]}`}
	svc, dir := newTestService(t, sum, cls)

	res, err := svc.Run(context.Background(), []models.UploadedFile{upload("broken.bin", "\x00\x01")})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Summaries) != 1 || !strings.HasPrefix(res.Summaries[0].Summary, "요약 실패") {
		t.Fatalf("expected failure summary, got %+v", res.Summaries)
	}
	if _, err := os.Stat(sum.paths[0]); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("temp file should be removed, stat err=%v", err)
	}
	assertEmptyDir(t, dir)
}

func TestRunClassificationErrorKeepsRaw(t *testing.T) {
	sum := &fakeSummarizer{}
	cls := &fakeClassifier{reply: "죄송합니다. 분류할 수 없습니다."}
	svc, dir := newTestService(t, sum, cls)

	_, err := svc.Run(context.Background(), []models.UploadedFile{upload("a.txt", "hello")})
	var cerr *ai.ClassificationError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ClassificationError, got %v", err)
	}
	if !errors.Is(err, ai.ErrNoJSONObject) {
		t.Fatalf("expected ErrNoJSONObject, got %v", err)
	}
	assertEmptyDir(t, dir)
}

func TestRunWrapsPlainClassifierError(t *testing.T) {
	boom := errors.New("network down")
	svc, _ := newTestService(t, &fakeSummarizer{}, &fakeClassifier{err: boom})

	_, err := svc.Run(context.Background(), nil)
	var cerr *ai.ClassificationError
	if !errors.As(err, &cerr) || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped classification error, got %v", err)
	}
}

func TestRunEmptyBatch(t *testing.T) {
	sum := &fakeSummarizer{}
	cls := &fakeClassifier{reply: `{"강의": {}, "프로젝트": {}, "포트폴리오": {}, "일상": {}, "기타_자료": []}`}
	svc, dir := newTestService(t, sum, cls)

	res, err := svc.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Summaries == nil || len(res.Summaries) != 0 {
		t.Fatalf("expected empty non-nil summaries, got %#v", res.Summaries)
	}
	if len(sum.seen) != 0 {
		t.Fatalf("summarizer should not be called")
	}
	if got := strings.Count(res.MarkdownSummary, "- 없음"); got != 5 {
		t.Fatalf("expected every section to be empty, got %d markers:\n%s", got, res.MarkdownSummary)
	}
	assertEmptyDir(t, dir)
}

func TestRunStoreFailureCleansUp(t *testing.T) {
	sum := &fakeSummarizer{}
	svc, dir := newTestService(t, sum, &fakeClassifier{reply: "{}"})
	bad := models.UploadedFile{
		FileName: "bad.txt",
		Open: func() (io.ReadCloser, error) {
			return nil, errors.New("client went away")
		},
	}

	_, err := svc.Run(context.Background(), []models.UploadedFile{upload("ok.txt", "fine"), bad})
	if err == nil {
		t.Fatalf("expected store error")
	}
	var cerr *ai.ClassificationError
	if errors.As(err, &cerr) {
		t.Fatalf("store failure must not look like a classification error")
	}
	if len(sum.seen) != 0 {
		t.Fatalf("summarizer should not run after a store failure")
	}
	assertEmptyDir(t, dir)
}

func TestRenderMarkdownFullOutline(t *testing.T) {
	spec := models.ClassificationSpec(`{
		"강의": {"운영체제": {"강의자료": ["os1.pdf", "os2.pdf"], "과제": ["hw1.zip"]}},
		"프로젝트": {"캡스톤": {"개발": {"백엔드": ["main.go"], "프론트": []}, "문서": ["plan.docx"]}},
		"포트폴리오": {"이력서": {"최신": ["cv.pdf"]}},
		"일상": {"사진": ["trip.jpg"]},
		"기타_자료": ["misc.bin"]
	}`)

	want := strings.Join([]string{
		"# 파일 정리 요약\n",
		"## 강의",
		"- 운영체제",
		"  - 강의자료 (2개)",
		"    - os1.pdf",
		"    - os2.pdf",
		"  - 과제 (1개)",
		"    - hw1.zip",
		"",
		"## 프로젝트",
		"- 캡스톤",
		"  - 개발",
		"    - 백엔드 (1개)",
		"      - main.go",
		"    - 프론트 (0개)",
		"  - 문서 (1개)",
		"    - plan.docx",
		"",
		"## 포트폴리오",
		"- 이력서",
		"  - 최신 (1개)",
		"    - cv.pdf",
		"",
		"## 일상",
		"- 사진 (1개)",
		"  - trip.jpg",
		"",
		"## 기타_자료 (1개)",
		"- misc.bin",
		"",
	}, "\n")

	if got := RenderMarkdown(spec); got != want {
		t.Fatalf("unexpected markdown:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderMarkdownKeepsModelOrder(t *testing.T) {
	spec := models.ClassificationSpec(`{"일상": {"zeta": ["z"], "alpha": ["a"]}}`)
	md := RenderMarkdown(spec)
	if strings.Index(md, "zeta") > strings.Index(md, "alpha") {
		t.Fatalf("expected emitted order to be kept:\n%s", md)
	}
}

func TestRenderMarkdownToleratesWrongTypes(t *testing.T) {
	cases := map[string]string{
		"lecture is a list":  `{"강의": ["a.pdf"]}`,
		"materials string":   `{"강의": {"os": {"강의자료": "a.pdf"}}}`,
		"dev is a list":      `{"프로젝트": {"p": {"개발": ["x.go"]}}}`,
		"other object list":  `{"프로젝트": {"p": {"문서": {"a": ["b"]}}}}`,
		"misc is an object":  `{"기타_자료": {"a": 1}}`,
		"top level is array": `[1, 2, 3]`,
		"empty":              ``,
		"garbage":            `not json`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			md := RenderMarkdown(models.ClassificationSpec(raw))
			if !strings.HasPrefix(md, "# 파일 정리 요약\n") {
				t.Fatalf("missing title:\n%s", md)
			}
			if !strings.Contains(md, "## 기타_자료 (") {
				t.Fatalf("missing misc section:\n%s", md)
			}
		})
	}

	md := RenderMarkdown(models.ClassificationSpec(`{"프로젝트": {"p": {"개발": ["x.go"]}}}`))
	if !strings.Contains(md, "  - 개발 (1개)\n    - x.go") {
		t.Fatalf("dev list should render as a plain category:\n%s", md)
	}
	md = RenderMarkdown(models.ClassificationSpec(`{"강의": {"os": {"강의자료": "a.pdf"}}}`))
	if !strings.Contains(md, "  - 강의자료 (0개)") {
		t.Fatalf("non-list materials should render empty:\n%s", md)
	}
}

func TestRenderMarkdownIsDeterministic(t *testing.T) {
	spec := models.ClassificationSpec(`{"일상": {"b": ["1"], "a": ["2"]}, "기타_자료": []}`)
	first := RenderMarkdown(spec)
	for i := 0; i < 5; i++ {
		if got := RenderMarkdown(spec); got != first {
			t.Fatalf("render %d differs", i)
		}
	}
	if !strings.Contains(first, "## 기타_자료 (0개)\n- 없음") {
		t.Fatalf("empty misc should show the none marker:\n%s", first)
	}
}

func TestRenderHTML(t *testing.T) {
	html := RenderHTML(RenderMarkdown(models.ClassificationSpec(`{"기타_자료": ["a.txt"]}`)))
	for _, want := range []string{"<h1>", "<h2>", "<ul>", "a.txt"} {
		if !bytes.Contains([]byte(html), []byte(want)) {
			t.Fatalf("html missing %q:\n%s", want, html)
		}
	}
}
