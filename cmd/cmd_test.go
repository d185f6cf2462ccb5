package cmd

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/ifirma-client/internal/archive"
	"github.com/ginjaninja78/ifirma-client/internal/config"
	"github.com/ginjaninja78/ifirma-client/internal/invoice"
	"github.com/ginjaninja78/ifirma-client/internal/transport"
	"github.com/ginjaninja78/ifirma-client/internal/types"
	"github.com/ginjaninja78/ifirma-client/pkg/utils"
)

const domesticInvoice = `kind: domestic
invoice:
  issue_date: "2024-03-05"
  sale_date: "2024-03-05"
  type: gross
  customer:
    name: ACME
  items:
    - name: Pen
      vat_rate: 23
      quantity: 2
`

const codInvoice = `kind: cod
invoice:
  issue_date: "2024-03-05"
  sale_date: "2024-03-05"
  payment_receive_date: "2024-03-06"
  customer:
    name: ACME
  items:
    - name: Book
      vat_rate: 5
      quantity: 1
`

const invalidInvoice = `kind: domestic
invoice:
  colour: red
  type: brutto
`

// fakeIfirma answers the endpoints the commands use. Cash-on-delivery
// submissions are rejected.
func fakeIfirma(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var posts atomic.Int32
	reply := func(w http.ResponseWriter, body string) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		io.WriteString(w, body)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /iapi/fakturakraj.json", func(w http.ResponseWriter, r *http.Request) {
		posts.Add(1)
		assert.Contains(t, r.Header.Get(transport.AuthHeader), "IAPIS user=user")
		reply(w, `{"response":{"Kod":0,"Informacja":"Faktura została wystawiona","Identyfikator":77}}`)
	})
	mux.HandleFunc("POST /iapi/fakturawysylka.json", func(w http.ResponseWriter, r *http.Request) {
		posts.Add(1)
		reply(w, `{"response":{"Kod":201,"Informacja":"Niepoprawna data"}}`)
	})
	mux.HandleFunc("GET /iapi/fakturakraj/77.json", func(w http.ResponseWriter, r *http.Request) {
		reply(w, `{"response":{"Kod":0,"Informacja":"ok"}}`)
	})
	mux.HandleFunc("GET /iapi/fakturakraj/78.json", func(w http.ResponseWriter, r *http.Request) {
		reply(w, `{"response":{"Kod":500,"Informacja":"Brak faktury"}}`)
	})
	mux.HandleFunc("GET /iapi/fakturakraj/77.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		io.WriteString(w, "%PDF-1.4 invoice 77")
	})
	mux.HandleFunc("GET /iapi/fakturakraj/list.json", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		reply(w, `{"response":{"Kod":0,"Wynik":[{"Id":77}]}}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &posts
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		Username:         "user",
		InvoicesKey:      "0a1b2c3d",
		InputDir:         filepath.Join(root, "input"),
		OutputDir:        filepath.Join(root, "output"),
		InputArchiveDir:  filepath.Join(root, "input_archive"),
		LogDir:           filepath.Join(root, "logs"),
		OutputNameFormat: "{kind}_{id}.{ext}",
		MaxConcurrency:   2,
	}
	require.NoError(t, cfg.EnsureDirs())
	return cfg
}

func testService(t *testing.T, srv *httptest.Server) *invoice.Service {
	t.Helper()
	svc, err := invoice.New(transport.Config{BaseURL: srv.URL + "/", Username: "user", InvoicesKey: "0a1b2c3d"})
	require.NoError(t, err)
	return svc
}

func writeInvoice(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestSubmitterRun(t *testing.T) {
	srv, posts := fakeIfirma(t)
	cfg := testConfig(t)
	store := archive.NewMemory()

	good := writeInvoice(t, cfg.InputDir, "a_domestic.yaml", domesticInvoice)
	rejected := writeInvoice(t, cfg.InputDir, "b_cod.yaml", codInvoice)
	invalid := writeInvoice(t, cfg.InputDir, "c_invalid.yaml", invalidInvoice)

	s := &submitter{
		cfg: cfg,
		log: slog.New(slog.DiscardHandler),
		fm:  utils.NewFileManager(cfg, store),
		svc: testService(t, srv),
	}
	files, err := s.fm.DiscoverInvoiceFiles()
	require.NoError(t, err)
	require.Len(t, files, 3)

	var out bytes.Buffer
	summary, entries := s.run(context.Background(), files, &out)

	assert.Equal(t, 3, summary.TotalFiles)
	assert.Equal(t, 1, summary.SuccessfulFiles)
	assert.Equal(t, 2, summary.FailedFiles)
	assert.Equal(t, 1, summary.ValidationErrors)
	assert.EqualValues(t, 2, posts.Load(), "invalid files are never sent")

	require.Len(t, summary.ProcessedFiles, 1)
	pf := summary.ProcessedFiles[0]
	assert.Equal(t, good, pf.InputFile)
	assert.Equal(t, "77", pf.DocumentID)
	assert.Equal(t, 1, pf.LineItems)
	assert.Equal(t, filepath.Join(cfg.InputArchiveDir, "a_domestic.yaml"), pf.ArchivePath)
	assert.False(t, utils.FileExists(good))

	require.Len(t, summary.FailedFilesList, 2)
	assert.Equal(t, rejected, summary.FailedFilesList[0].InputFile)
	assert.Equal(t, "remote", summary.FailedFilesList[0].ErrorType)
	assert.Equal(t, invalid, summary.FailedFilesList[1].InputFile)
	assert.Equal(t, "validation", summary.FailedFilesList[1].ErrorType)
	assert.True(t, utils.FileExists(rejected))
	assert.True(t, utils.FileExists(invalid))

	var remoteCode int
	var paths []string
	for _, e := range entries {
		if e.ErrorType == "remote" {
			remoteCode = e.RemoteCode
		}
		if e.ErrorType == "validation" {
			paths = append(paths, e.Path)
		}
	}
	assert.Equal(t, 201, remoteCode)
	assert.ElementsMatch(t, []string{"colour", "type"}, paths)

	report, err := os.ReadFile(filepath.Join(cfg.LogDir, "c_invalid.yaml.errors.log"))
	require.NoError(t, err)
	assert.Contains(t, string(report), "colour")

	archived, err := store.List(context.Background(), "input/")
	require.NoError(t, err)
	assert.Len(t, archived, 1)

	assert.Contains(t, out.String(), "✓ a_domestic.yaml -> domestic final 77")
	assert.Contains(t, out.String(), "✗ b_cod.yaml")
}

func TestSubmitterDryRun(t *testing.T) {
	cfg := testConfig(t)
	path := writeInvoice(t, cfg.InputDir, "invoice.yaml", domesticInvoice)

	s := &submitter{
		cfg:    cfg,
		log:    slog.New(slog.DiscardHandler),
		fm:     utils.NewFileManager(cfg, nil),
		dryRun: true,
	}
	summary, entries := s.run(context.Background(), []string{path}, io.Discard)

	assert.Equal(t, 1, summary.SuccessfulFiles)
	assert.Empty(t, entries)
	assert.True(t, utils.FileExists(path), "dry runs keep the input")
}

func TestSubmitterKindOverride(t *testing.T) {
	srv, _ := fakeIfirma(t)
	cfg := testConfig(t)
	path := writeInvoice(t, cfg.InputDir, "invoice.yaml", domesticInvoice)

	kind := types.KindCashOnDelivery
	s := &submitter{
		cfg:  cfg,
		log:  slog.New(slog.DiscardHandler),
		fm:   utils.NewFileManager(cfg, nil),
		svc:  testService(t, srv),
		kind: &kind,
	}
	summary, _ := s.run(context.Background(), []string{path}, io.Discard)

	require.Len(t, summary.FailedFilesList, 1)
	assert.Equal(t, "remote", summary.FailedFilesList[0].ErrorType)
}

func TestSubmitterStopOnError(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxConcurrency = 1
	cfg.StopOnError = true
	files := []string{
		writeInvoice(t, cfg.InputDir, "a.yaml", invalidInvoice),
		writeInvoice(t, cfg.InputDir, "b.yaml", domesticInvoice),
		writeInvoice(t, cfg.InputDir, "c.yaml", domesticInvoice),
	}

	s := &submitter{cfg: cfg, log: slog.New(slog.DiscardHandler), fm: utils.NewFileManager(cfg, nil), dryRun: true}
	summary, _ := s.run(context.Background(), files, io.Discard)

	assert.Equal(t, 3, summary.TotalFiles)
	assert.GreaterOrEqual(t, summary.FailedFiles, 1)
	assert.Equal(t, 1, summary.ValidationErrors)
}

func TestSubmitterTransportFailure(t *testing.T) {
	srv, _ := fakeIfirma(t)
	svc := testService(t, srv)
	srv.Close()

	cfg := testConfig(t)
	path := writeInvoice(t, cfg.InputDir, "invoice.yaml", domesticInvoice)
	s := &submitter{cfg: cfg, log: slog.New(slog.DiscardHandler), fm: utils.NewFileManager(cfg, nil), svc: svc}

	summary, entries := s.run(context.Background(), []string{path}, io.Discard)
	require.Len(t, summary.FailedFilesList, 1)
	assert.Equal(t, "transport", summary.FailedFilesList[0].ErrorType)
	require.Len(t, entries, 1)
}

func TestRunRetrieve(t *testing.T) {
	srv, _ := fakeIfirma(t)
	svc := testService(t, srv)
	cfg := testConfig(t)
	store := archive.NewMemory()
	fm := utils.NewFileManager(cfg, store)

	retrieveFlags.kind, retrieveFlags.stage, retrieveFlags.format = "domestic", "final", "pdf"

	var out bytes.Buffer
	require.NoError(t, runRetrieve(context.Background(), svc, fm, "77", &out))
	assert.Contains(t, out.String(), "domestic_77.pdf")
	assert.Contains(t, out.String(), "Archived as domestic/final/domestic_77.pdf")

	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, "domestic_77.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 invoice 77", string(data))

	out.Reset()
	require.NoError(t, runRetrieve(context.Background(), svc, nil, "77", &out))
	assert.Equal(t, "%PDF-1.4 invoice 77", out.String())

	err = runRetrieve(context.Background(), svc, fm, "78", io.Discard)
	assert.ErrorContains(t, err, "Brak faktury")

	retrieveFlags.format = "docx"
	assert.Error(t, runRetrieve(context.Background(), svc, fm, "77", io.Discard))
	retrieveFlags.format = "pdf"
}

func TestRunList(t *testing.T) {
	srv, _ := fakeIfirma(t)
	listKind = "domestic"

	var out bytes.Buffer
	require.NoError(t, runList(context.Background(), testService(t, srv), &out))
	assert.Contains(t, out.String(), `"Wynik": [`)
	assert.Contains(t, out.String(), `"Id": 77`)
}

func TestRunValidate(t *testing.T) {
	cfg := testConfig(t)
	good := writeInvoice(t, cfg.InputDir, "good.yaml", domesticInvoice)
	bad := writeInvoice(t, cfg.InputDir, "bad.yaml", invalidInvoice)

	var out bytes.Buffer
	require.NoError(t, runValidate(cfg, []string{good}, true, &out))
	assert.Contains(t, out.String(), "✓ good.yaml (domestic, final): 0 error(s), 0 warning(s)")
	assert.Contains(t, out.String(), "StawkaVat", "verbose output dumps the payload")

	out.Reset()
	err := runValidate(cfg, []string{good, bad}, false, &out)
	assert.ErrorContains(t, err, "1 of 2")
	assert.Contains(t, out.String(), "✗ bad.yaml")
	assert.Contains(t, out.String(), "[ERROR] colour")
}

func TestRunSchema(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runSchema("cod", &out))
	assert.Contains(t, out.String(), "payment_receive_date:")
	assert.Contains(t, out.String(), "wire: Kontrahent")

	out.Reset()
	require.NoError(t, runSchema("domestic", &out))
	assert.NotContains(t, out.String(), "payment_receive_date:")

	assert.Error(t, runSchema("export", io.Discard))
}

func TestRunArchive(t *testing.T) {
	ctx := context.Background()
	store := archive.NewMemory()
	_, err := store.Put(ctx, "domestic/final/a.pdf", strings.NewReader("pdf-a"), archive.PutOptions{})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runArchiveList(ctx, store, "domestic/", &out))
	assert.Contains(t, out.String(), "KEY")
	assert.Contains(t, out.String(), "domestic/final/a.pdf")

	out.Reset()
	require.NoError(t, runArchiveGet(ctx, store, "domestic/final/a.pdf", &out))
	assert.Equal(t, "pdf-a", out.String())

	assert.ErrorIs(t, runArchiveGet(ctx, store, "missing.pdf", io.Discard), archive.ErrNotFound)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger(&buf, "warn", false)
	require.NoError(t, err)
	log.Info("hidden")
	log.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	log, err = newLogger(&buf, "warn", true)
	require.NoError(t, err)
	log.Debug("debug")
	assert.Contains(t, buf.String(), "debug")

	_, err = newLogger(&buf, "loud", false)
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)
	assert.Contains(t, out.String(), "Version:    "+Version)
}
