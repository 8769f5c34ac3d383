package printing

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	printer string
	job     string
	path    string
	data    []byte
}

type fakeProvider struct {
	mu       sync.Mutex
	raw      []call
	docs     []call
	output   string
	err      error
	block    bool
	panicMsg string
	printers []string
	classify *CUPSProvider
}

func newFakeProvider(output string) *fakeProvider {
	return &fakeProvider{output: output, classify: &CUPSProvider{}}
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) record(target *[]call, ctx context.Context, printer, job, path string) (string, error) {
	data, _ := os.ReadFile(path)
	f.mu.Lock()
	*target = append(*target, call{printer: printer, job: job, path: path, data: data})
	f.mu.Unlock()
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.output, f.err
}

func (f *fakeProvider) PrintRaw(ctx context.Context, printer, job, path string) (string, error) {
	return f.record(&f.raw, ctx, printer, job, path)
}

func (f *fakeProvider) PrintDocument(ctx context.Context, printer, job, path string) (string, error) {
	return f.record(&f.docs, ctx, printer, job, path)
}

func (f *fakeProvider) ListPrinters(context.Context) ([]string, error) {
	return f.printers, f.err
}

func (f *fakeProvider) Classify(output string) Outcome {
	return f.classify.Classify(output)
}

func newTestDispatcher(t *testing.T, provider RawPrintProvider) (*Dispatcher, string) {
	t.Helper()
	dir := t.TempDir()
	return NewDispatcher(DispatcherConfig{Provider: provider, StagingDir: dir, HelperTimeout: time.Second}), dir
}

func assertStagingEmpty(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "pos-ticket-*"))
	require.NoError(t, err)
	assert.Empty(t, matches, "staging files must be released")
}

func TestDispatchConfirmed(t *testing.T) {
	provider := newFakeProvider("request id is EPSON-42 (1 file(s))")
	dispatcher, dir := newTestDispatcher(t, provider)
	buf := []byte{0x1b, 0x40, 'h', 'i', 0x0a}

	receipt, err := dispatcher.Dispatch(context.Background(), buf, "EPSON", "pos-sale-F1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, receipt.Outcome)
	assert.Empty(t, receipt.Warning)
	assert.Equal(t, len(buf), receipt.Bytes)

	require.Len(t, provider.raw, 1)
	assert.Equal(t, buf, provider.raw[0].data, "helper sees the buffer byte for byte")
	assert.Equal(t, "EPSON", provider.raw[0].printer)
	assert.True(t, strings.HasSuffix(provider.raw[0].path, ".bin"))
	assertStagingEmpty(t, dir)
}

func TestDispatchAmbiguousOutputStillSucceeds(t *testing.T) {
	provider := newFakeProvider("")
	dispatcher, dir := newTestDispatcher(t, provider)

	receipt, err := dispatcher.Dispatch(context.Background(), []byte("ticket"), "Caja 1", "job")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAmbiguous, receipt.Outcome)
	assert.NotEmpty(t, receipt.Warning)
	assertStagingEmpty(t, dir)
}

func TestDispatchHelperErrorReleasesFile(t *testing.T) {
	provider := newFakeProvider("lp: Error - The printer or class does not exist.")
	provider.err = errors.New("exit status 1")
	dispatcher, dir := newTestDispatcher(t, provider)

	_, err := dispatcher.Dispatch(context.Background(), []byte("ticket"), "nope", "job")
	var dispatchErr *PrintDispatchError
	require.ErrorAs(t, err, &dispatchErr)
	assert.Equal(t, "nope", dispatchErr.Printer)
	assert.Contains(t, dispatchErr.Output, "does not exist")
	assertStagingEmpty(t, dir)
}

func TestDispatchReportedFailure(t *testing.T) {
	provider := newFakeProvider("lp: error - unable to connect")
	dispatcher, dir := newTestDispatcher(t, provider)

	_, err := dispatcher.Dispatch(context.Background(), []byte("ticket"), "", "job")
	assert.ErrorIs(t, err, ErrHelperReportedFailure)
	assertStagingEmpty(t, dir)
}

func TestDispatchTimeoutReleasesFile(t *testing.T) {
	provider := newFakeProvider("")
	provider.block = true
	dir := t.TempDir()
	dispatcher := NewDispatcher(DispatcherConfig{Provider: provider, StagingDir: dir, HelperTimeout: 20 * time.Millisecond})

	_, err := dispatcher.Dispatch(context.Background(), []byte("ticket"), "", "job")
	var dispatchErr *PrintDispatchError
	require.ErrorAs(t, err, &dispatchErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assertStagingEmpty(t, dir)
}

func TestDispatchPanicReleasesFile(t *testing.T) {
	provider := newFakeProvider("")
	provider.panicMsg = "helper crashed"
	dispatcher, dir := newTestDispatcher(t, provider)

	assert.PanicsWithValue(t, "helper crashed", func() {
		_, _ = dispatcher.Dispatch(context.Background(), []byte("ticket"), "", "job")
	})
	require.Len(t, provider.raw, 1)
	assertStagingEmpty(t, dir)
}

func TestDispatchStagingFailure(t *testing.T) {
	provider := newFakeProvider("")
	dispatcher := NewDispatcher(DispatcherConfig{Provider: provider, StagingDir: filepath.Join(t.TempDir(), "missing")})

	_, err := dispatcher.Dispatch(context.Background(), []byte("ticket"), "", "pos-sale-1")
	var stagingErr *StagingIOError
	require.ErrorAs(t, err, &stagingErr)
	assert.Equal(t, "pos-sale-1", stagingErr.Job)
	assert.Empty(t, provider.raw, "helper is never invoked without a staged file")
}

func TestDispatchDocumentUsesPDFPipeline(t *testing.T) {
	provider := newFakeProvider("request id is HP-3")
	dispatcher, dir := newTestDispatcher(t, provider)

	receipt, err := dispatcher.DispatchDocument(context.Background(), []byte("%PDF-1.7"), "HP", "pos-sale-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, receipt.Outcome)
	require.Len(t, provider.docs, 1)
	assert.Empty(t, provider.raw)
	assert.True(t, strings.HasSuffix(provider.docs[0].path, ".pdf"))
	assertStagingEmpty(t, dir)
}

func TestSweepStagingRemovesOldFiles(t *testing.T) {
	dispatcher, dir := newTestDispatcher(t, newFakeProvider(""))
	stale := filepath.Join(dir, "pos-ticket-123.bin")
	fresh := filepath.Join(dir, "pos-ticket-456.bin")
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{stale, fresh, other} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
	}
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	assert.Equal(t, 1, dispatcher.SweepStaging(time.Hour))
	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
	assert.FileExists(t, other)
}

func TestDispatchConcurrentJobsUseDistinctFiles(t *testing.T) {
	provider := newFakeProvider("request id is P-1")
	dispatcher, dir := newTestDispatcher(t, provider)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := dispatcher.Dispatch(context.Background(), bytes.Repeat([]byte{byte('a' + i)}, 16), "", "job")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	paths := map[string]bool{}
	for _, c := range provider.raw {
		paths[c.path] = true
		assert.Equal(t, bytes.Repeat(c.data[:1], 16), c.data)
	}
	assert.Len(t, paths, 8)
	assertStagingEmpty(t, dir)
}
