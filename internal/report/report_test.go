package report

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/growthlab/backend/internal/clusters"
	"github.com/growthlab/backend/internal/config"
	"github.com/growthlab/backend/internal/domain"
	"github.com/growthlab/backend/internal/storage"
)

var reportDay = time.Date(2024, 4, 2, 7, 0, 0, 0, time.UTC)

type recordingSender struct {
	msgs []Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg Message) error {
	s.msgs = append(s.msgs, msg)
	return s.err
}

func testFiles() config.ReportConfig {
	return config.ReportConfig{
		CurrentCustomers:  "clusters/customers.csv",
		PreviousCustomers: "clusters/customers_previous.csv",
		CurrentClusters:   "clusters/clusters.csv",
		PreviousClusters:  "clusters/clusters_previous.csv",
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, dir, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
	require.NoError(t, err)
	return string(b)
}

func allText(msg Message) string {
	var parts []string
	for _, b := range msg.Blocks {
		if b.Text != nil {
			parts = append(parts, b.Text.Text)
		}
	}
	return strings.Join(parts, "\n")
}

const (
	todayCustomers     = "customer_id,cluster\nu1,B\nu2,C\nu3,A\n"
	yesterdayCustomers = "customer_id,cluster\nu1,A\nu2,C\nu4,A\n"
	todayClusters      = "cluster,customer_count,mean_recency,mean_frequency,mean_monetary\nA,1,10,2,1500\nB,1,30,1,90\nC,1,5,4,300\n"
	yesterdayClusters  = "cluster,customer_count,mean_recency,mean_frequency,mean_monetary\nA,2,12,2,1600\nC,1,5,3,300\n"
)

func TestJobRun_ComparesAndRotates(t *testing.T) {
	dir := t.TempDir()
	files := testFiles()
	writeFile(t, dir, files.CurrentCustomers, todayCustomers)
	writeFile(t, dir, files.PreviousCustomers, yesterdayCustomers)
	writeFile(t, dir, files.CurrentClusters, todayClusters)
	writeFile(t, dir, files.PreviousClusters, yesterdayClusters)

	sender := &recordingSender{}
	job := NewJob(storage.NewDisk(dir), sender, files)
	require.NoError(t, job.Run(context.Background(), reportDay))

	require.Len(t, sender.msgs, 1)
	text := allText(sender.msgs[0])
	assert.Contains(t, text, "Daily Growth Report (02/04/2024)")
	assert.Contains(t, text, "1 customers moved from 'A' to 'B'")
	assert.Contains(t, text, "New customers: 1 | 👋 Gone: 1")
	assert.Contains(t, text, "*A* (1 customers)")
	assert.Contains(t, text, "`R$ 1,500.00`")
	assert.Contains(t, text, "- `A`: down in monetary (-6.25%), customers (-50.00%)")
	assert.NotContains(t, text, "- `C`")

	assert.Equal(t, todayCustomers, readFile(t, dir, files.PreviousCustomers))
	assert.Equal(t, todayClusters, readFile(t, dir, files.PreviousClusters))
}

func TestJobRun_FirstRunSeedsPrevious(t *testing.T) {
	dir := t.TempDir()
	files := testFiles()
	writeFile(t, dir, files.CurrentCustomers, todayCustomers)
	writeFile(t, dir, files.CurrentClusters, todayClusters)

	sender := &recordingSender{}
	require.NoError(t, NewJob(storage.NewDisk(dir), sender, files).Run(context.Background(), reportDay))

	require.Len(t, sender.msgs, 1)
	text := allText(sender.msgs[0])
	assert.Contains(t, text, "First run")
	assert.NotContains(t, text, "moved from")
	assert.NotContains(t, text, "dropped")

	assert.Equal(t, todayCustomers, readFile(t, dir, files.PreviousCustomers))
	assert.Equal(t, todayClusters, readFile(t, dir, files.PreviousClusters))
}

func TestJobRun_MissingCurrentDoesNotRotate(t *testing.T) {
	dir := t.TempDir()
	files := testFiles()
	writeFile(t, dir, files.CurrentCustomers, todayCustomers)
	writeFile(t, dir, files.PreviousCustomers, yesterdayCustomers)
	writeFile(t, dir, files.PreviousClusters, yesterdayClusters)

	sender := &recordingSender{}
	err := NewJob(storage.NewDisk(dir), sender, files).Run(context.Background(), reportDay)
	require.ErrorIs(t, err, domain.ErrDataUnavailable)

	assert.Empty(t, sender.msgs)
	assert.Equal(t, yesterdayCustomers, readFile(t, dir, files.PreviousCustomers))
}

func TestJobRun_SendFailureDoesNotRotate(t *testing.T) {
	dir := t.TempDir()
	files := testFiles()
	writeFile(t, dir, files.CurrentCustomers, todayCustomers)
	writeFile(t, dir, files.PreviousCustomers, yesterdayCustomers)
	writeFile(t, dir, files.CurrentClusters, todayClusters)
	writeFile(t, dir, files.PreviousClusters, yesterdayClusters)

	sender := &recordingSender{err: errors.New("slack down")}
	err := NewJob(storage.NewDisk(dir), sender, files).Run(context.Background(), reportDay)
	require.Error(t, err)

	assert.Equal(t, yesterdayCustomers, readFile(t, dir, files.PreviousCustomers))
	assert.Equal(t, yesterdayClusters, readFile(t, dir, files.PreviousClusters))
}

// flakyStore fails the Put calls whose 1-based index is listed in fail.
type flakyStore struct {
	*storage.Disk
	fail map[int]bool
	puts int
}

func (s *flakyStore) Put(ctx context.Context, name string, r io.Reader) error {
	s.puts++
	if s.fail[s.puts] {
		return errors.New("bucket quota exceeded")
	}
	return s.Disk.Put(ctx, name, r)
}

func seedAll(t *testing.T, dir string, files config.ReportConfig) {
	t.Helper()
	writeFile(t, dir, files.CurrentCustomers, todayCustomers)
	writeFile(t, dir, files.PreviousCustomers, yesterdayCustomers)
	writeFile(t, dir, files.CurrentClusters, todayClusters)
	writeFile(t, dir, files.PreviousClusters, yesterdayClusters)
}

func TestJobRun_FailedSecondWriteRestoresPrevious(t *testing.T) {
	dir := t.TempDir()
	files := testFiles()
	seedAll(t, dir, files)

	store := &flakyStore{Disk: storage.NewDisk(dir), fail: map[int]bool{2: true}}
	err := NewJob(store, &recordingSender{}, files).Run(context.Background(), reportDay)
	require.ErrorContains(t, err, "bucket quota exceeded")

	assert.Equal(t, yesterdayCustomers, readFile(t, dir, files.PreviousCustomers))
	assert.Equal(t, yesterdayClusters, readFile(t, dir, files.PreviousClusters))

	// A repeated run still reports the migrations.
	sender := &recordingSender{}
	require.NoError(t, NewJob(storage.NewDisk(dir), sender, files).Run(context.Background(), reportDay))
	require.Len(t, sender.msgs, 1)
	assert.Contains(t, allText(sender.msgs[0]), "1 customers moved from 'A' to 'B'")
}

func TestJobRun_FailedFirstWriteChangesNothing(t *testing.T) {
	dir := t.TempDir()
	files := testFiles()
	seedAll(t, dir, files)

	store := &flakyStore{Disk: storage.NewDisk(dir), fail: map[int]bool{1: true}}
	require.Error(t, NewJob(store, &recordingSender{}, files).Run(context.Background(), reportDay))

	assert.Equal(t, yesterdayCustomers, readFile(t, dir, files.PreviousCustomers))
	assert.Equal(t, yesterdayClusters, readFile(t, dir, files.PreviousClusters))
}

func TestJobRun_FailedSecondWriteOnFirstRunLeavesNoPrevious(t *testing.T) {
	dir := t.TempDir()
	files := testFiles()
	writeFile(t, dir, files.CurrentCustomers, todayCustomers)
	writeFile(t, dir, files.CurrentClusters, todayClusters)

	store := &flakyStore{Disk: storage.NewDisk(dir), fail: map[int]bool{2: true}}
	require.Error(t, NewJob(store, &recordingSender{}, files).Run(context.Background(), reportDay))

	for _, name := range []string{files.PreviousCustomers, files.PreviousClusters} {
		_, err := os.Stat(filepath.Join(dir, filepath.FromSlash(name)))
		assert.True(t, os.IsNotExist(err), name)
	}
}

func TestJobRun_FailedRestoreReportsBothErrors(t *testing.T) {
	dir := t.TempDir()
	files := testFiles()
	seedAll(t, dir, files)

	store := &flakyStore{Disk: storage.NewDisk(dir), fail: map[int]bool{2: true, 3: true}}
	err := NewJob(store, &recordingSender{}, files).Run(context.Background(), reportDay)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to rotate")
	assert.Contains(t, err.Error(), "failed to restore")
}

// rewritingSender simulates the export job replacing today's file while the
// report is being delivered.
type rewritingSender struct {
	t    *testing.T
	dir  string
	name string
}

func (s rewritingSender) Send(context.Context, Message) error {
	writeFile(s.t, s.dir, s.name, "customer_id,cluster\nu9,Z\n")
	return nil
}

func TestJobRun_PromotesTheReportedSnapshot(t *testing.T) {
	dir := t.TempDir()
	files := testFiles()
	seedAll(t, dir, files)

	sender := rewritingSender{t: t, dir: dir, name: files.CurrentCustomers}
	require.NoError(t, NewJob(storage.NewDisk(dir), sender, files).Run(context.Background(), reportDay))

	assert.Equal(t, todayCustomers, readFile(t, dir, files.PreviousCustomers))
	assert.Equal(t, todayClusters, readFile(t, dir, files.PreviousClusters))
}

func TestJobRun_MalformedCurrentIsAnError(t *testing.T) {
	dir := t.TempDir()
	files := testFiles()
	writeFile(t, dir, files.CurrentCustomers, "id,segment\n1,A\n")
	writeFile(t, dir, files.CurrentClusters, todayClusters)

	err := NewJob(storage.NewDisk(dir), &recordingSender{}, files).Run(context.Background(), reportDay)
	assert.ErrorContains(t, err, "missing column")
}

func TestBuildMessage_Deterministic(t *testing.T) {
	r := Report{
		Transitions: []domain.Transition{{From: "A", To: "B", Count: 3}},
		Clusters:    []domain.ClusterAggregate{{Cluster: "A", CustomerCount: 10, MeanRecency: 2.5, MeanFrequency: 3, MeanMonetary: 12}},
		Deltas:      []clusters.AggregateDelta{},
	}
	a, err := json.Marshal(BuildMessage(r, reportDay))
	require.NoError(t, err)
	b, err := json.Marshal(BuildMessage(r, reportDay))
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))

	msg := BuildMessage(r, reportDay)
	assert.Equal(t, "header", msg.Blocks[0].Type)
	assert.Equal(t, "divider", msg.Blocks[2].Type)
	assert.Contains(t, allText(msg), "No cluster dropped today")
	assert.Contains(t, allText(msg), "Recency: `2d`")
}

func TestBuildMessage_NoMigrations(t *testing.T) {
	msg := BuildMessage(Report{Joined: 2}, reportDay)
	assert.Contains(t, allText(msg), "No customer migrations")
	assert.Contains(t, allText(msg), "New customers: 2")
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "0.00", money(0))
	assert.Equal(t, "999.99", money(999.99))
	assert.Equal(t, "1,234,567.89", money(1234567.891))
	assert.Equal(t, "-100.00", money(-100))
	assert.Equal(t, "0.00", money(-0.001))
}

func TestWebhookSend(t *testing.T) {
	var got Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	msg := BuildMessage(Report{FirstRun: true}, reportDay)
	require.NoError(t, NewWebhook(srv.URL, time.Second).Send(context.Background(), msg))
	assert.Equal(t, msg, got)
}

func TestWebhookSend_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, time.Second).Send(context.Background(), Message{})
	assert.ErrorContains(t, err, "status 400")
	assert.ErrorContains(t, err, "invalid_payload")
}

func TestWebhookSend_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, 50*time.Millisecond).Send(context.Background(), Message{})
	assert.Error(t, err)
}
