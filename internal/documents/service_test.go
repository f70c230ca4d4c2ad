package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"collateral-backend/internal/approval"
	"collateral-backend/internal/shared/storage/object"
	"collateral-backend/internal/shared/storage/object/local"
)

type recordingStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploads   []string
	deletes   []string
	seq       int
	uploadErr error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{objects: map[string][]byte{}}
}

func (s *recordingStore) Upload(ctx context.Context, folder string, file object.File) (string, error) {
	if err := object.CheckFile(file); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, file.Name)
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	data, err := io.ReadAll(file.Body)
	if err != nil {
		return "", err
	}
	s.seq++
	url := fmt.Sprintf("mem://%s/%d-%s", folder, s.seq, file.Name)
	s.objects[url] = data
	return url, nil
}

func (s *recordingStore) Delete(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, url)
	if _, ok := s.objects[url]; !ok {
		return object.ErrNotFound
	}
	delete(s.objects, url)
	return nil
}

type fakeProperties struct {
	ids    map[string]bool
	status map[string]approval.Status
}

func newFakeProperties(ids ...string) *fakeProperties {
	p := &fakeProperties{ids: map[string]bool{}, status: map[string]approval.Status{}}
	for _, id := range ids {
		p.ids[id] = true
		p.status[id] = approval.StatusPending
	}
	return p
}

func (p *fakeProperties) PropertyExists(ctx context.Context, id string) (bool, error) {
	return p.ids[id], nil
}

func (p *fakeProperties) GetStatus(ctx context.Context, id string) (approval.Status, error) {
	return p.status[id], nil
}

func (p *fakeProperties) UpdateStatus(ctx context.Context, id string, s approval.Status) error {
	p.status[id] = s
	return nil
}

type failingCreateRepo struct {
	*MemoryRepo
}

func (r failingCreateRepo) Create(ctx context.Context, doc Document) error {
	return errors.New("connection refused")
}

type countingReconciler struct {
	calls []string
}

func (r *countingReconciler) Reconcile(ctx context.Context, propertyID string) (approval.Result, error) {
	r.calls = append(r.calls, propertyID)
	return approval.Result{}, nil
}

func pdf(name string) object.File {
	data := []byte("%PDF-1.4 " + name)
	return object.File{Name: name, ContentType: "application/pdf", Size: int64(len(data)), Body: bytes.NewReader(data)}
}

func newTestService(store object.BlobStore, repo Repo, props *fakeProperties) *Service {
	return &Service{
		Store:      store,
		Repo:       repo,
		Properties: props,
		Reconciler: &approval.Reconciler{Documents: repo, Properties: props},
		Now:        func() time.Time { return time.Date(2026, time.June, 1, 9, 0, 0, 0, time.UTC) },
	}
}

func TestCreateMissingPropertyUploadsNothing(t *testing.T) {
	store := newRecordingStore()
	svc := newTestService(store, NewMemoryRepo(), newFakeProperties())

	_, err := svc.Create(context.Background(), CreateInput{PropertyID: "nope", Type: "deed", File: pdf("deed.pdf")})
	require.ErrorIs(t, err, ErrPropertyNotFound)
	require.Empty(t, store.uploads)
}

func TestCreateValidatesBeforeSideEffects(t *testing.T) {
	store := newRecordingStore()
	svc := newTestService(store, NewMemoryRepo(), newFakeProperties("p1"))
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{PropertyID: "p1", Type: "passport", File: pdf("a.pdf")})
	require.ErrorIs(t, err, ErrInvalidDocumentType)

	_, err = svc.Create(ctx, CreateInput{PropertyID: "p1", Type: "deed", File: object.File{Name: "empty.pdf"}})
	require.ErrorIs(t, err, ErrEmptyFile)

	_, err = svc.Create(ctx, CreateInput{Type: "deed", File: pdf("a.pdf")})
	require.ErrorIs(t, err, ErrPropertyRequired)

	require.Empty(t, store.uploads)
}

func TestCreateStoresPendingDocument(t *testing.T) {
	store := newRecordingStore()
	repo := NewMemoryRepo()
	svc := newTestService(store, repo, newFakeProperties("p1"))

	doc, err := svc.Create(context.Background(), CreateInput{PropertyID: "p1", Type: "Appraisal", File: pdf("appraisal.pdf")})
	require.NoError(t, err)
	require.Equal(t, approval.StatusPending, doc.Status)
	require.Equal(t, TypeAppraisal, doc.Type)
	require.NotNil(t, doc.URL)
	require.Contains(t, store.objects, *doc.URL)

	stored, err := repo.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Equal(t, "p1", *stored.PropertyID)
}

func TestCreateAcceptsDottedFileNames(t *testing.T) {
	dir := t.TempDir()
	store := local.New(dir, "http://localhost:8080/files")
	svc := newTestService(store, NewMemoryRepo(), newFakeProperties("p1"))

	doc, err := svc.Create(context.Background(), CreateInput{PropertyID: "p1", Type: "deed", File: pdf("deed..v2.pdf")})
	require.NoError(t, err)
	require.NotNil(t, doc.URL)
	require.True(t, strings.HasSuffix(*doc.URL, "-deed_v2.pdf"), *doc.URL)

	key, err := object.KeyFromURL("http://localhost:8080/files", *doc.URL)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, filepath.FromSlash(key)))
}

func TestCreateCompensatesOnPersistenceFailure(t *testing.T) {
	store := newRecordingStore()
	svc := newTestService(store, failingCreateRepo{NewMemoryRepo()}, newFakeProperties("p1"))

	_, err := svc.Create(context.Background(), CreateInput{PropertyID: "p1", Type: "deed", File: pdf("deed.pdf")})
	require.ErrorIs(t, err, ErrPersistence)
	require.Len(t, store.uploads, 1)
	require.Len(t, store.deletes, 1)
	require.Empty(t, store.objects)
}

func TestCreateStoreFailure(t *testing.T) {
	store := newRecordingStore()
	store.uploadErr = fmt.Errorf("%w: bucket offline", object.ErrUnavailable)
	repo := NewMemoryRepo()
	svc := newTestService(store, repo, newFakeProperties("p1"))

	_, err := svc.Create(context.Background(), CreateInput{PropertyID: "p1", Type: "deed", File: pdf("deed.pdf")})
	require.ErrorIs(t, err, ErrStore)

	docs, err := repo.List(context.Background(), Filter{})
	require.NoError(t, err)
	require.Empty(t, docs)
}

func TestCreateBatchStopsAtFirstFailure(t *testing.T) {
	store := newRecordingStore()
	repo := NewMemoryRepo()
	svc := newTestService(store, repo, newFakeProperties("p1"))

	files := []object.File{pdf("one.pdf"), {Name: "two.pdf"}, pdf("three.pdf")}
	created, err := svc.CreateBatch(context.Background(), "p1", "deed", files)

	require.ErrorIs(t, err, ErrProcessing)
	require.ErrorIs(t, err, ErrEmptyFile)
	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	require.Equal(t, 2, batchErr.Index)
	require.Equal(t, "two.pdf", batchErr.Name)

	require.Len(t, created, 1)
	_, err = repo.GetByID(context.Background(), created[0].ID)
	require.NoError(t, err)
	require.Equal(t, []string{"one.pdf"}, store.uploads)
}

func TestDeleteToleratesMissingBlob(t *testing.T) {
	store := newRecordingStore()
	repo := NewMemoryRepo()
	svc := newTestService(store, repo, newFakeProperties("p1"))
	ctx := context.Background()

	doc, err := svc.Create(ctx, CreateInput{PropertyID: "p1", Type: "deed", File: pdf("deed.pdf")})
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, *doc.URL))

	require.NoError(t, svc.Delete(ctx, doc.ID))
	_, err = repo.GetByID(ctx, doc.ID)
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, svc.Delete(ctx, doc.ID), ErrDocumentNotFound)
}

func TestDeleteDoesNotReconcile(t *testing.T) {
	store := newRecordingStore()
	repo := NewMemoryRepo()
	props := newFakeProperties("p1")
	reconciler := &countingReconciler{}
	svc := newTestService(store, repo, props)
	svc.Reconciler = reconciler
	ctx := context.Background()

	doc, err := svc.Create(ctx, CreateInput{PropertyID: "p1", Type: "deed", File: pdf("deed.pdf")})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, doc.ID))
	require.Empty(t, reconciler.calls)
	require.Empty(t, store.objects)
}

func TestUpdateReplacesFile(t *testing.T) {
	store := newRecordingStore()
	repo := NewMemoryRepo()
	svc := newTestService(store, repo, newFakeProperties("p1"))
	ctx := context.Background()

	doc, err := svc.Create(ctx, CreateInput{PropertyID: "p1", Type: "deed", File: pdf("old.pdf")})
	require.NoError(t, err)
	oldURL := *doc.URL

	replacement := pdf("new.pdf")
	updated, err := svc.Update(ctx, doc.ID, UpdateInput{File: &replacement})
	require.NoError(t, err)
	require.NotEqual(t, oldURL, *updated.URL)
	require.NotContains(t, store.objects, oldURL)
	require.Contains(t, store.objects, *updated.URL)
	require.Equal(t, []string{oldURL}, store.deletes)
}

func TestUpdateUploadFailureClearsURL(t *testing.T) {
	store := newRecordingStore()
	repo := NewMemoryRepo()
	svc := newTestService(store, repo, newFakeProperties("p1"))
	ctx := context.Background()

	doc, err := svc.Create(ctx, CreateInput{PropertyID: "p1", Type: "deed", File: pdf("old.pdf")})
	require.NoError(t, err)

	store.uploadErr = fmt.Errorf("%w: timeout", object.ErrUnavailable)
	replacement := pdf("new.pdf")
	_, err = svc.Update(ctx, doc.ID, UpdateInput{File: &replacement})
	require.ErrorIs(t, err, ErrStore)

	stored, err := repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	require.Nil(t, stored.URL)
}

func TestUpdateValidation(t *testing.T) {
	store := newRecordingStore()
	svc := newTestService(store, NewMemoryRepo(), newFakeProperties("p1"))
	ctx := context.Background()

	bad := "approved"
	_, err := svc.Update(ctx, "whatever", UpdateInput{Status: &bad})
	require.ErrorIs(t, err, ErrInvalidStatus)

	badType := "receipt"
	_, err = svc.Update(ctx, "whatever", UpdateInput{Type: &badType})
	require.ErrorIs(t, err, ErrInvalidDocumentType)

	_, err = svc.Update(ctx, "whatever", UpdateInput{})
	require.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestStatusUpdatesReconcileProperty(t *testing.T) {
	store := newRecordingStore()
	repo := NewMemoryRepo()
	props := newFakeProperties("p1")
	svc := newTestService(store, repo, props)
	ctx := context.Background()

	ids := make([]string, 0, 3)
	for _, name := range []string{"deed.pdf", "lien.pdf", "appraisal.pdf"} {
		doc, err := svc.Create(ctx, CreateInput{PropertyID: "p1", Type: "deed", File: pdf(name)})
		require.NoError(t, err)
		ids = append(ids, doc.ID)
	}

	accepted, rejected := "accepted", "rejected"
	for _, id := range ids[:2] {
		_, err := svc.Update(ctx, id, UpdateInput{Status: &accepted})
		require.NoError(t, err)
	}
	require.Equal(t, approval.StatusPending, props.status["p1"])

	_, err := svc.Update(ctx, ids[2], UpdateInput{Status: &accepted})
	require.NoError(t, err)
	require.Equal(t, approval.StatusAccepted, props.status["p1"])

	_, err = svc.Update(ctx, ids[2], UpdateInput{Status: &rejected})
	require.NoError(t, err)
	require.Equal(t, approval.StatusPending, props.status["p1"])
}

func TestListByProperty(t *testing.T) {
	store := newRecordingStore()
	svc := newTestService(store, NewMemoryRepo(), newFakeProperties("p1", "p2"))
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{PropertyID: "p1", Type: "deed", File: pdf("a.pdf")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{PropertyID: "p2", Type: "photo", File: pdf("b.pdf")})
	require.NoError(t, err)

	docs, err := svc.ListByProperty(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, docs, 1)

	_, err = svc.ListByProperty(ctx, "p3")
	require.ErrorIs(t, err, ErrPropertyNotFound)
}
