package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/modvault/modvault/internal/db/models"
	"github.com/modvault/modvault/internal/storage"
)

// In-memory fakes for the registry's stores. They implement just enough of
// the persistence contracts to exercise the orchestration logic: dual
// resolution, cascades, and reference counts behave like the real SQL.

type fakeProjectStore struct {
	mu      sync.Mutex
	nextID  int
	rows    map[int]*models.Project
	authors map[int][]int // project id -> user ids
	users   map[int]*models.User

	// Cascade targets, wired by newTestEnv the way the schema's ON DELETE
	// CASCADE ties the tables together.
	versions *fakeVersionStore
	gallery  *fakeGalleryStore
}

func newFakeProjectStore() *fakeProjectStore {
	return &fakeProjectStore{
		nextID:  1,
		rows:    map[int]*models.Project{},
		authors: map[int][]int{},
		users:   map[int]*models.User{},
	}
}

func (s *fakeProjectStore) Create(ctx context.Context, p *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.nextID
	s.nextID++
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	s.rows[p.ID] = &cp
	return nil
}

func (s *fakeProjectStore) GetByID(ctx context.Context, id int) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *fakeProjectStore) Resolve(ctx context.Context, ref string) (*models.Project, error) {
	if id, err := strconv.Atoi(ref); err == nil {
		if p, _ := s.GetByID(ctx, id); p != nil {
			return p, nil
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.rows {
		if strings.EqualFold(p.Slug, ref) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeProjectStore) SlugTaken(ctx context.Context, slug string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.rows {
		if strings.EqualFold(p.Slug, slug) {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeProjectStore) Update(ctx context.Context, p *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[p.ID]; !ok {
		return errors.New("no such project")
	}
	p.UpdatedAt = time.Now()
	cp := *p
	s.rows[p.ID] = &cp
	return nil
}

func (s *fakeProjectStore) TouchUpdatedAt(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.rows[id]; ok {
		p.UpdatedAt = time.Now()
	}
	return nil
}

func (s *fakeProjectStore) IncrementDownloads(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.rows[id]; ok {
		p.Downloads++
	}
	return nil
}

func (s *fakeProjectStore) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	delete(s.rows, id)
	delete(s.authors, id)
	s.mu.Unlock()

	if s.versions != nil {
		s.versions.deleteByProject(id)
	}
	if s.gallery != nil {
		s.gallery.deleteByProject(id)
	}
	return nil
}

func (s *fakeProjectStore) AddAuthor(ctx context.Context, projectID, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authors[projectID] = append(s.authors[projectID], userID)
	return nil
}

func (s *fakeProjectStore) RemoveAuthor(ctx context.Context, projectID, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.authors[projectID][:0]
	for _, id := range s.authors[projectID] {
		if id != userID {
			out = append(out, id)
		}
	}
	s.authors[projectID] = out
	return nil
}

func (s *fakeProjectStore) ListAuthors(ctx context.Context, projectID int) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := append([]int(nil), s.authors[projectID]...)
	sort.Ints(ids)
	var users []models.User
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			users = append(users, *u)
		} else {
			users = append(users, models.User{ID: id, Username: fmt.Sprintf("user%d", id)})
		}
	}
	return users, nil
}

func (s *fakeProjectStore) IsAuthor(ctx context.Context, projectID, userID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.authors[projectID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeProjectStore) ListByAuthor(ctx context.Context, userID int) ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Project
	for projectID, authorIDs := range s.authors {
		for _, id := range authorIDs {
			if id == userID {
				if p, ok := s.rows[projectID]; ok {
					out = append(out, *p)
				}
			}
		}
	}
	return out, nil
}

type fakeVersionStore struct {
	mu       sync.Mutex
	nextID   int
	versions map[int]*models.ProjectVersion
	files    map[int]*models.ProjectFile
}

func newFakeVersionStore() *fakeVersionStore {
	return &fakeVersionStore{
		nextID:   1,
		versions: map[int]*models.ProjectVersion{},
		files:    map[int]*models.ProjectFile{},
	}
}

func (s *fakeVersionStore) Create(ctx context.Context, v *models.ProjectVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v.ID = s.nextID
	s.nextID++
	v.CreatedAt = time.Now()
	cp := *v
	s.versions[v.ID] = &cp
	return nil
}

func (s *fakeVersionStore) Resolve(ctx context.Context, projectID int, ref string) (*models.ProjectVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, err := strconv.Atoi(ref); err == nil {
		if v, ok := s.versions[id]; ok && v.ProjectID == projectID {
			cp := *v
			return &cp, nil
		}
	}
	for _, v := range s.versions {
		if v.ProjectID == projectID &&
			(strings.EqualFold(v.Name, ref) || strings.EqualFold(v.VersionNumber, ref)) {
			cp := *v
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeVersionStore) ListByProject(ctx context.Context, projectID int) ([]models.ProjectVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ProjectVersion
	for _, v := range s.versions {
		if v.ProjectID == projectID {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *fakeVersionStore) Update(ctx context.Context, v *models.ProjectVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *v
	s.versions[v.ID] = &cp
	return nil
}

func (s *fakeVersionStore) IncrementDownloads(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.versions[id]; ok {
		v.Downloads++
	}
	return nil
}

func (s *fakeVersionStore) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.versions, id)
	for fid, f := range s.files {
		if f.VersionID == id {
			delete(s.files, fid)
		}
	}
	return nil
}

// deleteByProject removes a project's versions and their file rows, the way
// the schema cascades a project delete.
func (s *fakeVersionStore) deleteByProject(projectID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for vid, v := range s.versions {
		if v.ProjectID != projectID {
			continue
		}
		delete(s.versions, vid)
		for fid, f := range s.files {
			if f.VersionID == vid {
				delete(s.files, fid)
			}
		}
	}
}

func (s *fakeVersionStore) CreateFile(ctx context.Context, f *models.ProjectFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.ID = s.nextID
	s.nextID++
	f.CreatedAt = time.Now()
	cp := *f
	s.files[f.ID] = &cp
	return nil
}

func (s *fakeVersionStore) ResolveFile(ctx context.Context, versionID int, ref string) (*models.ProjectFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, err := strconv.Atoi(ref); err == nil {
		if f, ok := s.files[id]; ok && f.VersionID == versionID {
			cp := *f
			return &cp, nil
		}
	}
	for _, f := range s.files {
		if f.VersionID == versionID && strings.EqualFold(f.FileName, ref) {
			cp := *f
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeVersionStore) ListFilesByVersion(ctx context.Context, versionID int) ([]models.ProjectFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ProjectFile
	for _, f := range s.files {
		if f.VersionID == versionID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (s *fakeVersionStore) ListFilesByProject(ctx context.Context, projectID int) ([]models.ProjectFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ProjectFile
	for _, f := range s.files {
		if v, ok := s.versions[f.VersionID]; ok && v.ProjectID == projectID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (s *fakeVersionStore) CountFilesByBlobKey(ctx context.Context, s3ID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, f := range s.files {
		if f.S3ID == s3ID {
			n++
		}
	}
	return n, nil
}

type fakeGalleryStore struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]*models.GalleryImage
}

func newFakeGalleryStore() *fakeGalleryStore {
	return &fakeGalleryStore{nextID: 1, rows: map[int]*models.GalleryImage{}}
}

func (s *fakeGalleryStore) Create(ctx context.Context, g *models.GalleryImage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = s.nextID
	s.nextID++
	g.CreatedAt = time.Now()
	cp := *g
	s.rows[g.ID] = &cp
	return nil
}

func (s *fakeGalleryStore) Resolve(ctx context.Context, projectID int, ref string) (*models.GalleryImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, err := strconv.Atoi(ref); err == nil {
		if g, ok := s.rows[id]; ok && g.ProjectID == projectID {
			cp := *g
			return &cp, nil
		}
	}
	for _, g := range s.rows {
		if g.ProjectID == projectID && strings.EqualFold(g.Name, ref) {
			cp := *g
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeGalleryStore) ListByProject(ctx context.Context, projectID int) ([]models.GalleryImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.GalleryImage
	for _, g := range s.rows {
		if g.ProjectID == projectID {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Ordering != out[j].Ordering {
			return out[i].Ordering < out[j].Ordering
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *fakeGalleryStore) Update(ctx context.Context, g *models.GalleryImage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *g
	s.rows[g.ID] = &cp
	return nil
}

func (s *fakeGalleryStore) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

func (s *fakeGalleryStore) deleteByProject(projectID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, g := range s.rows {
		if g.ProjectID == projectID {
			delete(s.rows, id)
		}
	}
}

func (s *fakeGalleryStore) GetByBlobKey(ctx context.Context, s3ID string) (*models.GalleryImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.rows {
		if g.S3ID == s3ID {
			cp := *g
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeGalleryStore) CountImagesByBlobKey(ctx context.Context, s3ID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, g := range s.rows {
		if g.S3ID == s3ID {
			n++
		}
	}
	return n, nil
}

type fakeModerationStore struct {
	mu       sync.Mutex
	nextID   int
	items    map[int]*models.ModerationQueueItem // keyed by item id
	comments []models.ModerationComment
}

func newFakeModerationStore() *fakeModerationStore {
	return &fakeModerationStore{nextID: 1, items: map[int]*models.ModerationQueueItem{}}
}

func (s *fakeModerationStore) GetForProject(ctx context.Context, projectID int) (*models.ModerationQueueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.ProjectID == projectID {
			cp := *item
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeModerationStore) GetOrCreateForProject(ctx context.Context, projectID int) (*models.ModerationQueueItem, error) {
	if item, _ := s.GetForProject(ctx, projectID); item != nil {
		return item, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	item := &models.ModerationQueueItem{
		ID:        s.nextID,
		ProjectID: projectID,
		Status:    models.ModerationPending,
		CreatedAt: time.Now(),
	}
	s.nextID++
	s.items[item.ID] = item
	cp := *item
	return &cp, nil
}

func (s *fakeModerationStore) SetStatus(ctx context.Context, id int, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.items[id]; ok {
		item.Status = status
	}
	return nil
}

func (s *fakeModerationStore) SetAssignee(ctx context.Context, id int, userID *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.items[id]; ok {
		item.AssignedID = userID
	}
	return nil
}

func (s *fakeModerationStore) ListByStatus(ctx context.Context, status string) ([]models.ModerationQueueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ModerationQueueItem
	for _, item := range s.items {
		if item.Status == status {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (s *fakeModerationStore) AddComment(ctx context.Context, c *models.ModerationComment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = len(s.comments) + 1
	c.CreatedAt = time.Now()
	s.comments = append(s.comments, *c)
	return nil
}

func (s *fakeModerationStore) ListComments(ctx context.Context, projectID int) ([]models.ModerationComment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ModerationComment
	for _, c := range s.comments {
		if c.ProjectID == projectID {
			out = append(out, c)
		}
	}
	return out, nil
}

// fakeBlobStore is an in-memory storage.Storage with an optional injected
// delete failure for exercising the best-effort cleanup path.
type fakeBlobStore struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	failDel bool
	puts    int
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: map[string][]byte{}}
}

func blobKey(bucket storage.Bucket, key string) string {
	return string(bucket) + "/" + key
}

func (s *fakeBlobStore) Put(ctx context.Context, bucket storage.Bucket, key string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[blobKey(bucket, key)] = data
	s.puts++
	return nil
}

func (s *fakeBlobStore) Get(ctx context.Context, bucket storage.Bucket, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[blobKey(bucket, key)]
	if !ok {
		return nil, errors.New("blob not found")
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (s *fakeBlobStore) Delete(ctx context.Context, bucket storage.Bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDel {
		return errors.New("blob store unavailable")
	}
	delete(s.blobs, blobKey(bucket, key))
	return nil
}

func (s *fakeBlobStore) Exists(ctx context.Context, bucket storage.Bucket, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[blobKey(bucket, key)]
	return ok, nil
}

func (s *fakeBlobStore) has(bucket storage.Bucket, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[blobKey(bucket, key)]
	return ok
}

// fakeIndexer records sync calls and can fail on demand
type fakeIndexer struct {
	mu       sync.Mutex
	upserts  []int
	deletes  []int
	reindex  int
	failNext bool
}

func (f *fakeIndexer) UpsertProject(ctx context.Context, projectID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return errors.New("search engine down")
	}
	f.upserts = append(f.upserts, projectID)
	return nil
}

func (f *fakeIndexer) DeleteProject(ctx context.Context, projectID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return errors.New("search engine down")
	}
	f.deletes = append(f.deletes, projectID)
	return nil
}

func (f *fakeIndexer) ReindexAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reindex++
	return nil
}

type testEnv struct {
	reg      *Registry
	projects *fakeProjectStore
	versions *fakeVersionStore
	gallery  *fakeGalleryStore
	mod      *fakeModerationStore
	blobs    *fakeBlobStore
	index    *fakeIndexer
}

func newTestEnv() *testEnv {
	env := &testEnv{
		projects: newFakeProjectStore(),
		versions: newFakeVersionStore(),
		gallery:  newFakeGalleryStore(),
		mod:      newFakeModerationStore(),
		blobs:    newFakeBlobStore(),
		index:    &fakeIndexer{},
	}
	env.projects.versions = env.versions
	env.projects.gallery = env.gallery
	env.reg = New(env.projects, env.versions, env.gallery, env.mod,
		env.blobs, env.index, AcceptAllVerifier{}, nil, nil)
	return env
}
