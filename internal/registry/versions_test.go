package registry

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modvault/modvault/internal/db/models"
	"github.com/modvault/modvault/internal/storage"
	"github.com/modvault/modvault/pkg/checksum"
)

func uploadVersion(t *testing.T, env *testEnv, project string, number string, data []byte) *models.ProjectVersionData {
	t.Helper()
	v, err := env.reg.UploadVersion(context.Background(), alice, project, UploadVersionInput{
		Name:          "Release " + number,
		VersionNumber: number,
		Loaders:       []string{"fabric"},
		GameVersions:  []string{"1.21"},
		FileName:      "mod-" + number + ".jar",
		Data:          data,
	})
	require.NoError(t, err)
	return v
}

func TestUploadVersion_ContentAddressing(t *testing.T) {
	env := newTestEnv()
	mustCreateProject(t, env, alice, "my-mod")
	data := []byte("jar bytes")

	v := uploadVersion(t, env, "my-mod", "1.0.0", data)

	require.Len(t, v.Files, 1)
	wantSHA := checksum.SHA1Hex(data)
	assert.Equal(t, wantSHA, v.Files[0].SHA1)
	assert.Equal(t, wantSHA, v.Files[0].S3ID, "blob key is the content hash")
	assert.True(t, env.blobs.has(storage.BucketProjects, wantSHA))
}

// Identical bytes uploaded twice share one physical blob with two metadata
// rows pointing at it.
func TestUploadVersion_DedupSharesBlob(t *testing.T) {
	env := newTestEnv()
	mustCreateProject(t, env, alice, "my-mod")
	mustCreateProject(t, env, alice, "other-mod")
	data := []byte("identical jar bytes")

	uploadVersion(t, env, "my-mod", "1.0.0", data)
	uploadVersion(t, env, "other-mod", "2.0.0", data)

	assert.Equal(t, 1, env.blobs.puts, "second upload must not rewrite the blob")

	key := checksum.SHA1Hex(data)
	n, err := env.versions.CountFilesByBlobKey(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "two rows reference one blob")
}

// Deleting one of two versions sharing a blob keeps the blob; deleting the
// last reference removes it.
func TestDeleteVersion_ReferenceCountedBlobDeletion(t *testing.T) {
	env := newTestEnv()
	mustCreateProject(t, env, alice, "my-mod")
	data := []byte("shared bytes")
	key := checksum.SHA1Hex(data)

	uploadVersion(t, env, "my-mod", "1.0.0", data)
	uploadVersion(t, env, "my-mod", "1.0.1", data)

	require.NoError(t, env.reg.DeleteVersion(context.Background(), alice, "my-mod", "1.0.0"))
	assert.True(t, env.blobs.has(storage.BucketProjects, key), "blob still referenced by 1.0.1")

	require.NoError(t, env.reg.DeleteVersion(context.Background(), alice, "my-mod", "1.0.1"))
	assert.False(t, env.blobs.has(storage.BucketProjects, key), "last reference removes the blob")
}

// A blob store failure during deletion orphans the blob but never blocks the
// metadata delete.
func TestDeleteVersion_BlobFailureDoesNotBlockMetadataDelete(t *testing.T) {
	env := newTestEnv()
	mustCreateProject(t, env, alice, "my-mod")
	data := []byte("doomed bytes")
	uploadVersion(t, env, "my-mod", "1.0.0", data)

	env.blobs.failDel = true
	require.NoError(t, env.reg.DeleteVersion(context.Background(), alice, "my-mod", "1.0.0"))

	v, err := env.versions.Resolve(context.Background(), 1, "1.0.0")
	require.NoError(t, err)
	assert.Nil(t, v, "version row is gone despite the orphaned blob")
	assert.True(t, env.blobs.has(storage.BucketProjects, checksum.SHA1Hex(data)), "blob orphaned, not leaked rows")
}

func TestUploadVersion_InvalidSemver(t *testing.T) {
	env := newTestEnv()
	mustCreateProject(t, env, alice, "my-mod")

	_, err := env.reg.UploadVersion(context.Background(), alice, "my-mod", UploadVersionInput{
		Name:          "Bad",
		VersionNumber: "not-a-version",
		Loaders:       []string{"fabric"},
		GameVersions:  []string{"1.21"},
		FileName:      "mod.jar",
		Data:          []byte("x"),
	})
	assert.ErrorIs(t, err, ErrInvalidSemver)
}

// Loaders and game_versions are required upload fields, not optional lists.
func TestUploadVersion_RequiresLoadersAndGameVersions(t *testing.T) {
	env := newTestEnv()
	mustCreateProject(t, env, alice, "my-mod")

	for _, input := range []UploadVersionInput{
		{Name: "R", VersionNumber: "1.0.0", GameVersions: []string{"1.21"}, FileName: "mod.jar", Data: []byte("x")},
		{Name: "R", VersionNumber: "1.0.0", Loaders: []string{"fabric"}, FileName: "mod.jar", Data: []byte("x")},
	} {
		_, err := env.reg.UploadVersion(context.Background(), alice, "my-mod", input)
		assert.ErrorIs(t, err, ErrMissingField)
	}
	assert.Equal(t, 0, env.blobs.puts, "nothing written for rejected uploads")
}

func TestUploadVersion_VerifierRejects(t *testing.T) {
	env := newTestEnv()
	env.reg.verifier = ZipVerifier{}
	mustCreateProject(t, env, alice, "my-mod")

	_, err := env.reg.UploadVersion(context.Background(), alice, "my-mod", UploadVersionInput{
		Name:          "Bad",
		VersionNumber: "1.0.0",
		Loaders:       []string{"fabric"},
		GameVersions:  []string{"1.21"},
		FileName:      "mod.jar",
		Data:          []byte("not a zip"),
	})
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.Equal(t, 0, env.blobs.puts, "nothing written for rejected artifacts")
}

func TestResolveVersion_ByNameAndNumber(t *testing.T) {
	env := newTestEnv()
	mustCreateProject(t, env, alice, "my-mod")
	uploadVersion(t, env, "my-mod", "1.0.0", []byte("a"))

	byNumber, err := env.reg.GetVersion(context.Background(), nil, "my-mod", "1.0.0")
	require.NoError(t, err)
	byName, err := env.reg.GetVersion(context.Background(), nil, "my-mod", "release 1.0.0")
	require.NoError(t, err)
	assert.Equal(t, byNumber.ID, byName.ID)
}

// "latest" means highest version number, not most recently published.
func TestLatestVersion_HighestSemverWins(t *testing.T) {
	env := newTestEnv()
	mustCreateProject(t, env, alice, "my-mod")

	uploadVersion(t, env, "my-mod", "2.0.0", []byte("two"))
	uploadVersion(t, env, "my-mod", "1.5.0", []byte("backport"))
	uploadVersion(t, env, "my-mod", "2.1.0-beta.1", []byte("beta"))

	latest, err := env.reg.LatestVersion(context.Background(), nil, "my-mod")
	require.NoError(t, err)
	assert.Equal(t, "2.1.0-beta.1", latest.VersionNumber)
	require.Len(t, latest.Files, 1)
}

func TestLatestVersion_NoVersions(t *testing.T) {
	env := newTestEnv()
	mustCreateProject(t, env, alice, "my-mod")

	_, err := env.reg.LatestVersion(context.Background(), nil, "my-mod")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDownloadVersionFile_BumpsCountersAndSyncs(t *testing.T) {
	env := newTestEnv()
	p := mustCreateProject(t, env, alice, "my-mod")
	v := uploadVersion(t, env, "my-mod", "1.0.0", []byte("jar bytes"))

	before := len(env.index.upserts)
	reader, file, err := env.reg.DownloadVersionFile(context.Background(), nil, "my-mod", "1.0.0", v.Files[0].FileName)
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "jar bytes", string(data))
	assert.Equal(t, v.Files[0].SHA1, file.SHA1)

	proj, err := env.projects.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, proj.Downloads)

	ver, err := env.versions.Resolve(context.Background(), p.ID, "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, 1, ver.Downloads)

	assert.Len(t, env.index.upserts, before+1, "download refreshes the search document")
}

func TestDeleteProject_CleansBlobsSharedOnlyWithin(t *testing.T) {
	env := newTestEnv()
	mustCreateProject(t, env, alice, "my-mod")
	mustCreateProject(t, env, alice, "other-mod")
	shared := []byte("shared across projects")
	private := []byte("only in my-mod")

	uploadVersion(t, env, "my-mod", "1.0.0", shared)
	uploadVersion(t, env, "my-mod", "1.1.0", private)
	uploadVersion(t, env, "other-mod", "1.0.0", shared)

	require.NoError(t, env.reg.DeleteProject(context.Background(), alice, "my-mod"))

	assert.True(t, env.blobs.has(storage.BucketProjects, checksum.SHA1Hex(shared)),
		"blob still referenced by other-mod survives")
	assert.False(t, env.blobs.has(storage.BucketProjects, checksum.SHA1Hex(private)),
		"blob only referenced by the deleted project goes away")
}
