package local_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageconfig "github.com/tigerroll/greentaxi/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/greentaxi/pkg/batch/adapter/storage/local"
)

func newAdapter(t *testing.T) (*local.LocalAdapter, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "landing")
	a, err := local.NewLocalAdapter(storageconfig.StorageConfig{Type: "local", BaseDir: dir, BucketName: "raw"}, "landing")
	require.NoError(t, err)
	return a, dir
}

func TestLocalAdapter_UploadDownload(t *testing.T) {
	a, dir := newAdapter(t)
	ctx := context.Background()

	require.NoError(t, a.Upload(ctx, "", "2019/green.csv", strings.NewReader("a,b\n1,2\n"), "text/csv"))
	assert.FileExists(t, filepath.Join(dir, "raw", "2019", "green.csv"))
	assert.Equal(t, filepath.Join(dir, "raw", "2019", "green.csv"), a.URI("", "2019/green.csv"))

	rc, err := a.Download(ctx, "", "2019/green.csv")
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(body))

	_, err = a.Download(ctx, "", "missing.csv")
	assert.Error(t, err)
}

func TestLocalAdapter_ListMoveDelete(t *testing.T) {
	a, _ := newAdapter(t)
	ctx := context.Background()
	for _, name := range []string{"green_2019-01.csv", "green_2019-02.csv", "zones.csv"} {
		require.NoError(t, a.Upload(ctx, "", name, strings.NewReader("x"), "text/csv"))
	}

	var listed []string
	require.NoError(t, a.ListObjects(ctx, "", "green_", func(name string) error {
		listed = append(listed, name)
		return nil
	}))
	sort.Strings(listed)
	assert.Equal(t, []string{"green_2019-01.csv", "green_2019-02.csv"}, listed)

	require.NoError(t, a.MoveObject(ctx, "", "green_2019-01.csv", "quarantine/green_2019-01.csv"))
	_, err := a.Download(ctx, "", "green_2019-01.csv")
	assert.Error(t, err)
	rc, err := a.Download(ctx, "", "quarantine/green_2019-01.csv")
	require.NoError(t, err)
	rc.Close()

	require.NoError(t, a.DeleteObject(ctx, "", "green_2019-02.csv"))
	require.NoError(t, a.DeleteObject(ctx, "", "green_2019-02.csv"), "deleting a missing object is not an error")
}

func TestLocalAdapter_RejectsEscapingPaths(t *testing.T) {
	a, _ := newAdapter(t)
	err := a.Upload(context.Background(), "", "../../etc/passwd", strings.NewReader("x"), "text/plain")
	assert.Error(t, err)
}

func TestNewLocalAdapter_Validation(t *testing.T) {
	_, err := local.NewLocalAdapter(storageconfig.StorageConfig{Type: "local"}, "empty")
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = local.NewLocalAdapter(storageconfig.StorageConfig{Type: "local", BaseDir: file}, "file")
	assert.Error(t, err)
}
