package sharefile_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/onboardhq/sharefile-connect/sharefile"
)

func TestNormalizeItems(t *testing.T) {
	t.Run("collection with mixed shapes", func(t *testing.T) {
		body := []byte(`{"value": [
			{"odata.type": "ShareFile.Api.Models.Folder", "Id": "fo1", "Name": "Contracts", "FileCount": 3},
			{"odata.type": "ShareFile.Api.Models.File", "Id": "fi1", "Name": "w9.pdf", "FileSizeBytes": 1024},
			{"Id": "x1", "Name": "mystery"}
		]}`)

		items, err := sharefile.NormalizeItems(body)
		require.NoError(t, err)
		require.Len(t, items, 3)

		require.Equal(t, sharefile.ItemFolder, items[0].Kind)
		require.Equal(t, "Contracts", items[0].Name)
		require.Equal(t, 3, items[0].FileCount)

		require.Equal(t, sharefile.ItemFile, items[1].Kind)
		require.Equal(t, int64(1024), items[1].SizeBytes)

		require.Equal(t, sharefile.ItemUnknown, items[2].Kind)
		require.Equal(t, "x1", items[2].ID)
	})

	t.Run("shape inferred from field presence without odata type", func(t *testing.T) {
		body := []byte(`{"value": [
			{"Id": "fo2", "Name": "Home", "FileCount": 0},
			{"Id": "fi2", "Name": "nda.pdf", "FileSizeBytes": 99}
		]}`)

		items, err := sharefile.NormalizeItems(body)
		require.NoError(t, err)
		require.Equal(t, sharefile.ItemFolder, items[0].Kind)
		require.Equal(t, sharefile.ItemFile, items[1].Kind)
	})

	t.Run("single item object", func(t *testing.T) {
		body := []byte(`{"odata.type": "ShareFile.Api.Models.Folder", "Id": "root", "Name": "Home"}`)
		items, err := sharefile.NormalizeItems(body)
		require.NoError(t, err)
		require.Len(t, items, 1)
		require.Equal(t, sharefile.ItemFolder, items[0].Kind)
	})

	t.Run("empty collection", func(t *testing.T) {
		items, err := sharefile.NormalizeItems([]byte(`{"value": []}`))
		require.NoError(t, err)
		require.Empty(t, items)
	})

	t.Run("malformed payload", func(t *testing.T) {
		_, err := sharefile.NormalizeItems([]byte(`not json`))
		require.Error(t, err)
	})
}
