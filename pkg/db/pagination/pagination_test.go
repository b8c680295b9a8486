package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct{ id string }

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "1234"})
	require.NoError(t, err)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "1234", cursor.ID)

	_, err = DecodeCursor("%%%")
	assert.Error(t, err)
}

func TestPage(t *testing.T) {
	items := []*item{{"5"}, {"4"}, {"3"}}

	got, info := Page(items, 2, func(i *item) string { return i.id })
	require.Len(t, got, 2)
	assert.True(t, info.HasMore)
	cursor, err := DecodeCursor(info.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, "4", cursor.ID)

	got, info = Page(items, 3, func(i *item) string { return i.id })
	assert.Len(t, got, 3)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}
