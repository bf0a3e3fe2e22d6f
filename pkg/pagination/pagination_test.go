package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, DefaultLimit, NormalizeLimit(-5))
	assert.Equal(t, 42, NormalizeLimit(42))
	assert.Equal(t, MaxLimit, NormalizeLimit(5000))
}

func TestLimitWithBuffer(t *testing.T) {
	assert.Equal(t, DefaultLimit+1, LimitWithBuffer(0))
	assert.Equal(t, 11, LimitWithBuffer(10))
}

func TestCursorRoundTrip(t *testing.T) {
	id := uuid.New()
	createdAt := time.Date(2026, 3, 14, 9, 26, 53, 589000000, time.UTC)

	token := EncodeCursor(createdAt, id)
	cur, err := ParseCursor(token)
	require.NoError(t, err)
	require.NotNil(t, cur)

	assert.True(t, cur.CreatedAt.Equal(createdAt))
	assert.Equal(t, id, cur.ID)
}

func TestParseCursorEmpty(t *testing.T) {
	cur, err := ParseCursor("")
	require.NoError(t, err)
	assert.Nil(t, cur)
}

func TestParseCursorInvalid(t *testing.T) {
	_, err := ParseCursor("not-base64!!!")
	assert.Error(t, err)

	_, err = ParseCursor("bm8tcGlwZS1oZXJl") // "no-pipe-here"
	assert.Error(t, err)

	bad := EncodeCursor(time.Now(), uuid.New())
	_, err = ParseCursor(bad[:len(bad)-4] + "AAAA")
	assert.Error(t, err)
}
