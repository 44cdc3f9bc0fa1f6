package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNowString(t *testing.T) {
	s := NowString()

	parsed, err := time.Parse(Layout, s)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), parsed, 5*time.Second)
}

func TestNowUsesKoreanOffsetWhenAvailable(t *testing.T) {
	if _, err := time.LoadLocation("Asia/Seoul"); err != nil {
		t.Skip("tzdata unavailable")
	}
	_, offset := Now().Zone()
	assert.Equal(t, 9*60*60, offset)
}
