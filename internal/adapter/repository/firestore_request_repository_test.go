package repository

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"agriconnect/internal/domain/entity"
	"agriconnect/pkg/logger"
)

func TestDecodeRequestLogsAndSkipsUnreadableDocuments(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger.SetLogger(zap.New(core))
	t.Cleanup(func() { logger.Configure("test") })

	request, ok := decodeRequest("doc-7", func(v interface{}) error {
		return fmt.Errorf("price: cannot convert string")
	})
	assert.False(t, ok)
	assert.Nil(t, request)

	entries := logs.FilterMessageSnippet("doc-7").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)

	request, ok = decodeRequest("doc-8", func(v interface{}) error {
		*v.(*entity.MatchRequest) = entity.MatchRequest{ID: 8, Crop: "Jute"}
		return nil
	})
	require.True(t, ok)
	assert.Equal(t, int64(8), request.ID)
	assert.Equal(t, 1, logs.Len())
}
