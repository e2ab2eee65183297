package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "scholarship-matcher/internal/common/errors"
	"scholarship-matcher/internal/models"
)

func seedResults(h *harness, profileID string, n int) {
	for i := 0; i < n; i++ {
		_ = h.results.CreateMatchResult(context.Background(), &models.MatchResult{
			ID:        profileID + "-r" + string(rune('a'+i)),
			ProfileID: profileID,
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		})
	}
}

func TestGetHistory(t *testing.T) {
	h := newHarness(t, nil)
	seedResults(h, "p-1", 5)
	seedResults(h, "p-2", 2)

	page, err := h.orch.GetHistory(context.Background(), "p-1", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	require.Len(t, page.Results, 2)
	assert.Equal(t, "p-1-re", page.Results[0].ID)
	assert.Equal(t, "p-1-rd", page.Results[1].ID)

	page, err = h.orch.GetHistory(context.Background(), "p-1", 3, 2)
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "p-1-ra", page.Results[0].ID)

	page, err = h.orch.GetHistory(context.Background(), "p-3", 1, 10)
	require.NoError(t, err)
	assert.NotNil(t, page.Results)
	assert.Empty(t, page.Results)

	_, err = h.orch.GetHistory(context.Background(), "", 1, 10)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidInput))
}

func TestGetResult_Ownership(t *testing.T) {
	h := newHarness(t, nil)
	seedResults(h, "p-1", 1)

	res, err := h.orch.GetResult(context.Background(), "p-1", "p-1-ra")
	require.NoError(t, err)
	assert.Equal(t, "p-1", res.ProfileID)

	_, err = h.orch.GetResult(context.Background(), "p-2", "p-1-ra")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeResultNotFound))

	_, err = h.orch.GetResult(context.Background(), "", "missing")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeResultNotFound))
}

func TestDeleteResult(t *testing.T) {
	h := newHarness(t, nil)
	seedResults(h, "p-1", 2)

	err := h.orch.DeleteResult(context.Background(), "p-2", "p-1-ra")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeResultNotFound))
	assert.Equal(t, 2, h.results.count())

	require.NoError(t, h.orch.DeleteResult(context.Background(), "p-1", "p-1-ra"))
	assert.Equal(t, 1, h.results.count())

	err = h.orch.DeleteResult(context.Background(), "", "p-1-ra")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeResultNotFound))
}
