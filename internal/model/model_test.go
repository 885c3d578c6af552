package model_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/virtuallib/catalog-service/internal/model"
)

func TestStatus_Lifecycle(t *testing.T) {
	t.Parallel()
	tests := []struct {
		status    model.Status
		terminal  bool
		freesBook bool
	}{
		{model.StatusPending, false, false},
		{model.StatusPickedUp, true, false},
		{model.StatusCancelled, true, true},
		{model.StatusExpired, true, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.status), func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.terminal, tt.status.Terminal())
			require.Equal(t, tt.freesBook, tt.status.FreesBook())
		})
	}
}
