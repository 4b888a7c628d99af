package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler_GetHealth(t *testing.T) {
	handler := NewHealthHandler("1.0.0")

	output, err := handler.GetHealth(context.Background(), &HealthInput{})
	require.NoError(t, err)
	require.NotNil(t, output)

	assert.Equal(t, "healthy", output.Body.Status)
	assert.Equal(t, "1.0.0", output.Body.Version)
	assert.NotEmpty(t, output.Body.Timestamp)
	assert.Greater(t, output.Body.CPUInfo.Cores, 0)

	// No database configured.
	assert.Equal(t, "disabled", output.Body.Components.Database.Status)
	assert.False(t, output.Body.Components.Session.Authenticated)
}
