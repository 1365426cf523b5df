package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	assert.Equal(t, CodeLobbyFull, Code(ErrFull))
	assert.Equal(t, CodeLobbyNotFound, Code(fmt.Errorf("%w: lobby abc", ErrNotFound)))
	assert.Equal(t, CodeValidation, Code(fmt.Errorf("restore: %w", fmt.Errorf("%w: bad name", ErrValidation))))
	assert.Equal(t, CodeInternal, Code(errors.New("connection refused")))
	assert.Equal(t, CodeInternal, Code(fmt.Errorf("save lobby x: %w", errors.New("timeout"))))
}

func TestIsDomain(t *testing.T) {
	assert.True(t, IsDomain(ErrNotHost))
	assert.False(t, IsDomain(errors.New("io")))
}
