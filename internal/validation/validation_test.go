package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ndewijer/portfolio-client/internal/apperrors"
	"github.com/ndewijer/portfolio-client/internal/validation"
)

func TestValidateHoldingID(t *testing.T) {
	assert.NoError(t, validation.ValidateHoldingID("42"))
	assert.NoError(t, validation.ValidateHoldingID("b4c1e2f0-8d3a-4e5b-9c7d-1a2b3c4d5e6f"))
	assert.ErrorIs(t, validation.ValidateHoldingID(""), apperrors.ErrEmptyID)
	assert.ErrorIs(t, validation.ValidateHoldingID("  "), apperrors.ErrEmptyID)
	assert.ErrorIs(t, validation.ValidateHoldingID("1/../2"), apperrors.ErrInvalidID)
	assert.ErrorIs(t, validation.ValidateHoldingID("1?x=2"), apperrors.ErrInvalidID)
}

func TestValidateQuestion(t *testing.T) {
	assert.NoError(t, validation.ValidateQuestion("Should I rebalance?"))
	assert.ErrorIs(t, validation.ValidateQuestion(""), apperrors.ErrEmptyQuestion)
	assert.ErrorIs(t, validation.ValidateQuestion(" \t\n "), apperrors.ErrEmptyQuestion)
}
