package validation

import (
	"fmt"
	"strings"

	"github.com/ndewijer/portfolio-client/internal/apperrors"
)

// ValidateHoldingID checks that id can be used as a holding path segment.
func ValidateHoldingID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperrors.ErrEmptyID
	}
	if strings.ContainsAny(id, "/?#") {
		return fmt.Errorf("%w: %q", apperrors.ErrInvalidID, id)
	}
	return nil
}

// ValidateQuestion rejects empty or whitespace-only advisor questions.
func ValidateQuestion(question string) error {
	if strings.TrimSpace(question) == "" {
		return apperrors.ErrEmptyQuestion
	}
	return nil
}
