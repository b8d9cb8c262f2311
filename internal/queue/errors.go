package queue

import (
	"fmt"

	"bayloe/internal/services"
)

// ErrInvalidFormat rejects a format outside png, jpeg, webp, pdf. It carries
// services.ErrValidation.
var ErrInvalidFormat = fmt.Errorf("%w: invalid output format", services.ErrValidation)

// failureMessage renders the text stored on a Failed item.
func failureMessage(err error) string {
	return services.Message(err)
}
