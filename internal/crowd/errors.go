package crowd

import "errors"

var (
	// ErrInvalidLevel means the reported severity is not one of the accepted
	// ordinals.
	ErrInvalidLevel = errors.New("invalid flood level")

	// ErrReportNotFound means the report id does not exist.
	ErrReportNotFound = errors.New("report not found")

	// ErrAlreadyModerated means the report left the pending state earlier; a
	// verdict is final.
	ErrAlreadyModerated = errors.New("report already moderated")

	// ErrReasonRequired means a rejection arrived without a reason.
	ErrReasonRequired = errors.New("rejection reason is required")

	// ErrInvalidVerdict means the moderation verdict is neither approved nor
	// rejected.
	ErrInvalidVerdict = errors.New("invalid moderation verdict")
)
