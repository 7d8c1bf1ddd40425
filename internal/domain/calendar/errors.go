package calendar

import "quest-scheduler-go/internal/domain/apperr"

var (
	ErrInvalidScope = apperr.New(apperr.KindValidation, "invalid_scope", "invalid calendar scope")
	ErrInvalidMonth = apperr.New(apperr.KindValidation, "invalid_month", "month must be YYYY-MM")
	ErrInvalidDate  = apperr.New(apperr.KindValidation, "invalid_date", "date must be YYYY-MM-DD")

	ErrViewerRequired = apperr.New(apperr.KindAccessDenied, "calendar_viewer_required", "the user scope requires an authenticated viewer")
)
