package search

import "quest-scheduler-go/internal/domain/apperr"

var (
	ErrInvalidSort       = apperr.New(apperr.KindValidation, "invalid_sort", "invalid sort order")
	ErrInvalidPagination = apperr.New(apperr.KindValidation, "invalid_pagination", "limit and offset must not be negative")
	ErrInvalidPriceRange = apperr.New(apperr.KindValidation, "invalid_price_range", "invalid price range")
	ErrInvalidDateRange  = apperr.New(apperr.KindValidation, "invalid_date_range", "date_from must not be after date_to")
)
