package http

import (
	"net/http"
	"strconv"

	"deskhub/pkg/config"
	apperrors "deskhub/pkg/errors"
	"deskhub/pkg/model"
)

func ExtractLimitOffset(r *http.Request) (int, int64, error) {
	query := r.URL.Query()

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		limit = v
	}

	var offset int64 = 0
	if s := query.Get("offset"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid offset parameter: " + s)
		}
		offset = int64(v)
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	return limit, offset, nil
}

// ExtractDateRange reads the start_date and end_date query parameters. Both
// must be present and in YYYY-MM-DD form; ordering is validated downstream.
func ExtractDateRange(r *http.Request) (model.DateRange, error) {
	query := r.URL.Query()

	startRaw := query.Get("start_date")
	endRaw := query.Get("end_date")
	if startRaw == "" || endRaw == "" {
		return model.DateRange{}, apperrors.InvalidInput("start_date and end_date query parameters are required")
	}

	start, err := model.ParseDate(startRaw)
	if err != nil {
		return model.DateRange{}, apperrors.InvalidInput("invalid start_date: " + startRaw)
	}
	end, err := model.ParseDate(endRaw)
	if err != nil {
		return model.DateRange{}, apperrors.InvalidInput("invalid end_date: " + endRaw)
	}

	return model.DateRange{Start: start, End: end}, nil
}
