package handlers

import (
	"errors"
	"strconv"

	"carestaff/internal/models"
	"carestaff/internal/money"
)

var errInvalidAmount = errors.New("invalid amount")

func parseAmountMinor(raw string) (int64, error) {
	amount, err := money.ParseMinor(raw)
	if err != nil || amount <= 0 {
		return 0, errInvalidAmount
	}
	return amount, nil
}

func parseInt(raw string, fallback int) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func parsePage(query map[string][]string) (limit, offset int) {
	first := func(key string) string {
		if values := query[key]; len(values) > 0 {
			return values[0]
		}
		return ""
	}
	page := parseInt(first("page"), 1)
	limit = parseInt(first("limit"), 20)
	return limit, (page - 1) * limit
}

func parseOwnerKind(raw string) (string, bool) {
	switch raw {
	case models.OwnerCareHome, models.OwnerWorker:
		return raw, true
	}
	return "", false
}
