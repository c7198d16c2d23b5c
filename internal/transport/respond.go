package transport

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"bakery-storefront/internal/catalog"
	"bakery-storefront/internal/middleware"
	"bakery-storefront/internal/order"
	"bakery-storefront/internal/remote"
	"bakery-storefront/internal/repository"
	"bakery-storefront/internal/user"
)

// StatusClientClosedRequest is logged when the shopper goes away mid-request
const StatusClientClosedRequest = 499

// respondWithServiceError maps domain and remote errors onto the JSON error
// envelope. Unknown errors become a 500 carrying fallback as the message.
func respondWithServiceError(w http.ResponseWriter, logger *zap.Logger, err error, fallback string) {
	var apiErr *remote.APIError

	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, catalog.ErrDuplicateCode):
		middleware.RespondWithError(w, http.StatusConflict, "product code already exists")
	case errors.Is(err, order.ErrOrderNotFound), errors.Is(err, repository.ErrOrderAttemptNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, user.ErrUserNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "user not found")
	case remote.IsCanceled(err):
		logger.Debug("Request canceled", zap.Error(err))
		middleware.RespondWithError(w, StatusClientClosedRequest, "request canceled")
	case remote.IsUnavailable(err):
		logger.Warn("Storefront API unavailable", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadGateway, "storefront API unavailable")
	case errors.As(err, &apiErr) && remote.IsRejected(err):
		middleware.RespondWithError(w, apiErr.Status, remote.Message(err))
	default:
		logger.Error(fallback, zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, fallback)
	}
}

// sessionID returns the key SessionMiddleware assigned to the request
func sessionID(r *http.Request) string {
	id, _ := middleware.GetSessionID(r.Context())
	return id
}
