package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/storefront/internal/catalog/domain"
	checkoutdomain "github.com/smallbiznis/storefront/internal/checkout/domain"
)

type createCheckoutSessionRequest struct {
	Quantity   int64  `json:"quantity"`
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
}

func (s *Server) CreateCheckoutSession(c *gin.Context) {
	var req createCheckoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.checkoutSvc.CreateSession(c.Request.Context(), checkoutdomain.CreateSessionRequest{
		ProductID:  strings.TrimSpace(c.Param("id")),
		Quantity:   req.Quantity,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		// Missing product is a client mistake on this route, not a 404.
		if errors.Is(err, catalogdomain.ErrNotFound) {
			AbortWithError(c, newValidationError("id", "product_not_found", "product not found"))
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
